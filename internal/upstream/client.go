package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cable-orchestrator/internal/metrics"
	"cable-orchestrator/internal/models"

	"go.uber.org/zap"
)

// Endpoint paths of the sizing service.
const (
	PathHealth        = "/"
	PathSize          = "/cable/size"
	PathBulkSize      = "/cable/bulk-size"
	PathUpload        = "/cable/upload"
	PathMapUpload     = "/cable/map-upload"
	PathCatalogUpload = "/cable/catalog/upload"
	PathCatalogMap    = "/cable/catalog/map"
	PathCatalogMatch  = "/cable/catalog/match"
	PathExportExcel   = "/cable/export-excel"
	PathExportBOQ     = "/export/boq"
	PathExportReport  = "/export/sizing-report"
)

var (
	// ErrUnknownToken matches a StatusError meaning the upload token is not
	// (or no longer) known to the service.
	ErrUnknownToken = errors.New("unknown upload token")
	// ErrRejected matches a StatusError meaning the service refused the
	// request content.
	ErrRejected = errors.New("request rejected")
)

// StatusError is a non-2xx reply.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Code, e.Body)
}

// Is lets callers match StatusError against ErrUnknownToken and ErrRejected.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnknownToken:
		return e.Code == http.StatusNotFound || e.Code == http.StatusGone
	case ErrRejected:
		return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusNotFound && e.Code != http.StatusGone
	}
	return false
}

// Config holds the service address.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the external sizing, catalog and export service.
type Client struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewClient returns a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: Config{
			BaseURL: strings.TrimRight(baseURL, "/"),
			Timeout: timeout,
		},
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("component", "upstream")),
	}
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, PathHealth, nil, "", nil)
}

// Size sizes one row.
func (c *Client) Size(ctx context.Context, row models.SizingInput) (*models.SizingResult, error) {
	var out models.SizingResult
	if err := c.postJSON(ctx, PathSize, row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkSize sizes every row in one call. The reply is positionally aligned
// with rows.
func (c *Client) BulkSize(ctx context.Context, rows []models.SizingInput) ([]models.SizingResult, error) {
	var out []models.SizingResult
	if err := c.postJSON(ctx, PathBulkSize, rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadSizingSheet uploads a feeder list spreadsheet.
func (c *Client) UploadSizingSheet(ctx context.Context, filename string, body io.Reader) (*models.UploadInfo, error) {
	return c.upload(ctx, PathUpload, filename, body)
}

// MapSizingSheet applies mapping to an uploaded feeder list and returns its
// records.
func (c *Client) MapSizingSheet(ctx context.Context, token string, mapping models.FieldMapping) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	req := mapRequest{Token: token, Mapping: mapping}
	if err := c.postJSON(ctx, PathMapUpload, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadCatalog uploads a vendor catalog spreadsheet.
func (c *Client) UploadCatalog(ctx context.Context, filename string, body io.Reader) (*models.UploadInfo, error) {
	return c.upload(ctx, PathCatalogUpload, filename, body)
}

// MapCatalog applies mapping to an uploaded catalog.
func (c *Client) MapCatalog(ctx context.Context, token string, mapping models.FieldMapping) (*models.MapCatalogResponse, error) {
	var out models.MapCatalogResponse
	req := mapRequest{Token: token, Mapping: mapping}
	if err := c.postJSON(ctx, PathCatalogMap, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchCatalog ranks catalog entries for each row.
func (c *Client) MatchCatalog(ctx context.Context, req models.MatchRequest) (*models.MatchResponse, error) {
	var out models.MatchResponse
	if err := c.postJSON(ctx, PathCatalogMatch, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportBOQ renders the bill of quantities.
func (c *Client) ExportBOQ(ctx context.Context, req models.BOQExportRequest) (*models.ExportLink, error) {
	return c.export(ctx, PathExportBOQ, req)
}

// ExportSizingReport renders the row-by-row report.
func (c *Client) ExportSizingReport(ctx context.Context, req models.SizingReportRequest) (*models.ExportLink, error) {
	return c.export(ctx, PathExportReport, req)
}

// ExportExcel renders the worksheet as a spreadsheet.
func (c *Client) ExportExcel(ctx context.Context, req models.ExcelExportRequest) (*models.ExportLink, error) {
	return c.export(ctx, PathExportExcel, req)
}

type mapRequest struct {
	Token   string              `json:"token"`
	Mapping models.FieldMapping `json:"mapping"`
}

func (c *Client) export(ctx context.Context, path string, payload interface{}) (*models.ExportLink, error) {
	var out models.ExportLink
	if err := c.postJSON(ctx, path, payload, &out); err != nil {
		return nil, err
	}
	if out.DownloadURL == "" {
		return nil, fmt.Errorf("%s: reply has no downloadUrl", path)
	}
	return &out, nil
}

func (c *Client) upload(ctx context.Context, path, filename string, body io.Reader) (*models.UploadInfo, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out models.UploadInfo
	if err := c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(jsonData), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstream(path, 0, time.Since(start))
		c.logger.Warn("upstream call failed", zap.String("endpoint", path), zap.Error(err))
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read reply: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("upstream returned error status",
			zap.String("endpoint", path),
			zap.Int("status", resp.StatusCode),
		)
		return &StatusError{Endpoint: path, Code: resp.StatusCode, Body: errorDetail(data)}
	}

	c.logger.Debug("upstream call complete",
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", path, err)
	}
	return nil
}

// errorDetail extracts {"detail": "..."} from an error body, or returns the
// body trimmed to a reasonable length.
func errorDetail(data []byte) string {
	var d struct {
		Detail interface{} `json:"detail"`
	}
	if json.Unmarshal(data, &d) == nil && d.Detail != nil {
		if s, ok := d.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(d.Detail)
		return string(b)
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
