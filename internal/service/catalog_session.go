package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/upstream"

	"go.uber.org/zap"
)

// Fixed storage keys of the last-used mappings.
const (
	CatalogMappingKey = "catalog_mapping"
	SizingMappingKey  = "sizing_mapping"
)

// MappingStore persists the last mapping a user saved, per key.
type MappingStore interface {
	LoadMapping(ctx context.Context, key string) (models.FieldMapping, error)
	SaveMapping(ctx context.Context, key string, m models.FieldMapping) error
}

// CatalogService is the catalog side of the external service.
type CatalogService interface {
	UploadCatalog(ctx context.Context, filename string, body io.Reader) (*models.UploadInfo, error)
	MapCatalog(ctx context.Context, token string, mapping models.FieldMapping) (*models.MapCatalogResponse, error)
	MatchCatalog(ctx context.Context, req models.MatchRequest) (*models.MatchResponse, error)
}

// CatalogSession is one uploaded file as known to the external service. A
// new upload replaces it; it is never modified.
type CatalogSession struct {
	Token      string                   `json:"token"`
	Filename   string                   `json:"filename"`
	Headers    []string                 `json:"headers"`
	Sample     []map[string]interface{} `json:"sample"`
	UploadedAt time.Time                `json:"uploaded_at"`
}

// Wizard holds the upload token and the working field mapping of one
// upload-and-map flow. The last saved mapping is kept in a MappingStore and
// offered as the starting point of the next upload.
type Wizard struct {
	mu      sync.Mutex
	schema  models.Schema
	key     string
	store   MappingStore
	logger  *zap.Logger
	session *CatalogSession
	mapping models.FieldMapping
}

func newWizard(schema models.Schema, key string, store MappingStore, logger *zap.Logger) Wizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Wizard{
		schema:  schema,
		key:     key,
		store:   store,
		logger:  logger.With(zap.String("schema", string(schema))),
		mapping: models.FieldMapping{},
	}
}

// Session returns the active session, or nil.
func (w *Wizard) Session() *CatalogSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil
	}
	s := *w.session
	s.Headers = append([]string(nil), w.session.Headers...)
	return &s
}

// Mapping returns a copy of the working mapping.
func (w *Wizard) Mapping() models.FieldMapping {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mapping.Clone()
}

// SetMapping maps field to header. An empty header unmaps the field. The
// field must belong to the schema and the header to the uploaded file.
func (w *Wizard) SetMapping(field, header string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkEntry(field, header); err != nil {
		return err
	}
	if header == "" {
		delete(w.mapping, field)
		return nil
	}
	w.mapping[field] = header
	return nil
}

// ReplaceMapping swaps the whole working mapping after validating every entry.
func (w *Wizard) ReplaceMapping(m models.FieldMapping) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := models.FieldMapping{}
	for field, header := range m {
		if err := w.checkEntry(field, header); err != nil {
			return err
		}
		if header != "" {
			next[field] = header
		}
	}
	w.mapping = next
	return nil
}

// checkEntry must be called with mu held.
func (w *Wizard) checkEntry(field, header string) error {
	if w.session == nil {
		return ErrNoSession
	}
	known := false
	for _, f := range w.schema.Fields() {
		if f == field {
			known = true
			break
		}
	}
	if !known {
		return invalid(field, "not a %s field", w.schema)
	}
	if header == "" {
		return nil
	}
	for _, h := range w.session.Headers {
		if h == header {
			return nil
		}
	}
	return invalid(field, "header %q is not in the uploaded file", header)
}

// begin installs a fresh session, discarding the previous one, and seeds the
// working mapping from the stored mapping plus suggestions.
func (w *Wizard) begin(ctx context.Context, filename string, info *models.UploadInfo) *CatalogSession {
	last, err := w.store.LoadMapping(ctx, w.key)
	if err != nil {
		w.logger.Warn("could not load last mapping", zap.String("key", w.key), zap.Error(err))
		last = nil
	}

	present := make(map[string]bool, len(info.Headers))
	for _, h := range info.Headers {
		present[h] = true
	}
	seed := models.FieldMapping{}
	for field, header := range last {
		if present[header] {
			seed[field] = header
		}
	}
	mapping := SuggestMapping(info.Headers, seed, w.schema.Fields())

	s := &CatalogSession{
		Token:      info.Token,
		Filename:   filename,
		Headers:    append([]string(nil), info.Headers...),
		Sample:     info.Sample,
		UploadedAt: time.Now().UTC(),
	}

	w.mu.Lock()
	w.session = s
	w.mapping = mapping
	w.mu.Unlock()

	w.logger.Info("upload session started",
		zap.String("file", filename),
		zap.Int("headers", len(info.Headers)),
		zap.Int("suggested", len(mapping)),
		zap.Strings("unmapped", UnmappedFields(mapping, w.schema.Fields())),
	)
	return s
}

// current returns the token and mapping to send, or ErrNoSession.
func (w *Wizard) current() (string, models.FieldMapping, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return "", nil, ErrNoSession
	}
	return w.session.Token, w.mapping.Clone(), nil
}

// expire drops the session if it still holds token. The token is never sent
// again.
func (w *Wizard) expire(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil && w.session.Token == token {
		w.session = nil
	}
}

func (w *Wizard) persist(ctx context.Context, m models.FieldMapping) {
	if err := w.store.SaveMapping(ctx, w.key, m); err != nil {
		w.logger.Warn("could not persist mapping", zap.String("key", w.key), zap.Error(err))
	}
}

func (w *Wizard) classify(token string, err error) error {
	if errors.Is(err, upstream.ErrUnknownToken) {
		w.expire(token)
		w.logger.Info("upload token rejected, session closed", zap.String("token", token))
		return &SessionExpiredError{Token: token, Err: err}
	}
	return err
}

// CatalogWizard drives the catalog flow: upload, map, match.
type CatalogWizard struct {
	Wizard
	svc        CatalogService
	recognized int
}

// NewCatalogWizard returns a wizard with no session.
func NewCatalogWizard(svc CatalogService, store MappingStore, logger *zap.Logger) *CatalogWizard {
	return &CatalogWizard{
		Wizard: newWizard(models.SchemaCatalog, CatalogMappingKey, store, logger),
		svc:    svc,
	}
}

// Upload sends a catalog file to the external parser and starts a new
// session. A rejected file yields an UploadError and leaves any previous
// session in place.
func (c *CatalogWizard) Upload(ctx context.Context, filename string, body io.Reader) (*CatalogSession, error) {
	info, err := c.svc.UploadCatalog(ctx, filename, body)
	if err != nil {
		if errors.Is(err, upstream.ErrRejected) {
			return nil, &UploadError{Filename: filename, Err: err}
		}
		return nil, err
	}
	if info.Token == "" {
		return nil, &UploadError{Filename: filename, Err: errors.New("no token in upload reply")}
	}
	c.mu.Lock()
	c.recognized = 0
	c.mu.Unlock()
	return c.begin(ctx, filename, info), nil
}

// SaveMapping sends the working mapping to the service and returns the number
// of catalog rows it recognised. On success the mapping is stored as the
// default for the next upload. An unknown token yields a SessionExpiredError
// and closes the session; it is not retried.
func (c *CatalogWizard) SaveMapping(ctx context.Context) (int, error) {
	token, mapping, err := c.current()
	if err != nil {
		return 0, err
	}
	resp, err := c.svc.MapCatalog(ctx, token, mapping)
	if err != nil {
		return 0, c.classify(token, err)
	}
	c.persist(ctx, mapping)

	c.mu.Lock()
	c.recognized = resp.Count
	c.mu.Unlock()

	c.logger.Info("catalog mapping saved", zap.Int("recognized_rows", resp.Count))
	return resp.Count, nil
}

// RecognizedRows is the row count returned by the last successful SaveMapping.
func (c *CatalogWizard) RecognizedRows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recognized
}

// Match asks the ranking service for up to topN suggestions per row. Rows
// without a qualifying entry get an empty list. An unknown token yields a
// SessionExpiredError; any other failure a RankingServiceError.
func (c *CatalogWizard) Match(ctx context.Context, rows []models.MatchRow, topN int) ([]models.RowMatchResult, error) {
	if topN < 1 {
		return nil, invalid("top_n", "must be at least 1, got %d", topN)
	}
	token, _, err := c.current()
	if err != nil {
		return nil, err
	}
	resp, err := c.svc.MatchCatalog(ctx, models.MatchRequest{
		Token: token,
		Rows:  matchRequestRows(rows),
		TopN:  topN,
	})
	if err != nil {
		if cerr := c.classify(token, err); cerr != err {
			return nil, cerr
		}
		return nil, &RankingServiceError{Err: err}
	}
	results := ResolveMatches(resp, len(rows), topN)
	c.logger.Info("catalog match complete",
		zap.Int("rows", len(rows)),
		zap.Int("results", len(results)),
		zap.Int("dropped", len(resp.Matches)-len(results)),
	)
	return results, nil
}
