package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	MaxFileSize = 32 * 1024 * 1024 // 32MB
	MaxBodySize = 8 * 1024 * 1024
)

// HealthChecker reports whether the sizing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handler struct {
	Registry    *state.Registry
	Upstream    HealthChecker
	DefaultTopN int

	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(registry *state.Registry, upstream HealthChecker, defaultTopN int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTopN < 1 {
		defaultTopN = 3
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Handler{
		Registry:    registry,
		Upstream:    upstream,
		DefaultTopN: defaultTopN,
		validate:    v,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Post("/api/mapping/suggest", h.SuggestMapping)

	r.Route("/api/workspaces", func(r chi.Router) {
		r.Post("/", h.CreateWorkspace)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetWorkspace)
			r.Delete("/", h.DeleteWorkspace)

			r.Post("/rows", h.AddRow)
			r.Patch("/rows/{rowID}", h.UpdateRow)
			r.Delete("/rows/{rowID}", h.DeleteRow)
			r.Post("/rows/{rowID}/size", h.SizeRow)
			r.Put("/grouping", h.SetGrouping)
			r.Post("/recompute", h.Recompute)

			r.Post("/import/records", h.ImportRecords)
			r.Post("/import/upload", h.UploadSizingSheet)
			r.Put("/import/mapping", h.SetImportMapping)
			r.Post("/import/apply", h.ApplyImport)

			r.Get("/catalog", h.GetCatalog)
			r.Post("/catalog/upload", h.UploadCatalog)
			r.Put("/catalog/mapping", h.SetCatalogMapping)
			r.Post("/catalog/mapping/save", h.SaveCatalogMapping)
			r.Post("/catalog/match", h.MatchCatalog)
			r.Post("/catalog/apply", h.ApplyMatches)

			r.Get("/boq", h.GetBOQ)
			r.Post("/export/boq", h.ExportBOQ)
			r.Post("/export/sizing-report", h.ExportSizingReport)
			r.Post("/export/excel", h.ExportExcel)
			r.Get("/export/sizing.csv", h.DownloadSizingCSV)
			r.Get("/export/boq.csv", h.DownloadBOQCSV)
		})
	})
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":     "UP",
		"workspaces": h.Registry.Len(),
	}
	code := http.StatusOK
	if h.Upstream != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.Upstream.Health(ctx); err != nil {
			resp["status"] = "DEGRADED"
			resp["sizing_service"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp["sizing_service"] = "UP"
		}
	}
	writeJSON(w, code, resp)
}

// ============================================================================
// Mapping suggestions
// ============================================================================

type suggestRequest struct {
	Schema   models.Schema       `json:"schema" validate:"required,oneof=catalog sizing"`
	Headers  []string            `json:"headers" validate:"required"`
	Existing models.FieldMapping `json:"existing"`
}

type suggestResponse struct {
	Mapping  models.FieldMapping `json:"mapping"`
	Unmapped []string            `json:"unmapped"`
}

func (h *Handler) SuggestMapping(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !h.decode(w, r, &req) {
		return
	}
	fields := req.Schema.Fields()
	mapping := service.SuggestMapping(req.Headers, req.Existing, fields)
	writeJSON(w, http.StatusOK, suggestResponse{
		Mapping:  mapping,
		Unmapped: service.UnmappedFields(mapping, fields),
	})
}

// ============================================================================
// Helpers
// ============================================================================

// workspace resolves {id} or writes a 404.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*state.Workspace, bool) {
	ws, ok := h.Registry.Get(chi.URLParam(r, "id"))
	if !ok {
		h.fail(w, r, errWorkspaceNotFound)
		return nil, false
	}
	return ws, true
}

// decode reads a JSON body into v and validates it. An empty body is
// accepted for requests whose fields are all optional.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, NewError(http.StatusBadRequest, "invalid JSON body", err))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classify(err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", apiErr.Code),
		zap.Error(err),
	}
	if apiErr.Code >= 500 {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}
	writeJSON(w, apiErr.Code, apiErr)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
