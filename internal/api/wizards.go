package api

import (
	"io"
	"net/http"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/state"
)

type sessionView struct {
	Session  *service.CatalogSession `json:"session"`
	Mapping  models.FieldMapping     `json:"mapping"`
	Unmapped []string                `json:"unmapped"`
}

func viewSession(wz *service.Wizard, fields []string) sessionView {
	m := wz.Mapping()
	return sessionView{
		Session:  wz.Session(),
		Mapping:  m,
		Unmapped: service.UnmappedFields(m, fields),
	}
}

// receiveUpload reads the "file" part of a multipart form and hands it to upload.
func (h *Handler) receiveUpload(w http.ResponseWriter, r *http.Request, upload func(r *http.Request, name string, file io.Reader) error) bool {
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		h.fail(w, r, NewError(http.StatusBadRequest, "file too large or not a multipart form", err))
		return false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, NewError(http.StatusBadRequest, "no file uploaded", err))
		return false
	}
	defer file.Close()

	if err := upload(r, header.Filename, file); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

type mappingRequest struct {
	Mapping models.FieldMapping `json:"mapping" validate:"required"`
}

// ============================================================================
// Sizing sheet import
// ============================================================================

type importRecordsRequest struct {
	Records []map[string]interface{} `json:"records" validate:"required"`
}

func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req importRecordsRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, ws.Worksheet.ImportRows(req.Records))
}

func (h *Handler) UploadSizingSheet(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if !h.receiveUpload(w, r, func(r *http.Request, name string, file io.Reader) error {
		_, err := ws.Import.Upload(r.Context(), name, file)
		return err
	}) {
		return
	}
	writeJSON(w, http.StatusOK, viewSession(&ws.Import.Wizard, models.SizingImportFields))
}

func (h *Handler) SetImportMapping(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req mappingRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := ws.Import.ReplaceMapping(req.Mapping); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(&ws.Import.Wizard, models.SizingImportFields))
}

func (h *Handler) ApplyImport(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	records, err := ws.Import.Apply(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Worksheet.ImportRows(records))
}

// ============================================================================
// Catalog
// ============================================================================

type catalogView struct {
	sessionView
	RecognizedRows int             `json:"recognized_rows"`
	LastMatch      *state.MatchRun `json:"last_match,omitempty"`
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, catalogView{
		sessionView:    viewSession(&ws.Catalog.Wizard, models.CatalogFields),
		RecognizedRows: ws.Catalog.RecognizedRows(),
		LastMatch:      ws.LastMatch(),
	})
}

func (h *Handler) UploadCatalog(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if !h.receiveUpload(w, r, func(r *http.Request, name string, file io.Reader) error {
		_, err := ws.Catalog.Upload(r.Context(), name, file)
		return err
	}) {
		return
	}
	writeJSON(w, http.StatusOK, viewSession(&ws.Catalog.Wizard, models.CatalogFields))
}

func (h *Handler) SetCatalogMapping(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req mappingRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := ws.Catalog.ReplaceMapping(req.Mapping); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(&ws.Catalog.Wizard, models.CatalogFields))
}

func (h *Handler) SaveCatalogMapping(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	count, err := ws.Catalog.SaveMapping(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

type matchRequest struct {
	TopN int `json:"top_n" validate:"omitempty,min=1,max=20"`
}

func (h *Handler) MatchCatalog(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req matchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TopN == 0 {
		req.TopN = h.DefaultTopN
	}
	run, err := ws.Match(r.Context(), req.TopN)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) ApplyMatches(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	applied, err := ws.ApplyMatch(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := viewWorkspace(ws)
	writeJSON(w, http.StatusOK, struct {
		Applied int `json:"applied"`
		workspaceView
	}{applied, resp})
}
