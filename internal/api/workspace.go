package api

import (
	"net/http"
	"time"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/state"

	"github.com/go-chi/chi/v5"
)

type rowView struct {
	models.BulkRow
	Status       string         `json:"status"`
	StatusDetail service.Status `json:"status_detail,omitempty"`
	// Grouping is the result's grouping check, shown next to the threshold.
	Grouping *models.ComplianceCheck `json:"grouping,omitempty"`
}

type workspaceView struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	GroupingThreshold float64   `json:"grouping_threshold"`
	Rows              []rowView `json:"rows"`
}

func viewRow(r models.BulkRow) rowView {
	st := service.DeriveStatus(r)
	v := rowView{BulkRow: r, Status: st.Label(), StatusDetail: st}
	if c, ok := service.GroupingCheck(r.Result); ok {
		v.Grouping = &c
	}
	return v
}

func viewWorkspace(ws *state.Workspace) workspaceView {
	rows := ws.Worksheet.Rows()
	out := workspaceView{
		ID:                ws.ID,
		CreatedAt:         ws.CreatedAt,
		GroupingThreshold: ws.Worksheet.GroupingThreshold(),
		Rows:              make([]rowView, len(rows)),
	}
	for i, r := range rows {
		out.Rows[i] = viewRow(r)
	}
	return out
}

func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := h.Registry.Create()
	writeJSON(w, http.StatusCreated, viewWorkspace(ws))
}

func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewWorkspace(ws))
}

func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if !h.Registry.Delete(chi.URLParam(r, "id")) {
		h.fail(w, r, errWorkspaceNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Rows
// ============================================================================

func (h *Handler) AddRow(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, viewRow(ws.Worksheet.AddRow()))
}

type updateRowRequest struct {
	Field string      `json:"field" validate:"required"`
	Value interface{} `json:"value"`
}

func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req updateRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "rowID")
	found, err := ws.Worksheet.UpdateField(id, req.Field, req.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		h.fail(w, r, errRowNotFound)
		return
	}
	row, _ := ws.Worksheet.Row(id)
	writeJSON(w, http.StatusOK, viewRow(row))
}

func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if !ws.Worksheet.DeleteRow(chi.URLParam(r, "rowID")) {
		h.fail(w, r, errRowNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SizeRow(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "rowID")
	found, err := ws.Worksheet.SizeOne(r.Context(), id)
	if !found {
		h.fail(w, r, errRowNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	row, _ := ws.Worksheet.Row(id)
	writeJSON(w, http.StatusOK, viewRow(row))
}

type groupingRequest struct {
	Threshold *float64 `json:"threshold" validate:"required,gte=0,lte=1"`
}

func (h *Handler) SetGrouping(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req groupingRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := ws.Worksheet.SetGroupingThreshold(*req.Threshold); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"grouping_threshold": *req.Threshold})
}

func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Worksheet.Recompute(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewWorkspace(ws))
}
