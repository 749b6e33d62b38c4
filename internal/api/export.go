package api

import (
	"bytes"
	"net/http"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
)

func (h *Handler) GetBOQ(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.BOQLine{
		"boq": service.AggregateBOQ(ws.Worksheet.Rows()),
	})
}

type exportRequest struct {
	Project string `json:"project" validate:"omitempty,max=128"`
}

type sizingReportRequest struct {
	Columns []string `json:"columns"`
	Project string   `json:"project" validate:"omitempty,max=128"`
}

func (h *Handler) ExportBOQ(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req exportRequest
	if !h.decode(w, r, &req) {
		return
	}
	link, err := ws.Exporter.BOQ(r.Context(), ws.Worksheet.Rows(), req.Project)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) ExportSizingReport(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req sizingReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	link, err := ws.Exporter.SizingReport(r.Context(), ws.Worksheet.Rows(), req.Columns, req.Project)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	link, err := ws.Exporter.Excel(r.Context(), ws.Worksheet.Rows())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) DownloadSizingCSV(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := service.WriteSizingCSV(&buf, ws.Worksheet.Rows()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeCSV(w, "sceap_bulk_cable_sizing.csv", buf.Bytes())
}

func (h *Handler) DownloadBOQCSV(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := service.WriteBOQCSV(&buf, ws.Worksheet.Rows()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeCSV(w, "sceap_boq.csv", buf.Bytes())
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
