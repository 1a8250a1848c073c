package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	filter, err := reportFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}

	rows, err := h.Service.Monthly(r.Context(), owner, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, rows)
}

func (h *ReportHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	months, err := queryInt(r, "months")
	if err != nil {
		respondError(w, err)
		return
	}

	points, err := h.Service.Occupancy(r.Context(), owner, months)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, points)
}

func (h *ReportHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	filter, err := reportFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}

	report, err := h.Service.Overdue(r.Context(), owner, filter.ApartmentID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, report)
}

// Export streams the CSV named by the type query parameter.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	filter, err := reportFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}

	data, filename, err := h.Service.Export(r.Context(), owner, r.URL.Query().Get("type"), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeFile(w, "text/csv", filename, data)
}

// Archive stores the export in object storage and returns a download link.
func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	filter, err := reportFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}

	archive, err := h.Service.Archive(r.Context(), owner, r.URL.Query().Get("type"), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusCreated, archive)
}

func (h *ReportHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	data, filename, err := h.Service.Receipt(r.Context(), owner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeFile(w, "application/pdf", filename, data)
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
