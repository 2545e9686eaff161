package handler

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"hotshot/internal/service"
)

// ExportHandler serves closed-question results as downloadable CSV
type ExportHandler struct {
	exportSvc *service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportSvc *service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCSV handles GET /v1/rooms/{code}/questions/{questionId}/export
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	data, err := h.exportSvc.ExportCSV(r.Context(), vars["code"], vars["questionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="results-%s.csv"`, vars["questionId"]))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
