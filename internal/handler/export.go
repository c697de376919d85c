package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	data, err := h.exportService.JSON(user.ID)
	if err != nil {
		slog.Error("failed to export data", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to export data", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("respectcircle-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, err = w.Write(data)
	if err != nil {
		slog.Error("failed to write export", "error", err, "user_id", user.ID)
	}
}

// Archive stores the export in object storage and returns a short-lived
// download link.
func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	url, err := h.exportService.Archive(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"url": url})
}
