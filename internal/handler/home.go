package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/pages"
)

type HomeHandler struct {
	pageService *service.PageService
	db          *sqlx.DB
}

func NewHomeHandler(pageService *service.PageService, db *sqlx.DB) *HomeHandler {
	return &HomeHandler{
		pageService: pageService,
		db:          db,
	}
}

func (h *HomeHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Home())
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	ui.Render(w, r, pages.NotFound())
}

func (h *HomeHandler) ContentPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageService.Page(r.PathValue("slug"))
	if err != nil {
		if !errors.Is(err, service.ErrPageNotFound) {
			slog.Error("failed to load page", "error", err, "slug", r.PathValue("slug"))
		}
		h.NotFoundPage(w, r)
		return
	}

	ui.Render(w, r, pages.Content(page))
}

// Health reports liveness. The database must answer within two seconds.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	err := h.db.PingContext(ctx)
	if err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
