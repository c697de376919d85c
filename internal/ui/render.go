package ui

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

func Render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	err := c.Render(r.Context(), w)
	if err != nil {
		slog.Error("render failed", "error", err, "path", r.URL.Path)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// RenderOOB wraps c in an hx-swap-oob element so HTMX swaps it into target
// alongside the main response.
func RenderOOB(w http.ResponseWriter, r *http.Request, c templ.Component, target string) {
	_, err := fmt.Fprintf(w, `<div hx-swap-oob="%s">`, target)
	if err != nil {
		slog.Error("render oob write wrapper start failed", "error", err)
		return
	}

	err = c.Render(r.Context(), w)
	if err != nil {
		slog.Error("render oob component render failed", "error", err)
		return
	}

	_, err = w.Write([]byte(`</div>`))
	if err != nil {
		slog.Error("render oob write wrapper end failed", "error", err)
	}
}

// Toast renders a toast into the page-wide #toast-container.
func Toast(w http.ResponseWriter, r *http.Request, c templ.Component) {
	RenderOOB(w, r, c, "beforeend:#toast-container")
}
