package handler

import (
	"log/slog"
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/pages"
)

type DashboardHandler struct {
	metricsService *service.MetricsService
	goalService    *service.GoalService
	feedService    *service.FeedService
	demoService    *service.DemoService
	exportService  *service.ExportService
}

func NewDashboardHandler(
	metricsService *service.MetricsService,
	goalService *service.GoalService,
	feedService *service.FeedService,
	demoService *service.DemoService,
	exportService *service.ExportService,
) *DashboardHandler {
	return &DashboardHandler{
		metricsService: metricsService,
		goalService:    goalService,
		feedService:    feedService,
		demoService:    demoService,
		exportService:  exportService,
	}
}

func (h *DashboardHandler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	metrics, err := h.metricsService.Metrics(user.ID)
	if err != nil {
		slog.Error("failed to get metrics", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	sortBy := sortParam(r)
	goals, err := h.goalService.Goals(user.ID, sortBy)
	if err != nil {
		slog.Error("failed to get goals", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	feedPageNum := max(queryInt(r, "feed_page", 1), 1)
	feed, more, err := feedPage(h.feedService, feedPageNum)
	if err != nil {
		slog.Error("failed to get feed", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	data := pages.DashboardData{
		Metrics:        metrics,
		Goals:          goals,
		Sort:           sortBy,
		Feed:           feed,
		FeedPage:       feedPageNum,
		FeedMore:       more,
		DemoEnabled:    h.demoService.Enabled(),
		ArchiveEnabled: h.exportService.ArchiveEnabled(),
	}

	// HTMX requests refresh a single section
	if r.Header.Get("HX-Request") == "true" {
		switch r.URL.Query().Get("section") {
		case "goals":
			ui.Render(w, r, pages.GoalList(data))
			return
		case "feed":
			ui.Render(w, r, pages.FeedList(data))
			return
		}
	}

	ui.Render(w, r, pages.Dashboard(data))
}
