// Package pages holds the server-rendered views. Markup lives in the .templ
// files; regenerate the *_templ.go files with `go tool templ generate` after
// editing them.
package pages

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
)

const defaultAppName = "RespectCircle"

func appName(ctx context.Context) string {
	if cfg := ctxkeys.Config(ctx); cfg != nil && cfg.AppName != "" {
		return cfg.AppName
	}
	return defaultAppName
}

func pageTitle(ctx context.Context, title string) string {
	if title == "" {
		return appName(ctx)
	}
	return title + " · " + appName(ctx)
}

func csrfToken(ctx context.Context) string {
	return ctxkeys.CSRFToken(ctx)
}

func signedIn(ctx context.Context) bool {
	return ctxkeys.User(ctx) != nil
}

func userName(ctx context.Context) string {
	if !signedIn(ctx) {
		return ""
	}
	return ctxkeys.AuthorName(ctx)
}

func isCurrent(ctx context.Context, path string) bool {
	return ctxkeys.URLPath(ctx) == path
}

func played(m *model.Metrics, p ledger.Period) int {
	switch p {
	case ledger.Daily:
		return m.DailyPlayed
	case ledger.Weekly:
		return m.WeeklyPlayed
	default:
		return m.MonthlyPlayed
	}
}

func goal(m *model.Metrics, p ledger.Period) int {
	switch p {
	case ledger.Daily:
		return m.DailyGoal
	case ledger.Weekly:
		return m.WeeklyGoal
	default:
		return m.MonthlyGoal
	}
}

func percent(played, goal int) string {
	return strconv.Itoa(model.Percent(played, goal))
}

// goalURL is the API path for a goal, or for one of its actions.
func goalURL(id, action string) templ.SafeURL {
	path := "/api/goals/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return templ.SafeURL(path)
}

func feedPageURL(page int) templ.SafeURL {
	return templ.SafeURL("?feed_page=" + strconv.Itoa(page))
}
