package pages

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/joshuanoeldeke/RespectCircle/internal/config"
	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestEveryViewRenders(t *testing.T) {
	m := model.NewMetrics("m1", "u1", time.Now())
	views := map[string]templ.Component{
		"home":        Home(),
		"not found":   NotFound(),
		"auth":        Auth(AuthData{}),
		"check email": CheckEmail("ada@example.com", "verify"),
		"onboarding":  Onboarding(""),
		"dashboard":   Dashboard(DashboardData{Metrics: m, FeedPage: 1}),
		"settings":    Settings(SettingsData{}),
		"content":     Content(&service.Page{Title: "About"}),
	}

	for name, c := range views {
		t.Run(name, func(t *testing.T) {
			html := render(t, context.Background(), c)
			assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
			assert.Contains(t, html, `<div id="toast-container"`)
		})
	}
}

func TestLayoutCarriesRequestState(t *testing.T) {
	ctx := templ.WithNonce(context.Background(), "nonce-123")
	ctx = ctxkeys.WithCSRFToken(ctx, "csrf-abc")
	ctx = ctxkeys.WithConfig(ctx, &config.Config{AppName: "Circle Test"})

	html := render(t, ctx, Home())
	assert.Contains(t, html, `nonce="nonce-123"`)
	assert.Contains(t, html, `<meta name="csrf-token" content="csrf-abc">`)
	assert.Contains(t, html, "Circle Test")
	assert.Contains(t, html, `href="/auth"`)
	assert.NotContains(t, html, "Log out")
}

func TestSignedInNav(t *testing.T) {
	ctx := ctxkeys.WithUser(context.Background(), &model.User{ID: "u1"})
	ctx = ctxkeys.WithProfile(ctx, &model.Profile{UserID: "u1", Name: "Ada <3"})
	ctx = ctxkeys.WithURLPath(ctx, "/app/settings")

	html := render(t, ctx, Settings(SettingsData{Email: "ada@example.com", Name: "Ada <3"}))
	assert.Contains(t, html, "Log out")
	assert.Contains(t, html, "Ada &lt;3")
	assert.NotContains(t, html, "Ada <3")
	assert.Contains(t, html, `href="/app/settings" aria-current="page"`)
}

func TestDashboardEscapesUserContent(t *testing.T) {
	ctx := ctxkeys.WithUser(context.Background(), &model.User{ID: "u1"})

	m := model.NewMetrics("m1", "u1", time.Now())
	m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed = 30, 30, 30

	data := DashboardData{
		Metrics:  m,
		Goals:    []*model.Goal{{ID: "g1", Title: "<script>x</script>", Target: 4, Progress: 1}},
		Sort:     "recent",
		Feed:     []*model.FeedEntry{{ID: "f1", Author: "Eve", Text: "<b>hi</b>", Kind: model.FeedKindMessage, CreatedAt: time.Now()}},
		FeedPage: 2,
		FeedMore: true,
	}

	html := render(t, ctx, Dashboard(data))
	assert.NotContains(t, html, "<script>x</script>")
	assert.Contains(t, html, "&lt;script&gt;x&lt;/script&gt;")
	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, html, "?feed_page=1")
	assert.Contains(t, html, "?feed_page=3")

	goals := render(t, ctx, GoalList(data))
	assert.Contains(t, goals, `id="goals"`)
	assert.NotContains(t, goals, "<!doctype html>")
}

func TestDashboardMeters(t *testing.T) {
	m := model.NewMetrics("m1", "u1", time.Now())
	m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed = 60, 150, 150

	data := DashboardData{
		Metrics: m,
		Goals: []*model.Goal{
			{ID: "g1", Title: "Scales", Target: 4, Progress: 4},
			{ID: "g2", Title: "Etudes", Target: 10, Progress: 3},
		},
		Sort:     "progress",
		FeedPage: 1,
	}

	html := render(t, context.Background(), Dashboard(data))
	assert.Contains(t, html, "<span>Daily</span>")
	assert.Contains(t, html, "60 / 60 min")
	assert.Contains(t, html, `<progress class="bar done" max="100" value="100">`)
	assert.Contains(t, html, `<progress class="bar" max="100" value="50">`)
	assert.Contains(t, html, `<article class="goal done">`)
	assert.Contains(t, html, `action="/api/goals/g2/progress"`)
	assert.Contains(t, html, `action="/api/goals/g2"`)
	assert.Contains(t, html, `href="?sort=progress" aria-current="true"`)
	assert.Contains(t, html, `<option value="weekly">Weekly</option>`)
	assert.NotContains(t, html, "?feed_page=")
}

func TestAuthModes(t *testing.T) {
	html := render(t, context.Background(), Auth(AuthData{Mode: "signup", Error: "name is required"}))
	assert.Contains(t, html, `action="/auth/signup"`)
	assert.Contains(t, html, "name is required")
	assert.NotContains(t, html, "/auth/google")

	html = render(t, context.Background(), Auth(AuthData{GoogleEnabled: true}))
	assert.Contains(t, html, `action="/auth/password"`)
	assert.Contains(t, html, "/auth/google")
}

func TestContentRendersMarkdownHTML(t *testing.T) {
	html := render(t, context.Background(), Content(&service.Page{Title: "About", Slug: "about", Content: "<p>Hello</p>"}))
	assert.Contains(t, html, "<p>Hello</p>")
	assert.Contains(t, html, "About")
}
