package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSeed = `
users:
  - email: demo@example.com
    name: Demo
    password: demo-password-123
    metrics:
      daily_played: 20
      weekly_played: 90
      monthly_played: 200
feed:
  - by: Demo
    text: Welcome to the circle
`

func TestDemoReset(t *testing.T) {
	env := newTestEnv(t)

	t.Run("disabled", func(t *testing.T) {
		h := NewDemoHandler(service.NewDemoService(nil, false, time.Second, env.telemetry))
		w := serve(h.Reset, request{method: http.MethodPost, target: "/api/demo/reset"})
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "demo mode is disabled", decode(t, w)["error"])
	})

	t.Run("seed", func(t *testing.T) {
		resetter := service.NewSeedResetter(env.db, service.EmbeddedSeed([]byte(handlerTestSeed)),
			env.users, env.profiles, env.metrics, env.goals, env.feed)
		h := NewDemoHandler(service.NewDemoService(resetter, true, 10*time.Second, env.telemetry))

		w := serve(h.Reset, request{method: http.MethodPost, target: "/api/demo/reset"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "Demo data restored", decode(t, w)["message"])

		entries, err := env.feedSvc.Recent(1, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Welcome to the circle", entries[0].Text)
	})

	t.Run("failing command", func(t *testing.T) {
		resetter := &service.CommandResetter{Command: "echo restore failed >&2; exit 1"}
		h := NewDemoHandler(service.NewDemoService(resetter, true, 5*time.Second, env.telemetry))

		w := serve(h.Reset, request{method: http.MethodPost, target: "/api/demo/reset"})
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decode(t, w)["error"], "restore failed")
	})
}

func TestExportDownload(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signup(t, "ada@example.com", "Ada")
	h := NewExportHandler(env.exportSvc)

	w := serve(h.Download, request{method: http.MethodGet, target: "/app/export", as: &ada})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="respectcircle-export-`)

	body := decode(t, w)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "Ada", body["name"])
}

func TestExportArchive(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signup(t, "ada@example.com", "Ada")

	t.Run("without storage", func(t *testing.T) {
		w := serve(NewExportHandler(env.exportSvc).Archive, request{method: http.MethodPost, target: "/app/export/archive", as: &ada})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("with storage", func(t *testing.T) {
		store := storage.NewMemory("http://files.test")
		svc := service.NewExportService(env.users, env.profiles, env.metrics, env.goals, env.feed, store)

		w := serve(NewExportHandler(svc).Archive, request{method: http.MethodPost, target: "/app/export/archive", as: &ada})
		require.Equal(t, http.StatusOK, w.Code)

		url := decode(t, w)["url"].(string)
		assert.Contains(t, url, "http://files.test/exports/"+ada.user.ID+"/")

		key := url[len("http://files.test/"):]
		rc, err := store.Open(context.Background(), key)
		require.NoError(t, err)
		rc.Close()
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	h := NewHomeHandler(service.NewPageService(t.TempDir(), false), env.db)

	w := serve(h.Health, request{method: http.MethodGet, target: "/healthz"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestContentPage(t *testing.T) {
	env := newTestEnv(t)
	pagesSvc := service.NewPageService("../../content", false)
	require.NoError(t, pagesSvc.LoadPages())
	h := NewHomeHandler(pagesSvc, env.db)

	w := serve(h.ContentPage, request{method: http.MethodGet, target: "/pages/about", path: map[string]string{"slug": "about"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "About RespectCircle")

	w = serve(h.ContentPage, request{method: http.MethodGet, target: "/pages/missing", path: map[string]string{"slug": "missing"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardPage(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signup(t, "ada@example.com", "Ada")

	_, err := env.goalSvc.Create(ada.user.ID, "Scales <fast>", 10)
	require.NoError(t, err)
	_, err = env.feedSvc.Post(context.Background(), "", "Grace", "Go Ada!")
	require.NoError(t, err)

	demo := service.NewDemoService(nil, false, 0, env.telemetry)
	h := NewDashboardHandler(env.metricsSvc, env.goalSvc, env.feedSvc, demo, env.exportSvc)

	w := serve(h.DashboardPage, request{method: http.MethodGet, target: "/app/dashboard", as: &ada})
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "<html")
	assert.Contains(t, page, "Scales &lt;fast&gt;")
	assert.Contains(t, page, "Go Ada!")

	w = serve(h.DashboardPage, request{method: http.MethodGet, target: "/app/dashboard?section=goals", as: &ada,
		header: map[string]string{"HX-Request": "true"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Body.String(), `id="goals"`)
	assert.NotContains(t, w.Body.String(), `id="feed"`)
}
