package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/db"
	"github.com/joshuanoeldeke/RespectCircle/internal/events"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db        *sqlx.DB
	telemetry *telemetry.Metrics

	users    repository.UserRepository
	profiles repository.ProfileRepository
	tokens   repository.TokenRepository
	metrics  repository.MetricsRepository
	goals    repository.GoalRepository
	feed     repository.FeedRepository

	authSvc    *service.AuthService
	userSvc    *service.UserService
	profileSvc *service.ProfileService
	metricsSvc *service.MetricsService
	goalSvc    *service.GoalService
	feedSvc    *service.FeedService
	exportSvc  *service.ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })
	require.NoError(t, db.RunMigrations(context.Background(), conn.DB, "sqlite"))

	env := &testEnv{
		db:        conn,
		telemetry: telemetry.New(),
		users:     repository.NewUserRepository(conn),
		profiles:  repository.NewProfileRepository(conn),
		tokens:    repository.NewTokenRepository(conn),
		metrics:   repository.NewMetricsRepository(conn),
		goals:     repository.NewGoalRepository(conn),
		feed:      repository.NewFeedRepository(conn),
	}

	email := service.NewEmailService("", "test@example.com", "http://localhost:8090", "RespectCircle", true)
	notifier := service.NewNotifier(&events.Recorder{}, email, env.users, env.telemetry)
	env.metricsSvc = service.NewMetricsService(conn, env.metrics, env.feed, notifier, env.telemetry)
	env.goalSvc = service.NewGoalService(conn, env.goals, env.telemetry)
	env.feedSvc = service.NewFeedService(env.feed, notifier, env.telemetry, 10)
	env.authSvc = service.NewAuthService(conn, env.users, env.profiles, env.tokens, env.metricsSvc, email,
		"test-secret", false, time.Hour, 15*time.Minute)
	env.userSvc = service.NewUserService(env.users)
	env.profileSvc = service.NewProfileService(env.profiles)
	env.exportSvc = service.NewExportService(env.users, env.profiles, env.metrics, env.goals, env.feed, nil)
	return env
}

// session is a signed-in user as the auth middleware would present it.
type session struct {
	user    *model.User
	profile *model.Profile
}

func (e *testEnv) signup(t *testing.T, email, name string) session {
	t.Helper()

	user, err := e.authSvc.Signup(context.Background(), email, "correct-horse-battery", name)
	require.NoError(t, err)
	now := time.Now()
	user.EmailVerifiedAt = &now
	require.NoError(t, e.users.Update(user))

	profile, err := e.profiles.ByUserID(user.ID)
	require.NoError(t, err)
	return session{user: user, profile: profile}
}

type request struct {
	method string
	target string
	body   string
	form   bool
	as     *session
	path   map[string]string
	header map[string]string
}

func serve(h http.HandlerFunc, req request) *httptest.ResponseRecorder {
	var r *http.Request
	if req.body != "" {
		r = httptest.NewRequest(req.method, req.target, strings.NewReader(req.body))
		if req.form {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		} else {
			r.Header.Set("Content-Type", "application/json")
		}
	} else {
		r = httptest.NewRequest(req.method, req.target, nil)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	for k, v := range req.path {
		r.SetPathValue(k, v)
	}
	if req.as != nil {
		ctx := ctxkeys.WithUser(r.Context(), req.as.user)
		ctx = ctxkeys.WithProfile(ctx, req.as.profile)
		r = r.WithContext(ctx)
	}

	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
