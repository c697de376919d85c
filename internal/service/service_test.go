package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/db"
	"github.com/joshuanoeldeke/RespectCircle/internal/events"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db        *sqlx.DB
	events    *events.Recorder
	telemetry *telemetry.Metrics

	users    repository.UserRepository
	profiles repository.ProfileRepository
	tokens   repository.TokenRepository
	metrics  repository.MetricsRepository
	goals    repository.GoalRepository
	feed     repository.FeedRepository

	auth        *AuthService
	metricsSvc  *MetricsService
	goalSvc     *GoalService
	feedSvc     *FeedService
	exportSvc   *ExportService
	profileSvc  *ProfileService
	userSvc     *UserService
	emailSvc    *EmailService
	notifierSvc *Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })
	require.NoError(t, db.RunMigrations(context.Background(), conn.DB, "sqlite"))

	env := &testEnv{
		db:        conn,
		events:    &events.Recorder{},
		telemetry: telemetry.New(),
		users:     repository.NewUserRepository(conn),
		profiles:  repository.NewProfileRepository(conn),
		tokens:    repository.NewTokenRepository(conn),
		metrics:   repository.NewMetricsRepository(conn),
		goals:     repository.NewGoalRepository(conn),
		feed:      repository.NewFeedRepository(conn),
	}

	env.emailSvc = NewEmailService("", "test@example.com", "http://localhost:8090", "RespectCircle", true)
	env.notifierSvc = NewNotifier(env.events, env.emailSvc, env.users, env.telemetry)
	env.metricsSvc = NewMetricsService(conn, env.metrics, env.feed, env.notifierSvc, env.telemetry)
	env.goalSvc = NewGoalService(conn, env.goals, env.telemetry)
	env.feedSvc = NewFeedService(env.feed, env.notifierSvc, env.telemetry, 10)
	env.auth = NewAuthService(conn, env.users, env.profiles, env.tokens, env.metricsSvc, env.emailSvc,
		"test-secret", false, time.Hour, 15*time.Minute)
	env.profileSvc = NewProfileService(env.profiles)
	env.userSvc = NewUserService(env.users)
	env.exportSvc = NewExportService(env.users, env.profiles, env.metrics, env.goals, env.feed, nil)
	return env
}

// signup creates a verified account with a name and returns the actor.
func (e *testEnv) signup(t *testing.T, email, name string) Actor {
	t.Helper()

	user, err := e.auth.Signup(context.Background(), email, "correct-horse-battery", name)
	require.NoError(t, err)

	user.EmailVerifiedAt = ptr(time.Now())
	require.NoError(t, e.users.Update(user))
	return Actor{UserID: user.ID, Name: name}
}

func (e *testEnv) seedMetrics(t *testing.T, userID string, fn func(m *model.Metrics)) {
	t.Helper()

	m, err := e.metrics.ByUserID(userID)
	require.NoError(t, err)
	fn(m)
	require.NoError(t, e.metrics.Update(m))
}

func ptr[T any](v T) *T {
	return &v
}
