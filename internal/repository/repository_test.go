package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/db"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })

	require.NoError(t, db.RunMigrations(context.Background(), conn.DB, "sqlite"))
	return conn
}

func createUser(t *testing.T, conn *sqlx.DB, email string) *model.User {
	t.Helper()

	user := &model.User{ID: uuid.New().String(), Email: email, CreatedAt: time.Now()}
	require.NoError(t, NewUserRepository(conn).Create(user))
	return user
}

func TestUserRepository(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)

	user := createUser(t, conn, "ada@example.com")

	got, err := users.ByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.False(t, got.HasPassword())

	err = users.Create(&model.User{ID: uuid.New().String(), Email: "ada@example.com", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = users.ByID("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	hash := "hash"
	got.PasswordHash = &hash
	require.NoError(t, users.Update(got))

	got, err = users.ByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.HasPassword())

	require.NoError(t, users.Delete(user.ID))
	assert.ErrorIs(t, users.Delete(user.ID), ErrUserNotFound)
}

func TestMetricsRepository(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMetricsRepository(conn)
	user := createUser(t, conn, "grace@example.com")

	m := model.NewMetrics(uuid.New().String(), user.ID, time.Now())
	require.NoError(t, repo.Create(m))

	dup := model.NewMetrics(uuid.New().String(), user.ID, time.Now())
	assert.ErrorIs(t, repo.Create(dup), ErrMetricsExist)

	got, err := repo.ByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDailyGoal, got.DailyGoal)
	assert.Equal(t, model.DefaultWeeklyGoal, got.WeeklyGoal)
	assert.Equal(t, model.DefaultMonthlyGoal, got.MonthlyGoal)
	assert.Zero(t, got.MonthlyPlayed)

	got.DailyPlayed, got.WeeklyPlayed, got.MonthlyPlayed = 10, 20, 30
	got.HighScore = 99
	require.NoError(t, repo.Update(got))

	got, err = repo.ByUserIDForUpdate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 99}, []int{got.DailyPlayed, got.WeeklyPlayed, got.MonthlyPlayed, got.HighScore})

	_, err = repo.ByUserID("missing")
	assert.ErrorIs(t, err, ErrMetricsNotFound)

	ids, err := repo.UserIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, ids)
}

func TestMetricsCheckConstraints(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMetricsRepository(conn)
	user := createUser(t, conn, "ordering@example.com")

	m := model.NewMetrics(uuid.New().String(), user.ID, time.Now())
	require.NoError(t, repo.Create(m))

	m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed = 50, 10, 60
	assert.Error(t, repo.Update(m))

	got, err := repo.ByUserID(user.ID)
	require.NoError(t, err)
	assert.Zero(t, got.DailyPlayed)
}

func TestGoalRepository(t *testing.T) {
	conn := newTestDB(t)
	repo := NewGoalRepository(conn)
	user := createUser(t, conn, "goals@example.com")
	other := createUser(t, conn, "other@example.com")

	now := time.Now()
	first := &model.Goal{ID: uuid.New().String(), UserID: user.ID, Title: "Practice scales", Target: 10, CreatedAt: now, UpdatedAt: now}
	second := &model.Goal{ID: uuid.New().String(), UserID: user.ID, Title: "arpeggios", Target: 4, Progress: 3, CreatedAt: now.Add(time.Second), UpdatedAt: now}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	goals, err := repo.Goals(user.ID, GoalSortRecent)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, second.ID, goals[0].ID)

	goals, err = repo.Goals(user.ID, GoalSortTitle)
	require.NoError(t, err)
	assert.Equal(t, "arpeggios", goals[0].Title)

	goals, err = repo.Goals(user.ID, GoalSortProgress)
	require.NoError(t, err)
	assert.Equal(t, second.ID, goals[0].ID)

	_, err = repo.ByID(other.ID, first.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)
	assert.ErrorIs(t, repo.Delete(other.ID, first.ID), ErrGoalNotFound)

	first.Progress = 7
	require.NoError(t, repo.Update(first))
	got, err := repo.ByIDForUpdate(user.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Progress)

	first.Progress = 11
	assert.Error(t, repo.Update(first), "progress above target violates the check constraint")

	count, err := repo.CountUserGoals(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Delete(user.ID, first.ID))
	require.NoError(t, repo.DeleteByUser(user.ID))
	count, err = repo.CountUserGoals(user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFeedRepository(t *testing.T) {
	conn := newTestDB(t)
	repo := NewFeedRepository(conn)
	user := createUser(t, conn, "feed@example.com")

	entries, err := repo.Recent(10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	now := time.Now().Truncate(time.Second)
	for i, text := range []string{"first", "second", "third"} {
		entry := &model.FeedEntry{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Author:    "Ada",
			Text:      text,
			Kind:      model.FeedKindMessage,
			CreatedAt: now,
		}
		if i == 1 {
			entry.UserID = &user.ID
		}
		require.NoError(t, repo.Create(entry))
	}

	entries, err = repo.Recent(2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Text)
	assert.Equal(t, "second", entries[1].Text)

	entries, err = repo.Recent(2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Text)

	mine, err := repo.ByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "second", mine[0].Text)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, repo.DeleteAll())
	count, err = repo.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTransactRollsBack(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	boom := errors.New("boom")

	err := Transact(context.Background(), conn, func(tx *sqlx.Tx) error {
		user := &model.User{ID: uuid.New().String(), Email: "tx@example.com", CreatedAt: time.Now()}
		require.NoError(t, users.WithTx(tx).Create(user))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = users.ByEmail("tx@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = Transact(context.Background(), conn, func(tx *sqlx.Tx) error {
		user := &model.User{ID: uuid.New().String(), Email: "tx@example.com", CreatedAt: time.Now()}
		return users.WithTx(tx).Create(user)
	})
	require.NoError(t, err)

	_, err = users.ByEmail("tx@example.com")
	assert.NoError(t, err)
}

func TestTokenRepository(t *testing.T) {
	conn := newTestDB(t)
	repo := NewTokenRepository(conn)
	user := createUser(t, conn, "token@example.com")

	token := &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeMagicLink,
		Token:     "abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(token))

	got, err := repo.ConsumeToken("abc")
	require.NoError(t, err)
	assert.True(t, got.IsUsed())

	_, err = repo.ConsumeToken("abc")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	expired := &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeMagicLink,
		Token:     "old",
		ExpiresAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, repo.Create(expired))

	n, err := repo.CleanupExpired(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
