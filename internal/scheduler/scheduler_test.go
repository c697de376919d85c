package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoller struct {
	mu     sync.Mutex
	scopes []ledger.Scope
}

func (f *fakeRoller) Rollover(_ context.Context, scope ledger.Scope) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
	return 1, nil
}

func (f *fakeRoller) Scopes() []ledger.Scope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.Scope(nil), f.scopes...)
}

type fakeTokens struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTokens) CleanupExpired(time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 2, nil
}

func (f *fakeTokens) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newScheduler(t *testing.T, roller Roller, tokens TokenCleaner, loc *time.Location) *Scheduler {
	t.Helper()

	s, err := New(roller, tokens, loc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestNextRuns(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	s := newScheduler(t, &fakeRoller{}, &fakeTokens{}, loc)
	s.Start()

	daily, err := s.NextRun(JobDailyRollover)
	require.NoError(t, err)
	daily = daily.In(loc)
	assert.Equal(t, 0, daily.Hour())
	assert.Equal(t, 0, daily.Minute())
	assert.WithinDuration(t, time.Now(), daily, 25*time.Hour)

	weekly, err := s.NextRun(JobWeeklyRollover)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, weekly.In(loc).Weekday())

	monthly, err := s.NextRun(JobMonthlyRollover)
	require.NoError(t, err)
	assert.Equal(t, 1, monthly.In(loc).Day())

	cleanup, err := s.NextRun(JobTokenCleanup)
	require.NoError(t, err)
	assert.Equal(t, 3, cleanup.In(loc).Hour())

	_, err = s.NextRun("nope")
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	roller := &fakeRoller{}
	tokens := &fakeTokens{}
	s := newScheduler(t, roller, tokens, time.UTC)
	s.Start()

	require.NoError(t, s.RunNow(JobWeeklyRollover))
	require.NoError(t, s.RunNow(JobTokenCleanup))

	require.Eventually(t, func() bool {
		return len(roller.Scopes()) == 1 && tokens.Calls() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []ledger.Scope{ledger.ScopeWeekly}, roller.Scopes())

	assert.Error(t, s.RunNow("nope"))
}

func TestWithoutTokenCleaner(t *testing.T) {
	s := newScheduler(t, &fakeRoller{}, nil, nil)

	_, err := s.NextRun(JobTokenCleanup)
	assert.Error(t, err)
}
