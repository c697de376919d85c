package ledger

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuanoeldeke/RespectCircle/internal/model"
)

func fresh() model.Metrics {
	return model.Metrics{
		DailyGoal:   60,
		WeeklyGoal:  300,
		MonthlyGoal: 1200,
	}
}

func played(m model.Metrics, d, w, mo int) model.Metrics {
	m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed = d, w, mo
	return m
}

func intp(v int) *int { return &v }

func requireOrdered(t *testing.T, m model.Metrics) {
	t.Helper()
	require.GreaterOrEqual(t, m.DailyPlayed, 0)
	require.LessOrEqual(t, m.DailyPlayed, m.WeeklyPlayed)
	require.LessOrEqual(t, m.WeeklyPlayed, m.MonthlyPlayed)
}

func TestApplyTimeLog_CrossesDailyOnly(t *testing.T) {
	next, crossed, err := ApplyTimeLog(fresh(), 70)
	require.NoError(t, err)

	assert.Equal(t, 70, next.DailyPlayed)
	assert.Equal(t, 70, next.WeeklyPlayed)
	assert.Equal(t, 70, next.MonthlyPlayed)
	assert.Equal(t, []Period{Daily}, crossed)
}

func TestApplyTimeLog_CrossesAllPeriodsAtOnce(t *testing.T) {
	next, crossed, err := ApplyTimeLog(fresh(), 1300)
	require.NoError(t, err)

	assert.Equal(t, 1300, next.DailyPlayed)
	assert.Equal(t, 1300, next.WeeklyPlayed)
	assert.Equal(t, 1300, next.MonthlyPlayed)
	assert.Equal(t, []Period{Daily, Weekly, Monthly}, crossed)
}

func TestApplyTimeLog_NegativeFloorsAtZero(t *testing.T) {
	next, crossed, err := ApplyTimeLog(played(fresh(), 50, 50, 50), -100)
	require.NoError(t, err)

	assert.Equal(t, 0, next.DailyPlayed)
	assert.Equal(t, 0, next.WeeklyPlayed)
	assert.Equal(t, 0, next.MonthlyPlayed)
	assert.Empty(t, crossed)
}

func TestApplyTimeLog_NegativePartiallyReducesLongerPeriods(t *testing.T) {
	next, _, err := ApplyTimeLog(played(fresh(), 20, 100, 400), -50)
	require.NoError(t, err)

	assert.Equal(t, 0, next.DailyPlayed)
	assert.Equal(t, 50, next.WeeklyPlayed)
	assert.Equal(t, 350, next.MonthlyPlayed)
}

func TestApplyTimeLog_RepairsOrderingAfterFlooring(t *testing.T) {
	// A stored state whose weekly counter trails daily is lifted back into order.
	next, _, err := ApplyTimeLog(played(fresh(), 40, 10, 30), 5)
	require.NoError(t, err)

	assert.Equal(t, 45, next.DailyPlayed)
	assert.Equal(t, 45, next.WeeklyPlayed)
	assert.Equal(t, 45, next.MonthlyPlayed)
}

func TestApplyTimeLog_ZeroRejectedWithoutMutation(t *testing.T) {
	start := played(fresh(), 10, 20, 30)

	next, crossed, err := ApplyTimeLog(start, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroMinutes)
	assert.True(t, IsRejection(err))
	assert.Equal(t, OpLogTime, RejectionOp(err))
	assert.Equal(t, start, next)
	assert.Nil(t, crossed)
}

func TestApplyTimeLog_NoDuplicateAchievement(t *testing.T) {
	m := fresh()

	m, crossed, err := ApplyTimeLog(m, 30)
	require.NoError(t, err)
	assert.Empty(t, crossed)

	m, crossed, err = ApplyTimeLog(m, 30)
	require.NoError(t, err)
	assert.Equal(t, []Period{Daily}, crossed, "reaching the goal exactly counts as a crossing")

	_, crossed, err = ApplyTimeLog(m, 30)
	require.NoError(t, err)
	assert.Empty(t, crossed, "already at goal, no second notification")
}

func TestApplyTimeLog_RecrossAfterDecrement(t *testing.T) {
	m := played(fresh(), 70, 70, 70)

	m, crossed, err := ApplyTimeLog(m, -20)
	require.NoError(t, err)
	assert.Empty(t, crossed)

	_, crossed, err = ApplyTimeLog(m, 20)
	require.NoError(t, err)
	assert.Equal(t, []Period{Daily}, crossed)
}

func TestApplyTimeLog_InvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))

	for run := 0; run < 50; run++ {
		m := fresh()
		for step := 0; step < 200; step++ {
			minutes := rng.IntN(401) - 200
			if minutes == 0 {
				continue
			}
			next, crossed, err := ApplyTimeLog(m, minutes)
			require.NoError(t, err)
			requireOrdered(t, next)

			for _, p := range crossed {
				switch p {
				case Daily:
					require.Less(t, m.DailyPlayed, m.DailyGoal)
				case Weekly:
					require.Less(t, m.WeeklyPlayed, m.WeeklyGoal)
				case Monthly:
					require.Less(t, m.MonthlyPlayed, m.MonthlyGoal)
				}
			}
			m = next
		}
	}
}

func TestApplyTimeLog_OneEntryPerCrossingAcrossCalls(t *testing.T) {
	// Cumulative logs that cross the daily goal once must report it once.
	m := fresh()
	total := 0
	for _, minutes := range []int{10, 15, 20, 25, 5, 5} {
		var crossed []Period
		var err error
		m, crossed, err = ApplyTimeLog(m, minutes)
		require.NoError(t, err)
		for _, p := range crossed {
			if p == Daily {
				total++
			}
		}
	}
	assert.Equal(t, 1, total)
}

func TestResetMetric(t *testing.T) {
	tests := []struct {
		name    string
		start   model.Metrics
		scope   Scope
		want    [3]int
		wantErr error
	}{
		{
			name:  "daily only",
			start: played(fresh(), 10, 20, 30),
			scope: ScopeDaily,
			want:  [3]int{0, 20, 30},
		},
		{
			name:  "weekly clamps daily",
			start: played(fresh(), 10, 20, 30),
			scope: ScopeWeekly,
			want:  [3]int{0, 0, 30},
		},
		{
			name:  "monthly clears shorter periods",
			start: played(fresh(), 10, 20, 20),
			scope: ScopeMonthly,
			want:  [3]int{0, 0, 0},
		},
		{
			name:  "all",
			start: played(fresh(), 5, 6, 7),
			scope: ScopeAll,
			want:  [3]int{0, 0, 0},
		},
		{
			name:    "unknown scope",
			start:   played(fresh(), 5, 6, 7),
			scope:   Scope("yearly"),
			want:    [3]int{5, 6, 7},
			wantErr: ErrUnknownScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ResetMetric(tt.start, tt.scope)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.start, next)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, [3]int{next.DailyPlayed, next.WeeklyPlayed, next.MonthlyPlayed})
			requireOrdered(t, next)
		})
	}
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, ScopeMonthly, scope)

	_, err = ParseScope("hourly")
	require.ErrorIs(t, err, ErrUnknownScope)
	assert.Contains(t, err.Error(), "hourly")
}

func TestSetPlayed(t *testing.T) {
	start := played(fresh(), 1, 2, 3)

	t.Run("rejects weekly below daily", func(t *testing.T) {
		next, err := SetPlayed(start, Values{Daily: intp(10), Weekly: intp(5), Monthly: intp(20)})
		require.ErrorIs(t, err, ErrPlayedOrder)
		assert.Equal(t, start, next)
	})

	t.Run("rejects negative", func(t *testing.T) {
		next, err := SetPlayed(start, Values{Daily: intp(-1)})
		require.ErrorIs(t, err, ErrNegativePlayed)
		assert.Equal(t, start, next)
	})

	t.Run("omitted values keep current", func(t *testing.T) {
		next, err := SetPlayed(start, Values{Monthly: intp(50)})
		require.NoError(t, err)
		assert.Equal(t, [3]int{1, 2, 50}, [3]int{next.DailyPlayed, next.WeeklyPlayed, next.MonthlyPlayed})
	})

	t.Run("validates against current for omitted values", func(t *testing.T) {
		next, err := SetPlayed(start, Values{Daily: intp(3)})
		require.ErrorIs(t, err, ErrPlayedOrder)
		assert.Equal(t, start, next)
	})

	t.Run("does not emit crossings", func(t *testing.T) {
		next, err := SetPlayed(start, Values{Daily: intp(100), Weekly: intp(100), Monthly: intp(100)})
		require.NoError(t, err)
		assert.Equal(t, 100, next.DailyPlayed)
	})
}

func TestSetGoals(t *testing.T) {
	start := fresh()

	tests := []struct {
		name    string
		values  Values
		wantErr error
	}{
		{name: "daily above weekly", values: Values{Daily: intp(400)}, wantErr: ErrGoalOrder},
		{name: "weekly above monthly", values: Values{Weekly: intp(2000)}, wantErr: ErrGoalOrder},
		{name: "zero goal", values: Values{Daily: intp(0)}, wantErr: ErrNonPositiveGoal},
		{name: "negative goal", values: Values{Monthly: intp(-5)}, wantErr: ErrNonPositiveGoal},
		{name: "equal goals allowed", values: Values{Daily: intp(100), Weekly: intp(100), Monthly: intp(100)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := SetGoals(start, tt.values)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, start, next)
				return
			}
			require.NoError(t, err)
			require.NoError(t, Validate(next))
		})
	}
}

func TestRecordScore(t *testing.T) {
	m := fresh()

	m, improved, err := RecordScore(m, 120)
	require.NoError(t, err)
	assert.True(t, improved)
	assert.Equal(t, 120, m.HighScore)

	m, improved, err = RecordScore(m, 80)
	require.NoError(t, err)
	assert.False(t, improved)
	assert.Equal(t, 120, m.HighScore)

	_, _, err = RecordScore(m, -1)
	require.ErrorIs(t, err, ErrNegativeScore)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(played(fresh(), 1, 2, 3)))
	require.ErrorIs(t, Validate(played(fresh(), 3, 2, 3)), ErrPlayedOrder)

	bad := fresh()
	bad.DailyGoal = 0
	require.ErrorIs(t, Validate(bad), ErrNonPositiveGoal)
}

func TestNewGoal(t *testing.T) {
	g, err := NewGoal("  Walk to the park  ", 30)
	require.NoError(t, err)
	assert.Equal(t, "Walk to the park", g.Title)
	assert.Equal(t, 30, g.Target)
	assert.Zero(t, g.Progress)

	_, err = NewGoal("   ", 30)
	require.ErrorIs(t, err, ErrTitleRequired)

	_, err = NewGoal("Walk", 0)
	require.ErrorIs(t, err, ErrInvalidTarget)

	long := make([]rune, MaxTitleLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = NewGoal(string(long), 1)
	require.ErrorIs(t, err, ErrTitleTooLong)
}

func TestApplyGoalProgress(t *testing.T) {
	g := model.Goal{Title: "Stretch", Target: 10, Progress: 4}

	next, err := ApplyGoalProgress(g, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, next.Progress)

	next, err = ApplyGoalProgress(g, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, next.Progress, "clamped at target")

	next, err = ApplyGoalProgress(g, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Progress, "clamped at zero")

	next, err = ApplyGoalProgress(g, 0)
	require.ErrorIs(t, err, ErrZeroAmount)
	assert.Equal(t, g, next)
}

func TestApplyGoalProgress_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	g := model.Goal{Target: 25}

	for i := 0; i < 1000; i++ {
		amount := rng.IntN(31) - 15
		next, err := ApplyGoalProgress(g, amount)
		if amount == 0 {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.GreaterOrEqual(t, next.Progress, 0)
		require.LessOrEqual(t, next.Progress, next.Target)
		g = next
	}
}

func TestResetGoal(t *testing.T) {
	g := ResetGoal(model.Goal{Target: 5, Progress: 5})
	assert.Zero(t, g.Progress)
	assert.Equal(t, 5, g.Target)
}

func TestNewFeedEntry(t *testing.T) {
	e, err := NewFeedEntry(" Anna ", " Keep going! ")
	require.NoError(t, err)
	assert.Equal(t, "Anna", e.Author)
	assert.Equal(t, "Keep going!", e.Text)
	assert.Equal(t, model.FeedKindMessage, e.Kind)

	_, err = NewFeedEntry("", "hi")
	require.ErrorIs(t, err, ErrAuthorRequired)
	assert.Equal(t, "Name and message required.", err.Error())

	_, err = NewFeedEntry("Anna", "  ")
	require.ErrorIs(t, err, ErrTextRequired)
}

func TestAchievement(t *testing.T) {
	e := Achievement("Rose", Weekly)
	assert.Equal(t, "Rose", e.Author)
	assert.Equal(t, "Rose achieved their weekly goal! 🎉", e.Text)
	assert.Equal(t, model.FeedKindAchievement, e.Kind)

	anon := Achievement("", Daily)
	assert.Equal(t, model.AnonymousName, anon.Author)
}

func TestPeriodTitle(t *testing.T) {
	assert.Equal(t, "Daily", Daily.Title())
	assert.Equal(t, "Monthly", Monthly.Title())
}

func TestRejectionError(t *testing.T) {
	err := reject(OpSetGoals, ErrGoalOrder, "daily goal (%d) cannot exceed weekly goal (%d)", 5, 4)
	assert.Equal(t, "daily goal (5) cannot exceed weekly goal (4)", err.Error())
	assert.True(t, errors.Is(err, ErrGoalOrder))

	bare := reject(OpLogTime, ErrZeroMinutes, "")
	assert.Equal(t, ErrZeroMinutes.Error(), bare.Error())
}
