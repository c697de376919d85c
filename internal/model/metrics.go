package model

import "time"

// Default thresholds for a freshly created metrics row, in minutes.
const (
	DefaultDailyGoal   = 60
	DefaultWeeklyGoal  = 300
	DefaultMonthlyGoal = 1200
)

// Metrics holds a user's play counters and the goals they are measured against.
// One row exists per user.
type Metrics struct {
	ID            string    `db:"id" json:"-"`
	UserID        string    `db:"user_id" json:"-"`
	DailyGoal     int       `db:"daily_goal" json:"daily_goal"`
	WeeklyGoal    int       `db:"weekly_goal" json:"weekly_goal"`
	MonthlyGoal   int       `db:"monthly_goal" json:"monthly_goal"`
	DailyPlayed   int       `db:"daily_played" json:"daily_played"`
	WeeklyPlayed  int       `db:"weekly_played" json:"weekly_played"`
	MonthlyPlayed int       `db:"monthly_played" json:"monthly_played"`
	HighScore     int       `db:"high_score" json:"high_score"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func NewMetrics(id, userID string, now time.Time) *Metrics {
	return &Metrics{
		ID:          id,
		UserID:      userID,
		DailyGoal:   DefaultDailyGoal,
		WeeklyGoal:  DefaultWeeklyGoal,
		MonthlyGoal: DefaultMonthlyGoal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Percent returns played/goal for a period as a whole percentage capped at 100.
func Percent(played, goal int) int {
	if goal <= 0 {
		return 0
	}
	p := played * 100 / goal
	if p > 100 {
		return 100
	}
	return p
}
