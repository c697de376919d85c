// Package ledger holds the rules that keep a user's play counters coherent:
// applying logged minutes, resetting periods, bulk overwrites, goal progress
// and detection of goal crossings.
//
// Every function takes its state by value and returns the new state. Nothing
// here touches storage; callers persist the result in one transaction.
package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// Periods lists the tracked periods from shortest to longest.
var Periods = []Period{Daily, Weekly, Monthly}

// Title returns the capitalised period name ("Daily").
func (p Period) Title() string {
	return cases.Title(language.English).String(string(p))
}

// Scope selects which played counters a reset clears.
type Scope string

const (
	ScopeDaily   Scope = "daily"
	ScopeWeekly  Scope = "weekly"
	ScopeMonthly Scope = "monthly"
	ScopeAll     Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch scope := Scope(strings.ToLower(strings.TrimSpace(s))); scope {
	case ScopeDaily, ScopeWeekly, ScopeMonthly, ScopeAll:
		return scope, nil
	}
	return "", reject(OpReset, ErrUnknownScope, "invalid metric type %q: must be daily, weekly, monthly or all", s)
}

// Values is a partial update of the three period counters. Nil fields keep
// their current value.
type Values struct {
	Daily   *int
	Weekly  *int
	Monthly *int
}

const (
	MaxTitleLen  = 200
	MaxAuthorLen = 100
	MaxTextLen   = 500
)

// ApplyTimeLog adds minutes to every played counter. Negative minutes are
// subtracted with each counter floored at zero, after which the ordering
// daily <= weekly <= monthly is restored by raising the longer periods.
//
// The returned periods are those whose goal was crossed by this call, that is
// previous < goal <= new. A counter that already met its goal is not reported
// again.
func ApplyTimeLog(m model.Metrics, minutes int) (model.Metrics, []Period, error) {
	if minutes == 0 {
		return m, nil, reject(OpLogTime, ErrZeroMinutes, "")
	}

	next := m
	next.DailyPlayed = addFloored(m.DailyPlayed, minutes)
	next.WeeklyPlayed = addFloored(m.WeeklyPlayed, minutes)
	next.MonthlyPlayed = addFloored(m.MonthlyPlayed, minutes)

	next.WeeklyPlayed = max(next.WeeklyPlayed, next.DailyPlayed)
	next.MonthlyPlayed = max(next.MonthlyPlayed, next.WeeklyPlayed)

	return next, Crossed(m, next), nil
}

// Crossed returns the periods whose goal lies in (before, after] for the
// played counters of the two states. Goals are read from after.
func Crossed(before, after model.Metrics) []Period {
	var crossed []Period
	if crossedGoal(before.DailyPlayed, after.DailyPlayed, after.DailyGoal) {
		crossed = append(crossed, Daily)
	}
	if crossedGoal(before.WeeklyPlayed, after.WeeklyPlayed, after.WeeklyGoal) {
		crossed = append(crossed, Weekly)
	}
	if crossedGoal(before.MonthlyPlayed, after.MonthlyPlayed, after.MonthlyGoal) {
		crossed = append(crossed, Monthly)
	}
	return crossed
}

func crossedGoal(before, after, goal int) bool {
	return before < goal && goal <= after
}

func addFloored(v, delta int) int {
	v += delta
	if v < 0 {
		return 0
	}
	return v
}

// ResetMetric zeroes the played counter(s) selected by scope. Shorter periods
// are then clamped down to the longer ones, so resetting the month also clears
// the week and the day. The ordering invariant holds after every reset.
func ResetMetric(m model.Metrics, scope Scope) (model.Metrics, error) {
	next := m
	switch scope {
	case ScopeDaily:
		next.DailyPlayed = 0
	case ScopeWeekly:
		next.WeeklyPlayed = 0
	case ScopeMonthly:
		next.MonthlyPlayed = 0
	case ScopeAll:
		next.DailyPlayed, next.WeeklyPlayed, next.MonthlyPlayed = 0, 0, 0
	default:
		return m, reject(OpReset, ErrUnknownScope, "invalid metric type %q: must be daily, weekly, monthly or all", scope)
	}

	next.WeeklyPlayed = min(next.WeeklyPlayed, next.MonthlyPlayed)
	next.DailyPlayed = min(next.DailyPlayed, next.WeeklyPlayed)
	return next, nil
}

// SetPlayed overwrites the played counters. The proposed values are checked
// before anything is applied.
func SetPlayed(m model.Metrics, v Values) (model.Metrics, error) {
	daily := valueOr(v.Daily, m.DailyPlayed)
	weekly := valueOr(v.Weekly, m.WeeklyPlayed)
	monthly := valueOr(v.Monthly, m.MonthlyPlayed)

	err := checkPlayed(OpSetPlayed, daily, weekly, monthly)
	if err != nil {
		return m, err
	}

	next := m
	next.DailyPlayed, next.WeeklyPlayed, next.MonthlyPlayed = daily, weekly, monthly
	return next, nil
}

// SetGoals overwrites the goal thresholds. The proposed values are checked
// before anything is applied.
func SetGoals(m model.Metrics, v Values) (model.Metrics, error) {
	daily := valueOr(v.Daily, m.DailyGoal)
	weekly := valueOr(v.Weekly, m.WeeklyGoal)
	monthly := valueOr(v.Monthly, m.MonthlyGoal)

	err := checkGoals(OpSetGoals, daily, weekly, monthly)
	if err != nil {
		return m, err
	}

	next := m
	next.DailyGoal, next.WeeklyGoal, next.MonthlyGoal = daily, weekly, monthly
	return next, nil
}

// RecordScore keeps the highest score seen. It reports whether the score is a
// new high.
func RecordScore(m model.Metrics, score int) (model.Metrics, bool, error) {
	if score < 0 {
		return m, false, reject(OpRecordScore, ErrNegativeScore, "")
	}
	if score <= m.HighScore {
		return m, false, nil
	}
	next := m
	next.HighScore = score
	return next, true, nil
}

// Validate checks both ordering invariants on a complete metrics record.
func Validate(m model.Metrics) error {
	err := checkGoals(OpSetGoals, m.DailyGoal, m.WeeklyGoal, m.MonthlyGoal)
	if err != nil {
		return err
	}
	return checkPlayed(OpSetPlayed, m.DailyPlayed, m.WeeklyPlayed, m.MonthlyPlayed)
}

func checkPlayed(op string, daily, weekly, monthly int) error {
	if daily < 0 || weekly < 0 || monthly < 0 {
		return reject(op, ErrNegativePlayed, "")
	}
	if daily > weekly {
		return reject(op, ErrPlayedOrder, "daily played (%d) cannot exceed weekly played (%d)", daily, weekly)
	}
	if weekly > monthly {
		return reject(op, ErrPlayedOrder, "weekly played (%d) cannot exceed monthly played (%d)", weekly, monthly)
	}
	return nil
}

func checkGoals(op string, daily, weekly, monthly int) error {
	if daily <= 0 || weekly <= 0 || monthly <= 0 {
		return reject(op, ErrNonPositiveGoal, "")
	}
	if daily > weekly {
		return reject(op, ErrGoalOrder, "daily goal (%d) cannot exceed weekly goal (%d)", daily, weekly)
	}
	if weekly > monthly {
		return reject(op, ErrGoalOrder, "weekly goal (%d) cannot exceed monthly goal (%d)", weekly, monthly)
	}
	return nil
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// NewGoal validates a goal definition. Identity and timestamps are left to
// the caller.
func NewGoal(title string, target int) (model.Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Goal{}, reject(OpGoalCreate, ErrTitleRequired, "")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return model.Goal{}, reject(OpGoalCreate, ErrTitleTooLong, "title is too long (max %d characters)", MaxTitleLen)
	}
	if target <= 0 {
		return model.Goal{}, reject(OpGoalCreate, ErrInvalidTarget, "")
	}
	return model.Goal{Title: title, Target: target}, nil
}

// ApplyGoalProgress moves progress by amount, clamped to [0, target].
// Negative amounts are allowed and never take progress below zero.
func ApplyGoalProgress(g model.Goal, amount int) (model.Goal, error) {
	if amount == 0 {
		return g, reject(OpGoalUpdate, ErrZeroAmount, "")
	}
	if g.Target <= 0 {
		return g, reject(OpGoalUpdate, ErrInvalidTarget, "")
	}
	next := g
	next.Progress = min(max(g.Progress+amount, 0), g.Target)
	return next, nil
}

// ResetGoal sets progress back to zero.
func ResetGoal(g model.Goal) model.Goal {
	g.Progress = 0
	return g
}

// NewFeedEntry validates a user-authored encouragement post.
func NewFeedEntry(author, text string) (model.FeedEntry, error) {
	author = strings.TrimSpace(author)
	text = strings.TrimSpace(text)
	switch {
	case author == "":
		return model.FeedEntry{}, reject(OpFeedPost, ErrAuthorRequired, "Name and message required.")
	case text == "":
		return model.FeedEntry{}, reject(OpFeedPost, ErrTextRequired, "Name and message required.")
	case utf8.RuneCountInString(author) > MaxAuthorLen:
		return model.FeedEntry{}, reject(OpFeedPost, ErrAuthorTooLong, "name is too long (max %d characters)", MaxAuthorLen)
	case utf8.RuneCountInString(text) > MaxTextLen:
		return model.FeedEntry{}, reject(OpFeedPost, ErrTextTooLong, "message is too long (max %d characters)", MaxTextLen)
	}
	return model.FeedEntry{Author: author, Text: text, Kind: model.FeedKindMessage}, nil
}

// Achievement builds the feed post announcing that author reached a period goal.
func Achievement(author string, p Period) model.FeedEntry {
	author = strings.TrimSpace(author)
	if author == "" {
		author = model.AnonymousName
	}
	return model.FeedEntry{
		Author: author,
		Text:   author + " achieved their " + string(p) + " goal! 🎉",
		Kind:   model.FeedKindAchievement,
	}
}
