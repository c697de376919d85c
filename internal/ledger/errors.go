package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrZeroMinutes     = errors.New("minutes must be a non-zero integer")
	ErrNegativePlayed  = errors.New("played minutes cannot be negative")
	ErrPlayedOrder     = errors.New("played minutes must satisfy daily <= weekly <= monthly")
	ErrNonPositiveGoal = errors.New("goals must be positive")
	ErrGoalOrder       = errors.New("goals must satisfy daily <= weekly <= monthly")
	ErrUnknownScope    = errors.New("invalid metric type")
	ErrInvalidTarget   = errors.New("target must be a positive integer")
	ErrZeroAmount      = errors.New("increment must be a non-zero integer")
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title is too long")
	ErrAuthorRequired  = errors.New("name is required")
	ErrAuthorTooLong   = errors.New("name is too long")
	ErrTextRequired    = errors.New("message is required")
	ErrTextTooLong     = errors.New("message is too long")
	ErrNegativeScore   = errors.New("score cannot be negative")
)

// Operation names carried by RejectionError.
const (
	OpLogTime     = "log_time"
	OpReset       = "reset_metric"
	OpSetPlayed   = "set_played"
	OpSetGoals    = "set_goals"
	OpGoalCreate  = "create_goal"
	OpGoalUpdate  = "update_goal"
	OpFeedPost    = "post_feed"
	OpRecordScore = "record_score"
)

// RejectionError reports invalid input to a ledger operation. The state passed
// to the operation is returned unchanged alongside it.
type RejectionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *RejectionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Err.Error()
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(op string, err error, format string, args ...any) error {
	reason := ""
	if format != "" {
		reason = fmt.Sprintf(format, args...)
	}
	return &RejectionError{Op: op, Reason: reason, Err: err}
}

// IsRejection reports whether err is (or wraps) a ledger rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// RejectionOp returns the operation of a wrapped rejection, or "" if err is not one.
func RejectionOp(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Op
	}
	return ""
}
