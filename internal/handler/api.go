package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
)

const maxBodyBytes = 64 << 10

// inputError is a malformed request parameter, reported as 400.
type inputError struct {
	msg string
}

func (e *inputError) Error() string {
	return e.msg
}

func badInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// params holds request parameters from either a JSON object or a form body.
// JSON numbers are kept as json.Number so integers can be checked exactly.
type params map[string]any

func readParams(w http.ResponseWriter, r *http.Request) (params, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()

		p := params{}
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			return params{}, nil
		}
		if tooLarge(err) {
			return nil, err
		}
		if err != nil {
			return nil, badInput("request body must be a JSON object")
		}
		return p, nil
	}

	err := r.ParseForm()
	if tooLarge(err) {
		return nil, err
	}
	if err != nil {
		return nil, badInput("invalid form body")
	}
	p := params{}
	for key, values := range r.Form {
		if len(values) > 0 {
			p[key] = values[0]
		}
	}
	return p, nil
}

func tooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes)
}

// str reads a text parameter. Absent and null values read as "". Numbers,
// booleans and other JSON types are rejected rather than stringified.
func (p params) str(key string) (string, error) {
	switch v := p[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", badInput("%s must be a string", key)
}

func writeOK(w http.ResponseWriter, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors to status codes. Anything unrecognised is
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var input *inputError
	var rejection *ledger.RejectionError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &input):
		writeErrorMessage(w, http.StatusBadRequest, input.Error())
	case errors.As(err, &rejection):
		writeErrorMessage(w, http.StatusBadRequest, rejection.Error())
	case errors.As(err, &tooLarge):
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, repository.ErrGoalNotFound):
		writeErrorMessage(w, http.StatusNotFound, "goal not found")
	case errors.Is(err, repository.ErrMetricsNotFound):
		writeErrorMessage(w, http.StatusNotFound, "metrics not found")
	case errors.Is(err, service.ErrDemoDisabled):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		attrs := []any{"error", err, "method", r.Method, "path", r.URL.Path}
		if user := ctxkeys.User(r.Context()); user != nil {
			attrs = append(attrs, "user_id", user.ID)
		}
		slog.Error("request failed", attrs...)
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// metricsJSON flattens the counters into a response body.
func metricsJSON(m *model.Metrics) map[string]any {
	return map[string]any{
		"daily_goal":     m.DailyGoal,
		"weekly_goal":    m.WeeklyGoal,
		"monthly_goal":   m.MonthlyGoal,
		"daily_played":   m.DailyPlayed,
		"weekly_played":  m.WeeklyPlayed,
		"monthly_played": m.MonthlyPlayed,
		"high_score":     m.HighScore,
		"updated_at":     m.UpdatedAt,
	}
}

func feedJSON(e *model.FeedEntry) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"by":         e.Author,
		"text":       e.Text,
		"kind":       e.Kind,
		"time":       e.DisplayTime(),
		"created_at": e.CreatedAt,
	}
}
