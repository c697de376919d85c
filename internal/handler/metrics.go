package handler

import (
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
)

type MetricsHandler struct {
	metricsService *service.MetricsService
}

func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
	}
}

func actor(r *http.Request) service.Actor {
	return service.Actor{
		UserID: ctxkeys.User(r.Context()).ID,
		Name:   ctxkeys.AuthorName(r.Context()),
	}
}

func (h *MetricsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	m, err := h.metricsService.Metrics(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, metricsJSON(m))
}

func (h *MetricsHandler) LogTime(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A missing value is zero, which the ledger rejects.
	minutes, _, err := p.int("minutes")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.metricsService.LogTime(r.Context(), actor(r), minutes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	achieved := result.Achieved
	if achieved == nil {
		achieved = []ledger.Period{}
	}

	body := metricsJSON(result.Metrics)
	body["achieved"] = achieved
	writeOK(w, body)
}

func (h *MetricsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	scope, err := p.str("type")
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.metricsService.Reset(r.Context(), ctxkeys.User(r.Context()).ID, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, metricsJSON(m))
}

func (h *MetricsHandler) SetPlayed(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(w, r, "daily_played", "weekly_played", "monthly_played")
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.metricsService.SetPlayed(r.Context(), ctxkeys.User(r.Context()).ID, values)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, metricsJSON(m))
}

func (h *MetricsHandler) SetGoals(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(w, r, "daily_goal", "weekly_goal", "monthly_goal")
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.metricsService.SetGoals(r.Context(), ctxkeys.User(r.Context()).ID, values)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, metricsJSON(m))
}

func (h *MetricsHandler) HighScore(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	score, ok, err := p.int("score")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "score is required")
		return
	}

	m, isNew, err := h.metricsService.RecordScore(r.Context(), ctxkeys.User(r.Context()).ID, score)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := metricsJSON(m)
	body["new_high_score"] = isNew
	writeOK(w, body)
}

// readValues reads a daily/weekly/monthly triple. Keys left out of the
// request keep their stored value.
func readValues(w http.ResponseWriter, r *http.Request, daily, weekly, monthly string) (ledger.Values, error) {
	p, err := readParams(w, r)
	if err != nil {
		return ledger.Values{}, err
	}

	var v ledger.Values
	v.Daily, err = p.optionalInt(daily)
	if err != nil {
		return v, err
	}
	v.Weekly, err = p.optionalInt(weekly)
	if err != nil {
		return v, err
	}
	v.Monthly, err = p.optionalInt(monthly)
	return v, err
}
