package handler

import (
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
)

type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
	}
}

func sortParam(r *http.Request) string {
	switch sortBy := r.URL.Query().Get("sort"); sortBy {
	case repository.GoalSortProgress, repository.GoalSortTitle:
		return sortBy
	}
	return repository.GoalSortRecent
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goals, err := h.goalService.Goals(user.ID, sortParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"goals": goals})
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	p, err := readParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	title, err := p.str("title")
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Missing target reads as zero and is rejected as not positive.
	target, _, err := p.int("target")
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.Create(user.ID, title, target)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "goal": goal})
}

func (h *GoalHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	p, err := readParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	increment, ok, err := p.int("increment")
	if err == nil && !ok {
		increment, _, err = p.int("amount")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.AddProgress(r.Context(), user.ID, r.PathValue("id"), increment)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"progress": goal.Progress, "goal": goal})
}

func (h *GoalHandler) Reset(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goal, err := h.goalService.Reset(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"progress": goal.Progress, "goal": goal})
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.goalService.Delete(user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, nil)
}
