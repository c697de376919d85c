package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGoal(t *testing.T, h *GoalHandler, as *session, body string) map[string]any {
	t.Helper()

	w := serve(h.Create, request{method: http.MethodPost, target: "/api/goals", body: body, as: as})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	return resp["goal"].(map[string]any)
}

func TestGoalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := NewGoalHandler(env.goalSvc)
	ada := env.signup(t, "ada@example.com", "Ada")

	goal := createGoal(t, h, &ada, `{"title": "  Practice scales  ", "target": 10}`)
	id := goal["id"].(string)
	assert.Equal(t, "Practice scales", goal["title"])
	assert.EqualValues(t, 10, goal["target"])
	assert.EqualValues(t, 0, goal["progress"])

	w := serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": 4}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode(t, w)["progress"])

	// The legacy update path takes "amount"
	w = serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/update/" + id,
		body: `{"amount": 3}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, decode(t, w)["progress"])

	w = serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": 50}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 10, decode(t, w)["progress"], "progress is capped at the target")

	w = serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": -25}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["progress"], "progress never drops below zero")

	w = serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": 0}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "increment must be a non-zero integer", decode(t, w)["error"])

	w = serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": 6}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(h.Reset, request{method: http.MethodPost, target: "/api/goals/" + id + "/reset", as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["progress"])

	w = serve(h.Delete, request{method: http.MethodDelete, target: "/api/goals/" + id, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": 1}`, as: &ada, path: map[string]string{"id": id}})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "goal not found", decode(t, w)["error"])

	w = serve(h.Delete, request{method: http.MethodDelete, target: "/api/goals/" + id, as: &ada, path: map[string]string{"id": id}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGoalsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	h := NewGoalHandler(env.goalSvc)
	ada := env.signup(t, "ada@example.com", "Ada")
	bob := env.signup(t, "bob@example.com", "Bob")

	goal := createGoal(t, h, &ada, `{"title": "Read", "target": 5}`)
	id := goal["id"].(string)

	w := serve(h.Progress, request{method: http.MethodPost, target: "/api/goals/" + id + "/progress",
		body: `{"increment": 1}`, as: &bob, path: map[string]string{"id": id}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(h.Delete, request{method: http.MethodDelete, target: "/api/goals/" + id, as: &bob, path: map[string]string{"id": id}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(h.List, request{method: http.MethodGet, target: "/api/goals", as: &bob})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["goals"])

	w = serve(h.List, request{method: http.MethodGet, target: "/api/goals", as: &ada})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["goals"], 1)
}

func TestListGoalsSorted(t *testing.T) {
	env := newTestEnv(t)
	h := NewGoalHandler(env.goalSvc)
	ada := env.signup(t, "ada@example.com", "Ada")

	createGoal(t, h, &ada, `{"title": "Cello", "target": 10}`)
	createGoal(t, h, &ada, `{"title": "Ard", "target": 10}`)

	w := serve(h.List, request{method: http.MethodGet, target: "/api/goals?sort=title", as: &ada})
	require.Equal(t, http.StatusOK, w.Code)

	goals := decode(t, w)["goals"].([]any)
	require.Len(t, goals, 2)
	assert.Equal(t, "Ard", goals[0].(map[string]any)["title"])
	assert.Equal(t, "Cello", goals[1].(map[string]any)["title"])
}

func TestCreateGoalRejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  string
	}{
		{name: "missing title", body: `{"target": 5}`, err: "title is required"},
		{name: "blank title", body: `{"title": "   ", "target": 5}`, err: "title is required"},
		{name: "missing target", body: `{"title": "Run"}`, err: "target must be a positive integer"},
		{name: "negative target", body: `{"title": "Run", "target": -3}`, err: "target must be a positive integer"},
		{name: "fractional target", body: `{"title": "Run", "target": 2.5}`, err: "target must be an integer"},
		{name: "numeric title", body: `{"title": 42, "target": 5}`, err: "title must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			h := NewGoalHandler(env.goalSvc)
			ada := env.signup(t, "ada@example.com", "Ada")

			w := serve(h.Create, request{method: http.MethodPost, target: "/api/goals", body: tt.body, as: &ada})
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.err, decode(t, w)["error"])

			count, err := env.goalSvc.CountUserGoals(ada.user.ID)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}
