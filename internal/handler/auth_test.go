package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/config"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formBody(values map[string]string) string {
	v := url.Values{}
	for key, value := range values {
		v.Set(key, value)
	}
	return v.Encode()
}

func authCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	return nil
}

func TestSignupAndPasswordLogin(t *testing.T) {
	env := newTestEnv(t)
	h := NewAuthHandler(env.authSvc, &config.Config{})

	credentials := formBody(map[string]string{"email": "Ada@Example.com", "password": "correct-horse-battery"})

	w := serve(h.Signup, request{method: http.MethodPost, target: "/auth/signup", form: true,
		body: formBody(map[string]string{"email": "Ada@Example.com", "password": "correct-horse-battery", "name": "Ada"})})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "We sent a verification link")

	w = serve(h.Signup, request{method: http.MethodPost, target: "/auth/signup", form: true,
		body: formBody(map[string]string{"email": "ada@example.com", "password": "correct-horse-battery", "name": "Ada"})})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "An account with this email already exists")

	// Unverified accounts cannot log in yet
	w = serve(h.PasswordAuth, request{method: http.MethodPost, target: "/auth/password", form: true, body: credentials})
	assert.Contains(t, w.Body.String(), "Please verify your email first")
	assert.Nil(t, authCookie(w))

	user, err := env.users.ByEmail("ada@example.com")
	require.NoError(t, err)
	now := time.Now()
	user.EmailVerifiedAt = &now
	require.NoError(t, env.users.Update(user))

	w = serve(h.PasswordAuth, request{method: http.MethodPost, target: "/auth/password", form: true,
		body: formBody(map[string]string{"email": "ada@example.com", "password": "wrong-password-123"})})
	assert.Contains(t, w.Body.String(), "Invalid email or password")
	assert.Nil(t, authCookie(w))

	w = serve(h.PasswordAuth, request{method: http.MethodPost, target: "/auth/password", form: true, body: credentials})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/app/dashboard", w.Header().Get("Location"))

	cookie := authCookie(w)
	require.NotNil(t, cookie)
	claims, err := env.authSvc.VerifyJWT(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["user_id"])
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	h := NewAuthHandler(env.authSvc, &config.Config{})

	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"short password", map[string]string{"email": "a@example.com", "password": "short", "name": "A"}, "password must be at least 12 characters"},
		{"bad email", map[string]string{"email": "not-an-email", "password": "correct-horse-battery", "name": "A"}, "Please provide a valid email address"},
		{"missing name", map[string]string{"email": "a@example.com", "password": "correct-horse-battery"}, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.Signup, request{method: http.MethodPost, target: "/auth/signup", form: true, body: formBody(tt.fields)})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestMagicLinkSignsInAndOnboards(t *testing.T) {
	env := newTestEnv(t)
	h := NewAuthHandler(env.authSvc, &config.Config{})

	w := serve(h.SendMagicLink, request{method: http.MethodPost, target: "/auth/magic-link", form: true,
		body: formBody(map[string]string{"email": "new@example.com"})})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "We sent a sign-in link")

	user, err := env.users.ByEmail("new@example.com")
	require.NoError(t, err)
	assert.False(t, user.HasPassword())

	require.NoError(t, env.tokens.Create(&model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeMagicLink,
		Token:     "known-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	w = serve(h.VerifyMagicLink, request{method: http.MethodGet, target: "/auth/magic-link/known-token",
		path: map[string]string{"token": "known-token"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/onboarding", w.Header().Get("Location"))
	assert.NotNil(t, authCookie(w))

	verified, err := env.users.ByID(user.ID)
	require.NoError(t, err)
	assert.NotNil(t, verified.EmailVerifiedAt)

	// Tokens are single use
	w = serve(h.VerifyMagicLink, request{method: http.MethodGet, target: "/auth/magic-link/known-token",
		path: map[string]string{"token": "known-token"}})
	assert.Contains(t, w.Body.String(), "Invalid or expired magic link")
	assert.Nil(t, authCookie(w))

	s := session{user: verified}
	s.profile, err = env.profiles.ByUserID(user.ID)
	require.NoError(t, err)

	w = serve(h.CompleteOnboarding, request{method: http.MethodPost, target: "/auth/onboarding", form: true,
		body: "name=Newbie", as: &s})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/app/dashboard", w.Header().Get("Location"))

	needs, err := env.authSvc.NeedsOnboarding(user.ID)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestForgotPasswordRemovesPassword(t *testing.T) {
	env := newTestEnv(t)
	h := NewAuthHandler(env.authSvc, &config.Config{})
	ada := env.signup(t, "ada@example.com", "Ada")

	w := serve(h.ForgotPassword, request{method: http.MethodPost, target: "/auth/forgot-password", form: true,
		body: formBody(map[string]string{"email": "nobody@example.com"})})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "If an account exists")

	require.NoError(t, env.tokens.Create(&model.Token{
		UserID:    ada.user.ID,
		Type:      model.TokenTypeMagicLink,
		Token:     "reset-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	w = serve(h.VerifyForgotPassword, request{method: http.MethodGet, target: "/auth/forgot-password/reset-token",
		path: map[string]string{"token": "reset-token"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/app/settings", w.Header().Get("Location"))

	user, err := env.users.ByID(ada.user.ID)
	require.NoError(t, err)
	assert.False(t, user.HasPassword())
}

func TestGoogleAuthDisabled(t *testing.T) {
	env := newTestEnv(t)
	h := NewAuthHandler(env.authSvc, &config.Config{})

	w := serve(h.GoogleAuth, request{method: http.MethodGet, target: "/auth/google"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateName(t *testing.T) {
	env := newTestEnv(t)
	h := NewProfileHandler(env.profileSvc, env.userSvc)
	ada := env.signup(t, "ada@example.com", "Ada")

	w := serve(h.UpdateName, request{method: http.MethodPatch, target: "/app/profile/name", form: true, body: "name=Ada+L", as: &ada})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Name updated successfully")
	assert.Contains(t, w.Body.String(), `hx-swap-oob="beforeend:#toast-container"`)

	profile, err := env.profileSvc.ByUserID(ada.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L", profile.Name)

	w = serve(h.UpdateName, request{method: http.MethodPatch, target: "/app/profile/name", form: true, body: "name=", as: &ada})
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestChangePasswordAndDelete(t *testing.T) {
	env := newTestEnv(t)
	h := NewAccountHandler(env.authSvc, env.userSvc)
	ada := env.signup(t, "ada@example.com", "Ada")

	w := serve(h.ChangePassword, request{method: http.MethodPost, target: "/app/account/password", form: true, as: &ada,
		body: formBody(map[string]string{"current_password": "not-my-password", "new_password": "another-long-password"})})
	assert.Contains(t, w.Body.String(), "Current password is incorrect")

	w = serve(h.ChangePassword, request{method: http.MethodPost, target: "/app/account/password", form: true, as: &ada,
		body:   formBody(map[string]string{"current_password": "correct-horse-battery", "new_password": "another-long-password"}),
		header: map[string]string{"HX-Request": "true"}})
	assert.Equal(t, "/app/settings", w.Header().Get("HX-Redirect"))

	_, err := env.authSvc.Login("ada@example.com", "another-long-password")
	require.NoError(t, err)

	w = serve(h.DeleteAccount, request{method: http.MethodDelete, target: "/app/account", as: &ada})
	require.Equal(t, http.StatusSeeOther, w.Code)

	_, err = env.users.ByID(ada.user.ID)
	assert.Error(t, err)
	_, err = env.metricsSvc.Metrics(ada.user.ID)
	assert.Error(t, err)
}
