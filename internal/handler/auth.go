package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joshuanoeldeke/RespectCircle/internal/config"
	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/components/toast"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/pages"
	"github.com/joshuanoeldeke/RespectCircle/internal/validation"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type AuthHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
	userInfoURL       string
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{
		authService: authService,
		userInfoURL: googleUserInfoURL,
	}
	if cfg.GoogleClientID != "" {
		h.googleOAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

// validationMessage returns the user-facing text for input errors.
func validationMessage(err error) (string, bool) {
	for _, known := range []error{
		validation.ErrEmailRequired, validation.ErrEmailTooLong, validation.ErrEmailFormat,
		validation.ErrNameRequired, validation.ErrNameTooLong,
		validation.ErrPasswordTooShort, validation.ErrPasswordTooLong, validation.ErrPasswordCommon,
	} {
		if errors.Is(err, known) {
			return known.Error(), true
		}
	}
	if errors.Is(err, service.ErrInvalidEmail) {
		return "Please provide a valid email address", true
	}
	return "", false
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, data pages.AuthData) {
	data.GoogleEnabled = h.googleOAuthConfig != nil
	ui.Render(w, r, pages.Auth(data))
}

func (h *AuthHandler) AuthPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pages.AuthData{Mode: "password"})
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pages.AuthData{Mode: "signup"})
}

func (h *AuthHandler) MagicLinkPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pages.AuthData{Mode: "magic"})
}

func (h *AuthHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pages.AuthData{Mode: "forgot"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) PasswordAuth(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	data := pages.AuthData{Mode: "password", Email: email}

	if email == "" || password == "" {
		data.Error = "Email and password are required"
		h.render(w, r, data)
		return
	}

	user, err := h.authService.Login(email, password)
	if err != nil {
		slog.Warn("password login failed", "error", err, "email", email)
		switch {
		case errors.Is(err, service.ErrPasswordless):
			data.Error = err.Error()
		case errors.Is(err, service.ErrEmailNotVerified):
			data.Error = "Please verify your email first. Request a sign-in link to receive a new one."
		case errors.Is(err, service.ErrInvalidCredentials):
			data.Error = "Invalid email or password"
		default:
			data.Error = "An error occurred. Please try again."
		}
		h.render(w, r, data)
		return
	}

	h.signIn(w, r, user, "password")
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	data := pages.AuthData{Mode: "signup", Email: email}

	_, err := h.authService.Signup(r.Context(), email, r.FormValue("password"), r.FormValue("name"))
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			data.Error = msg
		} else if errors.Is(err, service.ErrEmailAlreadyExists) {
			data.Error = "An account with this email already exists"
		} else {
			slog.Error("signup failed", "error", err, "email", email)
			data.Error = "An error occurred. Please try again."
		}
		h.render(w, r, data)
		return
	}

	ui.Render(w, r, pages.CheckEmail(email, "verify"))
}

func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))

	err := validation.ValidateEmail(email)
	if err != nil {
		h.render(w, r, pages.AuthData{Mode: "magic", Email: email, Error: "Please provide a valid email address"})
		return
	}

	err = h.authService.SendMagicLink(r.Context(), email)
	if err != nil {
		// Don't reveal specific errors to prevent email enumeration
		slog.Warn("magic link send failed", "error", err, "email", email)
	}

	if r.URL.Query().Get("resend") == "true" {
		ui.Toast(w, r, toast.Toast(toast.Props{
			Title:       "Magic link sent",
			Description: "Check your email for a new magic link",
			Variant:     toast.VariantSuccess,
			Icon:        true,
			Dismissible: true,
		}))
		return
	}

	ui.Render(w, r, pages.CheckEmail(email, "sign-in"))
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.VerifyMagicLink(r.PathValue("token"))
	if err != nil {
		slog.Warn("magic link verification failed", "error", err)
		h.render(w, r, pages.AuthData{Mode: "magic", Error: "Invalid or expired magic link. Please try again."})
		return
	}

	h.signIn(w, r, user, "magic link")
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))

	err := validation.ValidateEmail(email)
	if err != nil {
		h.render(w, r, pages.AuthData{Mode: "forgot", Email: email, Error: "Please provide a valid email address"})
		return
	}

	err = h.authService.SendForgotPasswordLink(r.Context(), email)
	if err != nil {
		slog.Warn("forgot password link send failed", "error", err, "email", email)
	}

	// Same answer for every address so accounts cannot be enumerated
	ui.Render(w, r, pages.CheckEmail(email, "reset"))
}

// VerifyForgotPassword signs the user in and drops the forgotten password.
// A new one can be set from the settings page.
func (h *AuthHandler) VerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.VerifyMagicLink(r.PathValue("token"))
	if err != nil {
		slog.Warn("forgot password verification failed", "error", err)
		h.render(w, r, pages.AuthData{Mode: "forgot", Error: "Invalid or expired link. Please try again."})
		return
	}

	if user.HasPassword() {
		err = h.authService.RemovePassword(user.ID)
		if err != nil {
			slog.Error("failed to remove password during forgot password flow", "error", err, "user_id", user.ID)
			h.render(w, r, pages.AuthData{Mode: "forgot", Error: "An error occurred. Please try again."})
			return
		}
	}

	err = h.authService.SignIn(w, user)
	if err != nil {
		slog.Error("failed to sign in", "error", err, "user_id", user.ID)
		h.render(w, r, pages.AuthData{Mode: "forgot", Error: "An error occurred. Please try again."})
		return
	}

	http.Redirect(w, r, "/app/settings", http.StatusSeeOther)
}

func (h *AuthHandler) OnboardingPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Onboarding(""))
}

func (h *AuthHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.authService.CompleteOnboarding(r.Context(), user.ID, r.FormValue("name"))
	if err != nil {
		msg, ok := validationMessage(err)
		if !ok {
			slog.Error("onboarding failed", "error", err, "user_id", user.ID)
			msg = "An error occurred. Please try again."
		}
		ui.Render(w, r, pages.Onboarding(msg))
		return
	}

	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

// GoogleAuth redirects user to Google OAuth consent screen
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig == nil {
		http.NotFound(w, r)
		return
	}

	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, h.googleOAuthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	failed := pages.AuthData{Mode: "password", Error: "OAuth authentication failed. Please try again."}
	if h.googleOAuthConfig == nil {
		http.NotFound(w, r)
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("google oauth state validation failed", "error", err)
		h.render(w, r, failed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		h.render(w, r, failed)
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("google oauth token exchange failed", "error", err)
		h.render(w, r, failed)
		return
	}

	resp, err := h.googleOAuthConfig.Client(r.Context(), token).Get(h.userInfoURL)
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		h.render(w, r, failed)
		return
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var userInfo struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil || !userInfo.VerifiedEmail {
		slog.Error("unusable google user info", "error", err, "verified", userInfo.VerifiedEmail)
		h.render(w, r, failed)
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), userInfo.Email, "google")
	if err != nil {
		slog.Error("oauth authentication failed", "error", err, "email", userInfo.Email)
		h.render(w, r, failed)
		return
	}

	h.signIn(w, r, user, "google")
}

// signIn sets the auth cookie and sends the user on, through onboarding if
// they have not picked a name yet.
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, user *model.User, method string) {
	err := h.authService.SignIn(w, user)
	if err != nil {
		slog.Error("failed to sign in", "error", err, "user_id", user.ID)
		h.render(w, r, pages.AuthData{Mode: "password", Error: "An error occurred. Please try again."})
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "method", method)

	needsOnboarding, err := h.authService.NeedsOnboarding(user.ID)
	if err != nil {
		slog.Warn("failed to check onboarding status", "error", err, "user_id", user.ID)
	}

	if needsOnboarding {
		http.Redirect(w, r, "/auth/onboarding", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

// generateOAuthState creates cryptographically secure random state token for OAuth CSRF protection
func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
