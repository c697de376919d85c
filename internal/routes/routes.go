package routes

import (
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/assets"
	"github.com/joshuanoeldeke/RespectCircle/internal/app"
	"github.com/joshuanoeldeke/RespectCircle/internal/handler"
	"github.com/joshuanoeldeke/RespectCircle/internal/middleware"
	"golang.org/x/time/rate"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.PageService, app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	account := handler.NewAccountHandler(app.AuthService, app.UserService)
	profile := handler.NewProfileHandler(app.ProfileService, app.UserService)
	dashboard := handler.NewDashboardHandler(app.MetricsService, app.GoalService, app.FeedService, app.DemoService, app.ExportService)
	metrics := handler.NewMetricsHandler(app.MetricsService)
	goal := handler.NewGoalHandler(app.GoalService)
	feed := handler.NewFeedHandler(app.FeedService)
	demo := handler.NewDemoHandler(app.DemoService)
	export := handler.NewExportHandler(app.ExportService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Static files
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assets.AssetsFS))))

	// Operations
	mux.HandleFunc("GET /healthz", home.Health)
	mux.Handle("GET /metrics", middleware.BasicAuth(app.Cfg.MetricsUser, app.Cfg.MetricsPass, app.Telemetry.Handler()))

	// Home & content
	mux.HandleFunc("GET /{$}", home.HomePage)
	mux.HandleFunc("GET /pages/{slug}", home.ContentPage)

	// Auth - Authentication flow (rate limited)
	authLimiter := middleware.RateLimitAuth(app.Telemetry, app.Cfg.TrustedProxies...)
	app.OnClose(authLimiter.Stop)
	authLimit := authLimiter.LimitFunc

	// Auth Pages
	mux.HandleFunc("GET /auth", middleware.RequireGuest(auth.AuthPage))
	mux.HandleFunc("GET /auth/signup", middleware.RequireGuest(auth.SignupPage))
	mux.HandleFunc("GET /auth/magic", middleware.RequireGuest(auth.MagicLinkPage))
	mux.HandleFunc("GET /auth/forgot-password", middleware.RequireGuest(auth.ForgotPasswordPage))
	mux.HandleFunc("GET /auth/onboarding", middleware.RequireAuth(auth.OnboardingPage))

	// OAuth
	mux.HandleFunc("GET /auth/google", authLimit(middleware.RequireGuest(auth.GoogleAuth)))
	mux.HandleFunc("GET /auth/google/callback", authLimit(auth.GoogleCallback))

	// Token Verifications
	mux.HandleFunc("GET /auth/magic-link/{token}", auth.VerifyMagicLink)
	mux.HandleFunc("GET /auth/forgot-password/{token}", auth.VerifyForgotPassword)

	// Auth Actions
	mux.HandleFunc("POST /auth/password", authLimit(middleware.RequireGuest(auth.PasswordAuth)))
	mux.HandleFunc("POST /auth/signup", authLimit(middleware.RequireGuest(auth.Signup)))
	mux.HandleFunc("POST /auth/magic-link", authLimit(middleware.RequireGuest(auth.SendMagicLink)))
	mux.HandleFunc("POST /auth/forgot-password", authLimit(middleware.RequireGuest(auth.ForgotPassword)))
	mux.HandleFunc("POST /auth/onboarding", middleware.RequireAuth(auth.CompleteOnboarding))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	mux.HandleFunc("GET /app/dashboard", middleware.RequireAuth(dashboard.DashboardPage))
	mux.HandleFunc("GET /app/settings", middleware.RequireAuth(profile.SettingsPage))
	mux.HandleFunc("PATCH /app/profile/name", middleware.RequireAuth(profile.UpdateName))
	mux.HandleFunc("POST /app/account/password", middleware.RequireAuth(account.ChangePassword))
	mux.HandleFunc("DELETE /app/account", middleware.RequireAuth(account.DeleteAccount))
	mux.HandleFunc("GET /app/export", middleware.RequireAuth(export.Download))
	mux.HandleFunc("POST /app/export/archive", middleware.RequireAPIAuth(export.Archive))

	// ============================================================================
	// JSON API (/api/*)
	// ============================================================================

	// Metrics
	mux.HandleFunc("GET /api/metrics", middleware.RequireAPIAuth(metrics.Get))
	mux.HandleFunc("POST /api/log_time", middleware.RequireAPIAuth(metrics.LogTime))
	mux.HandleFunc("POST /api/reset_metric", middleware.RequireAPIAuth(metrics.Reset))
	mux.HandleFunc("POST /api/set_played", middleware.RequireAPIAuth(metrics.SetPlayed))
	mux.HandleFunc("POST /api/set_goals", middleware.RequireAPIAuth(metrics.SetGoals))
	mux.HandleFunc("POST /api/high_score", middleware.RequireAPIAuth(metrics.HighScore))

	// Goals
	mux.HandleFunc("GET /api/goals", middleware.RequireAPIAuth(goal.List))
	mux.HandleFunc("POST /api/goals", middleware.RequireAPIAuth(goal.Create))
	mux.HandleFunc("POST /api/goals/{id}/progress", middleware.RequireAPIAuth(goal.Progress))
	mux.HandleFunc("POST /api/goals/update/{id}", middleware.RequireAPIAuth(goal.Progress))
	mux.HandleFunc("POST /api/goals/{id}/reset", middleware.RequireAPIAuth(goal.Reset))
	mux.HandleFunc("DELETE /api/goals/{id}", middleware.RequireAPIAuth(goal.Delete))

	// Feed is shared by everyone; posting does not need an account
	mux.HandleFunc("GET /api/feed", feed.List)
	mux.HandleFunc("POST /api/feed", feed.Post)

	// Demo
	mux.HandleFunc("POST /api/demo/reset", authLimit(middleware.RequireAPIAuth(demo.Reset)))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", home.NotFoundPage)

	limiter := middleware.NewRateLimiter(rate.Limit(app.Cfg.RateLimitRPS), app.Cfg.RateLimitBurst, app.Telemetry, app.Cfg.TrustedProxies...)
	app.OnClose(limiter.Stop)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.NonceMiddleware, // must be before SecurityHeaders
		middleware.SecurityHeaders(app.Cfg.IsProduction()),
		middleware.Config(app.Cfg),
		middleware.CSRFProtection,
		middleware.AuthMiddleware(app.AuthService, app.UserService, app.ProfileService),
		middleware.WithURLPath,
		limiter.Limit,
		app.Telemetry.Monitor, // last, so r.Pattern is set when it records
	)
}
