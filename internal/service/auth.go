package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordless       = errors.New("this account uses passwordless login, please use the magic link option")
	ErrInvalidLink        = errors.New("invalid or expired link")
)

type AuthService struct {
	db                   *sqlx.DB
	userRepository       repository.UserRepository
	profileRepository    repository.ProfileRepository
	tokenRepository      repository.TokenRepository
	metricsService       *MetricsService
	emailService         *EmailService
	jwtSecret            string
	isProduction         bool
	jwtExpiry            time.Duration
	tokenMagicLinkExpiry time.Duration
}

func NewAuthService(
	db *sqlx.DB,
	userRepository repository.UserRepository,
	profileRepository repository.ProfileRepository,
	tokenRepository repository.TokenRepository,
	metricsService *MetricsService,
	emailService *EmailService,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	tokenMagicLinkExpiry time.Duration,
) *AuthService {
	return &AuthService{
		db:                   db,
		userRepository:       userRepository,
		profileRepository:    profileRepository,
		tokenRepository:      tokenRepository,
		metricsService:       metricsService,
		emailService:         emailService,
		jwtSecret:            jwtSecret,
		isProduction:         isProduction,
		jwtExpiry:            jwtExpiry,
		tokenMagicLinkExpiry: tokenMagicLinkExpiry,
	}
}

func (s *AuthService) Login(email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordless
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
	}

	if user.EmailVerifiedAt == nil {
		return nil, fmt.Errorf("email not verified: %w", ErrEmailNotVerified)
	}

	return user, nil
}

// Signup creates a password account and sends a magic link that verifies
// the address. The user can log in with the password once verified.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*model.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, err
	}
	err = validation.ValidateName(name)
	if err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hash,
		CreatedAt:    time.Now(),
	}

	err = s.createAccount(ctx, user, name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	slog.Info("new password user created", "email", email, "user_id", user.ID)

	err = s.sendMagicLink(ctx, user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// createAccount writes user, profile and metrics in one transaction so that
// every user has exactly one metrics row from the start.
func (s *AuthService) createAccount(ctx context.Context, user *model.User, name string) error {
	return repository.Transact(ctx, s.db, func(tx *sqlx.Tx) error {
		err := s.userRepository.WithTx(tx).Create(user)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		// An empty name is filled in during onboarding.
		profile := &model.Profile{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Name:      name,
			CreatedAt: user.CreatedAt,
		}
		err = s.profileRepository.WithTx(tx).Create(profile)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		return s.metricsService.Initialize(tx, user.ID)
	})
}

func (s *AuthService) ValidatePassword(password string) error {
	return validation.ValidatePassword(password)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.jwtExpiry).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// SignIn issues a JWT for user and stores it in the auth cookie.
func (s *AuthService) SignIn(w http.ResponseWriter, user *model.User) error {
	token, err := s.GenerateJWT(user)
	if err != nil {
		return fmt.Errorf("failed to generate JWT: %w", err)
	}
	s.SetJWTCookie(w, token, time.Now().Add(s.jwtExpiry))
	return nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) RemovePassword(userID string) error {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return errors.New("account is already passwordless")
	}

	user.PasswordHash = nil
	err = s.userRepository.Update(user)
	if err != nil {
		return fmt.Errorf("failed to remove password: %w", err)
	}

	slog.Info("password removed, account is now passwordless", "user_id", userID)
	return nil
}

// SendMagicLink handles the combined login/signup flow.
// If the user exists a login link is sent; otherwise a passwordless account
// is created first.
func (s *AuthService) SendMagicLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("failed to lookup user: %w", err)
		}

		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: time.Now(),
		}
		err = s.createAccount(ctx, user, "")
		if err != nil {
			return err
		}

		slog.Info("new passwordless user created", "email", email, "user_id", user.ID)
	}

	return s.sendMagicLink(ctx, user)
}

func (s *AuthService) sendMagicLink(ctx context.Context, user *model.User) error {
	token, err := s.issueToken(user.ID)
	if err != nil {
		return err
	}

	err = s.emailService.SendMagicLinkEmail(ctx, user.Email, token)
	if err != nil {
		slog.Error("failed to send magic link email", "error", err, "email", user.Email)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("magic link sent", "email", user.Email)
	return nil
}

// SendForgotPasswordLink sends a link that removes the password and signs the
// user in. Unknown or passwordless addresses are ignored silently so the
// endpoint cannot be used to enumerate accounts.
func (s *AuthService) SendForgotPasswordLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		slog.Info("forgot password requested for unknown email", "email", email)
		return nil
	}

	if !user.HasPassword() {
		slog.Info("forgot password requested for passwordless account", "email", email)
		return nil
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return err
	}

	err = s.emailService.SendForgotPasswordEmail(ctx, user.Email, token)
	if err != nil {
		slog.Error("failed to send forgot password email", "error", err, "email", user.Email)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("forgot password link sent", "email", user.Email)
	return nil
}

// issueToken replaces any unused magic link token of the user.
func (s *AuthService) issueToken(userID string) (string, error) {
	err := s.tokenRepository.DeleteByUserAndType(userID, model.TokenTypeMagicLink)
	if err != nil {
		slog.Warn("failed to delete old magic link tokens", "error", err, "user_id", userID)
	}

	value, err := s.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.Token{
		UserID:    userID,
		Type:      model.TokenTypeMagicLink,
		Token:     value,
		ExpiresAt: time.Now().Add(s.tokenMagicLinkExpiry),
	}
	err = s.tokenRepository.Create(token)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	return value, nil
}

// VerifyMagicLink consumes the token and returns the authenticated user.
// The email address counts as verified from here on.
func (s *AuthService) VerifyMagicLink(token string) (*model.User, error) {
	tokenModel, err := s.tokenRepository.ConsumeToken(token)
	if err != nil {
		return nil, ErrInvalidLink
	}

	if tokenModel.Type != model.TokenTypeMagicLink {
		return nil, ErrInvalidLink
	}

	user, err := s.userRepository.ByID(tokenModel.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if user.EmailVerifiedAt == nil {
		now := time.Now()
		user.EmailVerifiedAt = &now
		err = s.userRepository.Update(user)
		if err != nil {
			slog.Warn("failed to verify email", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("user authenticated via magic link", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// NeedsOnboarding reports whether the user still has to pick a display name.
func (s *AuthService) NeedsOnboarding(userID string) (bool, error) {
	profile, err := s.profileRepository.ByUserID(userID)
	if err != nil {
		return false, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile.Name == "", nil
}

func (s *AuthService) CompleteOnboarding(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)

	err := validation.ValidateName(name)
	if err != nil {
		return err
	}

	err = s.profileRepository.UpdateName(userID, name)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	// Welcome email waits for onboarding so it can use the name.
	user, err := s.userRepository.ByID(userID)
	if err == nil {
		err = s.emailService.SendWelcomeEmail(ctx, user.Email, name)
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "email", user.Email)
		}
	}

	slog.Info("onboarding completed", "user_id", userID, "name", name)
	return nil
}

// AuthenticateOAuth returns the user for a provider-verified email, creating
// the account on first sign-in.
func (s *AuthService) AuthenticateOAuth(ctx context.Context, email, provider string) (*model.User, error) {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}

		now := time.Now()
		user = &model.User{
			ID:              uuid.New().String(),
			Email:           email,
			EmailVerifiedAt: &now,
			CreatedAt:       now,
		}
		err = s.createAccount(ctx, user, "")
		if err != nil {
			return nil, err
		}

		slog.Info("new OAuth user created", "email", email, "user_id", user.ID, "provider", provider)
		return user, nil
	}

	if user.EmailVerifiedAt == nil {
		now := time.Now()
		user.EmailVerifiedAt = &now
		err = s.userRepository.Update(user)
		if err != nil {
			slog.Warn("failed to mark email as verified", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("user authenticated via OAuth", "user_id", user.ID, "email", user.Email, "provider", provider)
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
