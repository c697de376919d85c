package service

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// latestToken reads the magic link token issued to userID.
func (e *testEnv) latestToken(t *testing.T, userID string) string {
	t.Helper()

	var token string
	err := e.db.Get(&token, `SELECT token FROM tokens WHERE user_id = $1 AND used_at IS NULL`, userID)
	require.NoError(t, err)
	return token
}

func TestSignupRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, " Ada@Example.com ", "correct-horse-battery", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = env.auth.Login("ada@example.com", "correct-horse-battery")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	verified, err := env.auth.VerifyMagicLink(env.latestToken(t, user.ID))
	require.NoError(t, err)
	assert.NotNil(t, verified.EmailVerifiedAt)

	got, err := env.auth.Login("ada@example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = env.auth.Login("ada@example.com", "wrong-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Signup(ctx, "nope", "correct-horse-battery", "Ada")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = env.auth.Signup(ctx, "ada@example.com", "short", "Ada")
	assert.ErrorIs(t, err, validation.ErrPasswordTooShort)

	_, err = env.auth.Signup(ctx, "ada@example.com", "correct-horse-battery", " ")
	assert.ErrorIs(t, err, validation.ErrNameRequired)

	env.signup(t, "ada@example.com", "Ada")
	_, err = env.auth.Signup(ctx, "ada@example.com", "correct-horse-battery", "Ada")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestMagicLinkCreatesAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.auth.SendMagicLink(ctx, "grace@example.com"))

	user, err := env.users.ByEmail("grace@example.com")
	require.NoError(t, err)
	assert.False(t, user.HasPassword())

	_, err = env.metrics.ByUserID(user.ID)
	require.NoError(t, err, "metrics row is created with the account")

	needs, err := env.auth.NeedsOnboarding(user.ID)
	require.NoError(t, err)
	assert.True(t, needs)

	token := env.latestToken(t, user.ID)
	_, err = env.auth.VerifyMagicLink(token)
	require.NoError(t, err)

	_, err = env.auth.VerifyMagicLink(token)
	assert.ErrorIs(t, err, ErrInvalidLink, "tokens are single use")

	require.NoError(t, env.auth.CompleteOnboarding(ctx, user.ID, "Grace"))
	needs, err = env.auth.NeedsOnboarding(user.ID)
	require.NoError(t, err)
	assert.False(t, needs)

	_, err = env.auth.Login("grace@example.com", "anything-at-all")
	assert.ErrorIs(t, err, ErrPasswordless)
}

func TestAuthenticateOAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.AuthenticateOAuth(ctx, "Lin@Example.com", "google")
	require.NoError(t, err)
	assert.NotNil(t, user.EmailVerifiedAt)

	again, err := env.auth.AuthenticateOAuth(ctx, "lin@example.com", "google")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = env.metrics.ByUserID(user.ID)
	assert.NoError(t, err)
}

func TestForgotPasswordRemovesPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.signup(t, "ada@example.com", "Ada")

	require.NoError(t, env.auth.SendForgotPasswordLink(ctx, "unknown@example.com"))
	require.NoError(t, env.auth.SendForgotPasswordLink(ctx, "ada@example.com"))

	user, err := env.auth.VerifyMagicLink(env.latestToken(t, ada.UserID))
	require.NoError(t, err)
	require.NoError(t, env.auth.RemovePassword(user.ID))

	user, err = env.users.ByID(ada.UserID)
	require.NoError(t, err)
	assert.False(t, user.HasPassword())
}

func TestJWTRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	user := &model.User{ID: "user-1", Email: "ada@example.com"}

	token, err := env.auth.GenerateJWT(user)
	require.NoError(t, err)

	claims, err := env.auth.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["user_id"])

	_, err = env.auth.VerifyJWT(token + "x")
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, env.auth.SignIn(rec, user))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestProfileAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signup(t, "ada@example.com", "Ada")

	require.NoError(t, env.profileSvc.UpdateName(ada.UserID, " Ada L. "))
	profile, err := env.profileSvc.ByUserID(ada.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", profile.DisplayName())

	err = env.userSvc.UpdatePassword(ada.UserID, "wrong-current-pw", "another-good-phrase")
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)

	require.NoError(t, env.userSvc.UpdatePassword(ada.UserID, "correct-horse-battery", "another-good-phrase"))
	_, err = env.auth.Login("ada@example.com", "another-good-phrase")
	assert.NoError(t, err)
}

func TestDeleteAccountKeepsFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.signup(t, "ada@example.com", "Ada")

	_, err := env.feedSvc.Post(ctx, ada.UserID, "Ada", "bye")
	require.NoError(t, err)
	_, err = env.goalSvc.Create(ada.UserID, "Run", 3)
	require.NoError(t, err)

	require.NoError(t, env.userSvc.DeleteAccount(ada.UserID))

	_, err = env.metrics.ByUserID(ada.UserID)
	assert.Error(t, err)

	feed, err := env.feed.Recent(10, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Nil(t, feed[0].UserID)
}
