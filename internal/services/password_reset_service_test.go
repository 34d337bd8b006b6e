package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snapkart/storefront/internal/database/testutil"
	"github.com/snapkart/storefront/internal/otp"
)

func newPasswordResetFixture(t *testing.T, clock func() time.Time) (*PasswordResetService, *UserService, *recordingMailer) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	engine := newTestEngine(t, db, clock)

	users, err := NewUserService(db)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	service, err := NewPasswordResetService(engine, users, mailer)
	require.NoError(t, err)

	_, err = users.Register(context.Background(), RegisterInput{
		Email:    "ravi@example.com",
		Password: "original-password",
	})
	require.NoError(t, err)

	return service, users, mailer
}

func TestPasswordResetUnknownEmailIsReported(t *testing.T) {
	service, _, mailer := newPasswordResetFixture(t, nil)

	err := service.RequestCode(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.Empty(t, mailer.messages)
}

func TestPasswordResetTwoStageRoundTrip(t *testing.T) {
	service, users, mailer := newPasswordResetFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, "ravi@example.com"))

	code := extractCode(t, mailer.lastBody(t))
	token, err := service.VerifyCode(ctx, "ravi@example.com", code)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, service.ResetPassword(ctx, "ravi@example.com", token, "fresh-password"))

	_, err = users.Authenticate(ctx, "ravi@example.com", "original-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "ravi@example.com", "fresh-password")
	require.NoError(t, err)
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	service, _, mailer := newPasswordResetFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, "ravi@example.com"))

	code := extractCode(t, mailer.lastBody(t))
	token, err := service.VerifyCode(ctx, "ravi@example.com", code)
	require.NoError(t, err)

	require.NoError(t, service.ResetPassword(ctx, "ravi@example.com", token, "fresh-password"))

	err = service.ResetPassword(ctx, "ravi@example.com", token, "another-password")
	require.ErrorIs(t, err, otp.ErrTokenInvalid)
}

func TestPasswordResetCodeCannotBeReusedAfterMint(t *testing.T) {
	service, _, mailer := newPasswordResetFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, "ravi@example.com"))

	code := extractCode(t, mailer.lastBody(t))
	_, err := service.VerifyCode(ctx, "ravi@example.com", code)
	require.NoError(t, err)

	// The code row now carries the minted token; the code itself is spent.
	_, err = service.VerifyCode(ctx, "ravi@example.com", code)
	require.Error(t, err)
}

func TestPasswordResetResendHonoursCooldown(t *testing.T) {
	current := time.Now()
	service, _, mailer := newPasswordResetFixture(t, func() time.Time { return current })
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, "ravi@example.com"))

	err := service.ResendCode(ctx, "ravi@example.com")
	require.ErrorIs(t, err, otp.ErrThrottled)

	current = current.Add(11 * time.Second)
	require.NoError(t, service.ResendCode(ctx, "ravi@example.com"))
	require.Len(t, mailer.messages, 2)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	current := time.Now()
	service, _, mailer := newPasswordResetFixture(t, func() time.Time { return current })
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, "ravi@example.com"))

	code := extractCode(t, mailer.lastBody(t))
	token, err := service.VerifyCode(ctx, "ravi@example.com", code)
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)
	err = service.ResetPassword(ctx, "ravi@example.com", token, "fresh-password")
	require.ErrorIs(t, err, otp.ErrTokenInvalid)
}
