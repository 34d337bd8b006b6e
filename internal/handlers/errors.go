package handlers

import (
	"errors"
	"net/http"

	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/internal/services"
	appErrors "github.com/snapkart/storefront/pkg/errors"
)

// otpError translates engine sentinels into client-facing errors.
func otpError(err error) error {
	switch {
	case errors.Is(err, otp.ErrThrottled):
		return appErrors.ErrOTPThrottled
	case errors.Is(err, otp.ErrInvalid):
		return appErrors.ErrOTPInvalid
	case errors.Is(err, otp.ErrExpired):
		return appErrors.ErrOTPExpired
	case errors.Is(err, otp.ErrTooManyAttempts):
		return appErrors.ErrOTPAttemptsExceeded
	case errors.Is(err, otp.ErrTokenInvalid):
		return appErrors.ErrResetTokenInvalid
	}
	return appErrors.ErrInternalServer.WithInternal(err)
}

// otpResultLabel maps an engine outcome onto a metrics label value.
func otpResultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, otp.ErrThrottled):
		return "throttled"
	case errors.Is(err, otp.ErrInvalid):
		return "invalid"
	case errors.Is(err, otp.ErrExpired):
		return "expired"
	case errors.Is(err, otp.ErrTooManyAttempts):
		return "exhausted"
	case errors.Is(err, otp.ErrTokenInvalid):
		return "invalid"
	}
	return "error"
}

// serviceError translates domain sentinels shared across handlers.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return appErrors.New("auth.email_not_found", "No account exists for this email", http.StatusNotFound)
	case errors.Is(err, services.ErrEmailTaken):
		return appErrors.New("auth.email_taken", "An account with this email already exists", http.StatusConflict)
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAdminInvalidCredentials):
		return appErrors.ErrInvalidCredentials
	case errors.Is(err, services.ErrUserInactive):
		return appErrors.ErrForbidden
	case errors.Is(err, services.ErrPhoneInvalid):
		return appErrors.NewBadRequest("phone must be an international number like +919876543210")
	case errors.Is(err, services.ErrOrderNotFound):
		return appErrors.ErrNotFound
	case errors.Is(err, services.ErrNotOrderOwner):
		return appErrors.ErrForbidden
	case errors.Is(err, services.ErrOrderNotReturnable):
		return appErrors.New("return.not_returnable", "Only delivered orders can be returned", http.StatusConflict)
	case errors.Is(err, services.ErrReturnNotFound):
		return appErrors.New("return.no_pending_request", "No pending return request for this order", http.StatusNotFound)
	}
	return otpError(err)
}
