package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/internal/services"
	appErrors "github.com/snapkart/storefront/pkg/errors"
	"github.com/snapkart/storefront/pkg/metrics"
	"github.com/snapkart/storefront/pkg/response"
)

// PasswordResetHandler drives the two-stage reset flow: an emailed code is
// exchanged for a single-use reset token, which authorises the password change.
type PasswordResetHandler struct {
	resets *services.PasswordResetService
}

func NewPasswordResetHandler(resets *services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets}
}

type passwordResetRequest struct {
	Action      string `json:"action" validate:"required,oneof=request resend verify reset"`
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// POST /api/auth/password-reset
func (h *PasswordResetHandler) Handle(c *gin.Context) {
	var req passwordResetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	switch req.Action {
	case "request", "resend":
		err := h.resets.RequestCode(ctx, req.Email)
		metrics.OTPRequests.WithLabelValues(services.FlowPasswordReset, otpResultLabel(err)).Inc()
		if errors.Is(err, otp.ErrThrottled) {
			// A recent code is still usable; the client shows a countdown
			// instead of an error.
			response.Success(c, http.StatusOK, gin.H{"sent": false, "throttled": true})
			return
		}
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"sent": true})

	case "verify":
		if req.Code == "" {
			response.Error(c, appErrors.NewBadRequest("code is required"))
			return
		}
		token, err := h.resets.VerifyCode(ctx, req.Email, req.Code)
		metrics.OTPVerifications.WithLabelValues(services.FlowPasswordReset, otpResultLabel(err)).Inc()
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"reset_token": token})

	case "reset":
		if req.Token == "" {
			response.Error(c, appErrors.NewBadRequest("token is required"))
			return
		}
		if len(req.NewPassword) < 8 {
			response.Error(c, appErrors.NewBadRequest("new password must be at least 8 characters"))
			return
		}
		if err := h.resets.ResetPassword(ctx, req.Email, req.Token, req.NewPassword); err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"reset": true})
	}
}
