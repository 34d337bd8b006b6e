package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapkart/storefront/internal/services"
	appErrors "github.com/snapkart/storefront/pkg/errors"
	"github.com/snapkart/storefront/pkg/metrics"
	"github.com/snapkart/storefront/pkg/response"
)

// PhoneVerificationHandler confirms phone numbers on customer profiles.
type PhoneVerificationHandler struct {
	phones *services.PhoneVerificationService
}

func NewPhoneVerificationHandler(phones *services.PhoneVerificationService) *PhoneVerificationHandler {
	return &PhoneVerificationHandler{phones: phones}
}

type phoneVerificationRequest struct {
	Action string `json:"action" validate:"required,oneof=request resend verify"`
	Phone  string `json:"phone" validate:"required,e164_phone"`
	Code   string `json:"code" validate:"omitempty,otp_digits"`
}

// POST /api/profile/phone
func (h *PhoneVerificationHandler) Handle(c *gin.Context) {
	var req phoneVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	userID := currentUserID(c)

	switch req.Action {
	case "request", "resend":
		err := h.phones.RequestCode(ctx, userID, req.Phone)
		metrics.OTPRequests.WithLabelValues(services.FlowPhoneVerify, otpResultLabel(err)).Inc()
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
		user, err := h.phones.VerifyCode(ctx, userID, req.Phone, req.Code)
		metrics.OTPVerifications.WithLabelValues(services.FlowPhoneVerify, otpResultLabel(err)).Inc()
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, profilePayload(user))
	}
}
