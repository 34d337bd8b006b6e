package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapkart/storefront/internal/services"
	appErrors "github.com/snapkart/storefront/pkg/errors"
	"github.com/snapkart/storefront/pkg/metrics"
	"github.com/snapkart/storefront/pkg/response"
)

// AdminAuthHandler drives the admin console login flow. The endpoint is a
// single POST whose action field selects the step, mirroring the storefront
// client's state machine.
type AdminAuthHandler struct {
	admin *services.AdminAuthService
}

func NewAdminAuthHandler(admin *services.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{admin: admin}
}

type adminAuthRequest struct {
	Action   string `json:"action" validate:"required,oneof=request resend verify"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// POST /api/auth/admin
func (h *AdminAuthHandler) Handle(c *gin.Context) {
	var req adminAuthRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	switch req.Action {
	case "request":
		if req.Password == "" {
			response.Error(c, appErrors.NewBadRequest("password is required"))
			return
		}
		err := h.admin.RequestLogin(ctx, req.Email, req.Password)
		metrics.OTPRequests.WithLabelValues(services.FlowAdminLogin, otpResultLabel(err)).Inc()
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"sent": true})

	case "resend":
		err := h.admin.ResendLogin(ctx, req.Email)
		metrics.OTPRequests.WithLabelValues(services.FlowAdminLogin, otpResultLabel(err)).Inc()
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
		token, err := h.admin.VerifyLogin(ctx, req.Email, req.Code)
		metrics.OTPVerifications.WithLabelValues(services.FlowAdminLogin, otpResultLabel(err)).Inc()
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"token": token})
	}
}
