package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/internal/services"
	appErrors "github.com/snapkart/storefront/pkg/errors"
	"github.com/snapkart/storefront/pkg/metrics"
	"github.com/snapkart/storefront/pkg/response"
)

// ReturnHandler manages the OTP-confirmed return flow on delivered orders.
type ReturnHandler struct {
	returns *services.ReturnService
}

func NewReturnHandler(returns *services.ReturnService) *ReturnHandler {
	return &ReturnHandler{returns: returns}
}

type returnRequestBody struct {
	Action string `json:"action" validate:"required,oneof=request resend verify"`
	Reason string `json:"reason" validate:"max=500"`
	Code   string `json:"code" validate:"omitempty,otp_digits"`
}

// POST /api/orders/:id/return
func (h *ReturnHandler) Handle(c *gin.Context) {
	var req returnRequestBody
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	userID := currentUserID(c)
	orderID := c.Param("id")

	switch req.Action {
	case "request":
		request, err := h.returns.CreateRequest(ctx, userID, orderID, req.Reason)
		metrics.OTPRequests.WithLabelValues(services.FlowOrderReturn, otpResultLabel(err)).Inc()
		if errors.Is(err, otp.ErrThrottled) {
			response.Success(c, http.StatusOK, gin.H{"sent": false, "throttled": true})
			return
		}
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusCreated, returnPayload(request))

	case "resend":
		err := h.returns.ResendCode(ctx, userID, orderID)
		metrics.OTPRequests.WithLabelValues(services.FlowOrderReturn, otpResultLabel(err)).Inc()
		if errors.Is(err, otp.ErrThrottled) {
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
		request, err := h.returns.ConfirmRequest(ctx, userID, orderID, req.Code)
		metrics.OTPVerifications.WithLabelValues(services.FlowOrderReturn, otpResultLabel(err)).Inc()
		if err != nil {
			response.Error(c, serviceError(err))
			return
		}
		response.Success(c, http.StatusOK, returnPayload(request))
	}
}

// GET /api/admin/return-requests
func (h *ReturnHandler) ListPending(c *gin.Context) {
	requests, err := h.returns.ListPending(requestContext(c))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}

	payload := make([]gin.H, 0, len(requests))
	for i := range requests {
		payload = append(payload, returnPayload(&requests[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"return_requests": payload})
}

func returnPayload(request *models.ReturnRequest) gin.H {
	return gin.H{
		"id":           request.ID,
		"order_id":     request.OrderID,
		"reason":       request.Reason,
		"status":       request.Status,
		"confirmed_at": request.ConfirmedAt,
		"created_at":   request.CreatedAt,
	}
}
