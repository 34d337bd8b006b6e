package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/pkg/logger"
	"github.com/snapkart/storefront/pkg/mail"
)

// FlowOrderReturn labels the return confirmation flow in the OTP store.
const FlowOrderReturn = "order_return"

var (
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.New("return: order not found")
	// ErrNotOrderOwner indicates the order belongs to a different customer.
	ErrNotOrderOwner = errors.New("return: order belongs to another customer")
	// ErrOrderNotReturnable indicates the order is not in a returnable state.
	ErrOrderNotReturnable = errors.New("return: order is not returnable")
	// ErrReturnNotFound indicates no pending return request exists for the order.
	ErrReturnNotFound = errors.New("return: no pending request")
)

// DefaultOrderReturnPolicy returns the built-in policy for return confirmation codes.
func DefaultOrderReturnPolicy() otp.Policy {
	return otp.Policy{
		Flow:         FlowOrderReturn,
		Kind:         otp.SecretDigits,
		SecretLength: 6,
		TTL:          10 * time.Minute,
		Cooldown:     10 * time.Second,
	}
}

// ReturnOption customises the ReturnService.
type ReturnOption func(*ReturnService)

// WithReturnPolicy overrides the OTP policy applied to return confirmations.
func WithReturnPolicy(policy otp.Policy) ReturnOption {
	return func(s *ReturnService) {
		policy.Flow = FlowOrderReturn
		s.policy = policy
	}
}

// WithSupportEmail sets the support inbox notified when a return is
// confirmed. The notification never carries the confirmation code; the code
// goes only to the customer's own mailbox.
func WithSupportEmail(email string) ReturnOption {
	return func(s *ReturnService) {
		s.supportEmail = normalizeEmail(email)
	}
}

// WithReturnClock injects a custom time source.
func WithReturnClock(clock func() time.Time) ReturnOption {
	return func(s *ReturnService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ReturnService manages customer return requests on delivered orders. A
// request stays pending until the customer confirms it with the emailed code.
type ReturnService struct {
	db           *gorm.DB
	engine       *otp.Engine
	mailer       mail.Mailer
	policy       otp.Policy
	supportEmail string
	now          func() time.Time
}

// NewReturnService constructs a ReturnService.
func NewReturnService(db *gorm.DB, engine *otp.Engine, mailer mail.Mailer, opts ...ReturnOption) (*ReturnService, error) {
	if db == nil {
		return nil, errors.New("return service: db is required")
	}
	if engine == nil {
		return nil, errors.New("return service: otp engine is required")
	}

	service := &ReturnService{
		db:     db,
		engine: engine,
		mailer: mailer,
		policy: DefaultOrderReturnPolicy(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateRequest opens (or refreshes) a pending return request for a delivered
// order owned by the customer, then issues the confirmation code.
func (s *ReturnService) CreateRequest(ctx context.Context, userID, orderID, reason string) (*models.ReturnRequest, error) {
	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Returnable() {
		return nil, ErrOrderNotReturnable
	}

	reason = strings.TrimSpace(reason)

	var request models.ReturnRequest
	err = s.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", order.ID, models.ReturnStatusPending).
		First(&request).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		request = models.ReturnRequest{
			OrderID: order.ID,
			UserID:  userID,
			Reason:  reason,
			Status:  models.ReturnStatusPending,
		}
		if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
			return nil, fmt.Errorf("return service: create request: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("return service: load request: %w", err)
	default:
		if reason != "" && reason != request.Reason {
			if err := s.db.WithContext(ctx).
				Model(&request).
				Update("reason", reason).Error; err != nil {
				return nil, fmt.Errorf("return service: update reason: %w", err)
			}
			request.Reason = reason
		}
	}

	if err := s.issueCode(ctx, userID, order.ID); err != nil {
		return nil, err
	}

	return &request, nil
}

// ResendCode re-issues the confirmation code for a pending return request.
func (s *ReturnService) ResendCode(ctx context.Context, userID, orderID string) error {
	if _, err := s.pendingRequest(ctx, userID, orderID); err != nil {
		return err
	}
	return s.issueCode(ctx, userID, orderID)
}

// ConfirmRequest checks the submitted code and finalises the return: the
// request is marked confirmed and the order moves to the returned state.
func (s *ReturnService) ConfirmRequest(ctx context.Context, userID, orderID, code string) (*models.ReturnRequest, error) {
	request, err := s.pendingRequest(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.engine.Verify(ctx, s.policy, returnIdentityKey(userID, orderID), code); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ReturnRequest{}).
			Where("id = ?", request.ID).
			Updates(map[string]any{"status": models.ReturnStatusConfirmed, "confirmed_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("status", models.OrderStatusReturned).Error
	})
	if err != nil {
		return nil, fmt.Errorf("return service: confirm request: %w", err)
	}

	request.Status = models.ReturnStatusConfirmed
	request.ConfirmedAt = &now

	s.notifySupport(ctx, request)

	return request, nil
}

// notifySupport fans a confirmed return out to the store's support inbox.
// Best effort: a delivery failure must not unwind the confirmed return.
func (s *ReturnService) notifySupport(ctx context.Context, request *models.ReturnRequest) {
	if s.mailer == nil || s.supportEmail == "" {
		return
	}

	customer := "unknown"
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", request.UserID).Error; err == nil {
		customer = user.Email
	}

	reason := request.Reason
	if reason == "" {
		reason = "(none given)"
	}

	message := mail.Message{
		To:      []string{s.supportEmail},
		Subject: fmt.Sprintf("Return confirmed on order %s", request.OrderID),
		Body: fmt.Sprintf("Customer %s confirmed a return on order %s.\nReason: %s\n",
			customer, request.OrderID, reason),
	}
	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.WithModule("services.return").Warn("support notification failed",
			zap.String("order_id", request.OrderID),
			zap.Error(err))
	}
}

// ListPending returns all pending return requests, newest first. Used by the
// admin console.
func (s *ReturnService) ListPending(ctx context.Context) ([]models.ReturnRequest, error) {
	var requests []models.ReturnRequest
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.ReturnStatusPending).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("return service: list pending: %w", err)
	}
	return requests, nil
}

func (s *ReturnService) loadOwnedOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("return service: load order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return &order, nil
}

func (s *ReturnService) pendingRequest(ctx context.Context, userID, orderID string) (*models.ReturnRequest, error) {
	if _, err := s.loadOwnedOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}

	var request models.ReturnRequest
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, models.ReturnStatusPending).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReturnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("return service: load request: %w", err)
	}
	return &request, nil
}

func (s *ReturnService) issueCode(ctx context.Context, userID, orderID string) error {
	issued, err := s.engine.Issue(ctx, s.policy, returnIdentityKey(userID, orderID))
	if err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("return service: load customer: %w", err)
	}

	body := fmt.Sprintf("Your return confirmation code for order %s is %s. It expires in %d minutes.\n", orderID, issued.Secret, int(s.policy.TTL.Minutes()))

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{user.Email},
			Subject: "Confirm your return request",
			Body:    body,
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("return service: send code: %w", mailErr)
		}
	}

	return nil
}

func returnIdentityKey(userID, orderID string) string {
	return fmt.Sprintf("%s:%s", userID, orderID)
}
