package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/database/testutil"
	"github.com/snapkart/storefront/internal/models"
)

func newReturnFixture(t *testing.T, opts ...ReturnOption) (*ReturnService, *recordingMailer, *gorm.DB, *models.User, *models.Order) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	engine := newTestEngine(t, db, nil)

	mailer := &recordingMailer{}
	service, err := NewReturnService(db, engine, mailer, opts...)
	require.NoError(t, err)

	user := createTestUser(t, db, "ravi@example.com")
	order := createDeliveredOrder(t, db, user.ID)
	return service, mailer, db, user, order
}

func TestReturnCreateRequestRejectsUndelivered(t *testing.T) {
	service, mailer, db, user, _ := newReturnFixture(t)
	ctx := context.Background()

	pendingOrder := models.Order{UserID: user.ID, Status: models.OrderStatusShipped, TotalPaise: 9900, ItemCount: 1}
	require.NoError(t, db.Create(&pendingOrder).Error)

	_, err := service.CreateRequest(ctx, user.ID, pendingOrder.ID, "arrived damaged")
	require.ErrorIs(t, err, ErrOrderNotReturnable)
	require.Empty(t, mailer.messages)
}

func TestReturnCreateRequestRejectsForeignOrder(t *testing.T) {
	service, _, db, _, order := newReturnFixture(t)

	other := createTestUser(t, db, "other@example.com")
	_, err := service.CreateRequest(context.Background(), other.ID, order.ID, "not mine")
	require.ErrorIs(t, err, ErrNotOrderOwner)
}

func TestReturnCreateRequestUnknownOrder(t *testing.T) {
	service, _, _, user, _ := newReturnFixture(t)

	_, err := service.CreateRequest(context.Background(), user.ID, "00000000-0000-0000-0000-000000000000", "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReturnConfirmRoundTrip(t *testing.T) {
	service, mailer, db, user, order := newReturnFixture(t)
	ctx := context.Background()

	request, err := service.CreateRequest(ctx, user.ID, order.ID, "arrived damaged")
	require.NoError(t, err)
	require.Equal(t, models.ReturnStatusPending, request.Status)

	code := extractCode(t, mailer.lastBody(t))
	confirmed, err := service.ConfirmRequest(ctx, user.ID, order.ID, code)
	require.NoError(t, err)
	require.Equal(t, models.ReturnStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	var storedOrder models.Order
	require.NoError(t, db.First(&storedOrder, "id = ?", order.ID).Error)
	require.Equal(t, models.OrderStatusReturned, storedOrder.Status)
}

func TestReturnResendWithoutRequest(t *testing.T) {
	service, _, _, user, order := newReturnFixture(t)

	err := service.ResendCode(context.Background(), user.ID, order.ID)
	require.ErrorIs(t, err, ErrReturnNotFound)
}

func TestReturnRepeatRequestReusesPendingRow(t *testing.T) {
	service, _, db, user, order := newReturnFixture(t)
	ctx := context.Background()

	first, err := service.CreateRequest(ctx, user.ID, order.ID, "arrived damaged")
	require.NoError(t, err)

	// Immediate repeat trips the resend cooldown before any new row is cut.
	_, err = service.CreateRequest(ctx, user.ID, order.ID, "wrong size")
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.ReturnRequest{}).
		Where("order_id = ?", order.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)

	var stored models.ReturnRequest
	require.NoError(t, db.First(&stored, "id = ?", first.ID).Error)
	require.Equal(t, models.ReturnStatusPending, stored.Status)
}

func TestReturnSupportNotifiedOnlyAfterConfirmation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	engine := newTestEngine(t, db, nil)

	mailer := &recordingMailer{}
	service, err := NewReturnService(db, engine, mailer, WithSupportEmail("support@snapkart.example"))
	require.NoError(t, err)

	user := createTestUser(t, db, "ravi@example.com")
	order := createDeliveredOrder(t, db, user.ID)
	ctx := context.Background()

	_, err = service.CreateRequest(ctx, user.ID, order.ID, "arrived damaged")
	require.NoError(t, err)

	// The code exists only in the customer's mailbox until they confirm.
	require.Equal(t, 1, mailer.sentTo("ravi@example.com"))
	require.Equal(t, 0, mailer.sentTo("support@snapkart.example"))

	code := extractCode(t, mailer.lastBody(t))
	_, err = service.ConfirmRequest(ctx, user.ID, order.ID, code)
	require.NoError(t, err)

	require.Equal(t, 1, mailer.sentTo("support@snapkart.example"))
	supportBody := mailer.lastBodyTo(t, "support@snapkart.example")
	require.NotContains(t, supportBody, code)
	require.Contains(t, supportBody, order.ID)
	require.Contains(t, supportBody, "arrived damaged")
	require.Contains(t, supportBody, "ravi@example.com")
}

func TestReturnSupportNotificationFailureIsNonFatal(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	engine := newTestEngine(t, db, nil)

	mailer := &recordingMailer{failFor: map[string]error{
		"support@snapkart.example": errors.New("mailbox full"),
	}}
	service, err := NewReturnService(db, engine, mailer, WithSupportEmail("support@snapkart.example"))
	require.NoError(t, err)

	user := createTestUser(t, db, "ravi@example.com")
	order := createDeliveredOrder(t, db, user.ID)
	ctx := context.Background()

	_, err = service.CreateRequest(ctx, user.ID, order.ID, "arrived damaged")
	require.NoError(t, err)

	code := extractCode(t, mailer.lastBody(t))
	confirmed, err := service.ConfirmRequest(ctx, user.ID, order.ID, code)
	require.NoError(t, err)
	require.Equal(t, models.ReturnStatusConfirmed, confirmed.Status)
	require.Equal(t, 0, mailer.sentTo("support@snapkart.example"))
}
