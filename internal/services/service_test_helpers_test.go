package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/pkg/mail"
	"github.com/snapkart/storefront/pkg/sms"
)

// recordingMailer captures outbound mail and can be told to fail for a
// specific recipient.
type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	failFor  map[string]error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(msg.To) > 0 {
		if err, ok := m.failFor[msg.To[0]]; ok {
			return err
		}
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) lastBody(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages)
	return m.messages[len(m.messages)-1].Body
}

func (m *recordingMailer) lastBodyTo(t *testing.T, recipient string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		for _, to := range m.messages[i].To {
			if to == recipient {
				return m.messages[i].Body
			}
		}
	}
	t.Fatalf("no message delivered to %s", recipient)
	return ""
}

func (m *recordingMailer) sentTo(recipient string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.messages {
		for _, to := range msg.To {
			if to == recipient {
				count++
			}
		}
	}
	return count
}

// recordingSMS captures outbound text messages.
type recordingSMS struct {
	mu       sync.Mutex
	messages []sms.Message
}

func (s *recordingSMS) Send(_ context.Context, msg sms.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSMS) lastBody(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages)
	return s.messages[len(s.messages)-1].Body
}

// Delivery bodies embed the secret as "... is <code>. It expires ...". None
// of the generator alphabets contain '.' or whitespace.
var codePattern = regexp.MustCompile(`is (\S+)\. It expires`)

func extractCode(t *testing.T, body string) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "delivery body %q should contain a code", body)
	return match[1]
}

func newTestEngine(t *testing.T, db *gorm.DB, clock func() time.Time) *otp.Engine {
	t.Helper()

	opts := []otp.EngineOption{}
	if clock != nil {
		opts = append(opts, otp.WithClock(clock))
	}
	engine, err := otp.NewEngine(db, "unit-test-pepper", opts...)
	require.NoError(t, err)
	return engine
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	users, err := NewUserService(db)
	require.NoError(t, err)

	user, err := users.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "original-password",
		Name:     "Test Customer",
	})
	require.NoError(t, err)
	return user
}

func createDeliveredOrder(t *testing.T, db *gorm.DB, userID string) *models.Order {
	t.Helper()

	delivered := time.Now().Add(-24 * time.Hour)
	order := models.Order{
		UserID:      userID,
		Status:      models.OrderStatusDelivered,
		TotalPaise:  249900,
		ItemCount:   2,
		DeliveredAt: &delivered,
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}
