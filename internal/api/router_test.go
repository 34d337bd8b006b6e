package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/app"
	iauth "github.com/snapkart/storefront/internal/auth"
	"github.com/snapkart/storefront/internal/database/testutil"
	"github.com/snapkart/storefront/internal/models"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/internal/services"
	"github.com/snapkart/storefront/pkg/crypto"
	"github.com/snapkart/storefront/pkg/mail"
	"github.com/snapkart/storefront/pkg/sms"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var codePattern = regexp.MustCompile(`is (\S+)\. It expires`)

type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages)
	match := codePattern.FindStringSubmatch(m.messages[len(m.messages)-1].Body)
	require.Len(t, match, 2, "delivery body should contain the code")
	return match[1]
}

type captureSMS struct {
	mu       sync.Mutex
	messages []sms.Message
}

func (s *captureSMS) Send(_ context.Context, msg sms.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSMS) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages)
	match := codePattern.FindStringSubmatch(s.messages[len(s.messages)-1].Body)
	require.Len(t, match, 2, "delivery body should contain the code")
	return match[1]
}

const (
	testAdminEmail    = "admin@snapkart.test"
	testAdminPassword = "correct-horse-battery"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	mailer *captureMailer
	sms    *captureSMS
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	env := &testEnv{
		db:     db,
		mailer: &captureMailer{},
		sms:    &captureSMS{},
		now:    time.Now(),
	}
	clock := func() time.Time { return env.now }

	engine, err := otp.NewEngine(db, "router-test-pepper", otp.WithClock(clock))
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "router-test-secret",
		Issuer: "snapkart-storefront",
	})
	require.NoError(t, err)

	users, err := services.NewUserService(db, services.WithUserClock(clock))
	require.NoError(t, err)

	adminHash, err := crypto.HashPassword(testAdminPassword)
	require.NoError(t, err)
	admin, err := services.NewAdminAuthService(engine, env.mailer, jwtSvc, services.AdminConfig{
		Email:        testAdminEmail,
		PasswordHash: adminHash,
	})
	require.NoError(t, err)

	phones, err := services.NewPhoneVerificationService(engine, users, env.sms)
	require.NoError(t, err)

	resets, err := services.NewPasswordResetService(engine, users, env.mailer)
	require.NoError(t, err)

	returns, err := services.NewReturnService(db, engine, env.mailer, services.WithReturnClock(clock))
	require.NoError(t, err)

	orders, err := services.NewOrderService(db)
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true

	router, err := NewRouter(db, jwtSvc, cfg, Services{
		Users:   users,
		Admin:   admin,
		Phones:  phones,
		Resets:  resets,
		Returns: returns,
		Orders:  orders,
	}, nil)
	require.NoError(t, err)

	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	payload := decodeBody(t, rec)
	require.Equal(t, true, payload["success"], rec.Body.String())
	data, ok := payload["data"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return data
}

func (e *testEnv) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": password,
		"name":     "Test Shopper",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := dataField(t, rec)
	token, _ = data["token"].(string)
	require.NotEmpty(t, token)
	user, _ := data["user"].(map[string]any)
	require.NotNil(t, user)
	userID, _ = user["id"].(string)
	require.NotEmpty(t, userID)
	return token, userID
}

func (e *testEnv) createDeliveredOrder(t *testing.T, userID string) *models.Order {
	t.Helper()
	delivered := e.now.Add(-72 * time.Hour)
	order := &models.Order{
		UserID:      userID,
		Status:      models.OrderStatusDelivered,
		TotalPaise:  149900,
		ItemCount:   2,
		DeliveredAt: &delivered,
	}
	require.NoError(t, e.db.Create(order).Error)
	return order
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	payload := decodeBody(t, rec)
	require.Equal(t, false, payload["success"])
}

func TestRegisterLoginProfileRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "shopper@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "shopper@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataField(t, rec)
	require.Equal(t, "shopper@example.com", data["email"])
	require.Equal(t, false, data["phone_verified"])

	// No token, no profile.
	rec = env.do(t, http.MethodGet, "/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	// Wrong password never sends a code.
	rec := env.do(t, http.MethodPost, "/api/auth/admin", "", gin.H{
		"action":   "request",
		"email":    testAdminEmail,
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	require.Empty(t, env.mailer.messages)

	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", gin.H{
		"action":   "request",
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := env.mailer.lastCode(t)

	// A wrong guess burns an attempt but the real code still works.
	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", gin.H{
		"action": "verify",
		"email":  testAdminEmail,
		"code":   "XXXXXXXXXX",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", gin.H{
		"action": "verify",
		"email":  testAdminEmail,
		"code":   code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	adminToken, _ := dataField(t, rec)["token"].(string)
	require.NotEmpty(t, adminToken)

	// The minted session opens the admin surface.
	rec = env.do(t, http.MethodGet, "/api/admin/return-requests", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminSurfaceRejectsCustomerToken(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "shopper@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodGet, "/api/admin/return-requests", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRequestCooldown(t *testing.T) {
	env := newTestEnv(t)

	body := gin.H{
		"action":   "request",
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}
	rec := env.do(t, http.MethodPost, "/api/auth/admin", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	// Inside the cooldown the admin flow surfaces a hard 429.
	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())

	env.now = env.now.Add(11 * time.Second)
	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPhoneVerificationFlow(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "shopper@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/api/profile/phone", token, gin.H{
		"action": "request",
		"phone":  "+919876543210",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := env.sms.lastCode(t)

	rec = env.do(t, http.MethodPost, "/api/profile/phone", token, gin.H{
		"action": "verify",
		"phone":  "+919876543210",
		"code":   code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataField(t, rec)
	require.Equal(t, "+919876543210", data["phone"])
	require.Equal(t, true, data["phone_verified"])

	// Anonymous callers cannot start verification.
	rec = env.do(t, http.MethodPost, "/api/profile/phone", "", gin.H{
		"action": "request",
		"phone":  "+919876543210",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhoneVerificationRejectsBadNumber(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "shopper@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/api/profile/phone", token, gin.H{
		"action": "request",
		"phone":  "12345",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "shopper@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"action": "request",
		"email":  "shopper@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, true, dataField(t, rec)["sent"])
	code := env.mailer.lastCode(t)

	// Re-requesting inside the cooldown is a soft success so the client can
	// show a countdown rather than an error page.
	rec = env.do(t, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"action": "request",
		"email":  "shopper@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataField(t, rec)
	require.Equal(t, false, data["sent"])
	require.Equal(t, true, data["throttled"])

	rec = env.do(t, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"action": "verify",
		"email":  "shopper@example.com",
		"code":   code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resetToken, _ := dataField(t, rec)["reset_token"].(string)
	require.NotEmpty(t, resetToken)

	rec = env.do(t, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"action":       "reset",
		"email":        "shopper@example.com",
		"token":        resetToken,
		"new_password": "brand-new-secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Old password is dead, the new one works.
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "shopper@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "shopper@example.com",
		"password": "brand-new-secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"action": "request",
		"email":  "ghost@example.com",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReturnFlow(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerUser(t, "shopper@example.com", "hunter2hunter2")
	order := env.createDeliveredOrder(t, userID)

	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/return", token, gin.H{
		"action": "request",
		"reason": "wrong size",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, models.ReturnStatusPending, dataField(t, rec)["status"])
	code := env.mailer.lastCode(t)

	rec = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/return", token, gin.H{
		"action": "verify",
		"code":   code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, models.ReturnStatusConfirmed, dataField(t, rec)["status"])

	// The order itself transitions out of delivered.
	var reloaded models.Order
	require.NoError(t, env.db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, models.OrderStatusReturned, reloaded.Status)
}

func TestReturnRejectsUndeliveredOrder(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerUser(t, "shopper@example.com", "hunter2hunter2")

	order := &models.Order{UserID: userID, Status: models.OrderStatusShipped, TotalPaise: 9900, ItemCount: 1}
	require.NoError(t, env.db.Create(order).Error)

	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/return", token, gin.H{
		"action": "request",
		"reason": "changed my mind",
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestOrdersEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerUser(t, "shopper@example.com", "hunter2hunter2")
	order := env.createDeliveredOrder(t, userID)

	rec := env.do(t, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders, _ := dataField(t, rec)["orders"].([]any)
	require.Len(t, orders, 1)

	rec = env.do(t, http.MethodGet, "/api/orders/"+order.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Another customer cannot read it.
	other, _ := env.registerUser(t, "other@example.com", "hunter2hunter2")
	rec = env.do(t, http.MethodGet, "/api/orders/"+order.ID, other, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingReturnsVisibleToAdmin(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerUser(t, "shopper@example.com", "hunter2hunter2")
	order := env.createDeliveredOrder(t, userID)

	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/return", token, gin.H{
		"action": "request",
		"reason": "defective",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", gin.H{
		"action":   "request",
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/auth/admin", "", gin.H{
		"action": "verify",
		"email":  testAdminEmail,
		"code":   env.mailer.lastCode(t),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	adminToken, _ := dataField(t, rec)["token"].(string)

	rec = env.do(t, http.MethodGet, "/api/admin/return-requests", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending, _ := dataField(t, rec)["return_requests"].([]any)
	require.Len(t, pending, 1)
}
