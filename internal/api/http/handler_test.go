package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpapi "rentalhub-backend/internal/api/http"
	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/security"
	"rentalhub-backend/internal/service"
)

const frontendURL = "https://app.example.com/payment-result"

type testServer struct {
	router        *mux.Router
	tokens        security.TokenManager
	orders        *MockOrderService
	deposits      *MockDepositService
	inventory     *MockInventoryService
	users         *MockUserService
	notifications *MockNotificationService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		tokens:        security.NewTokenManager("test-secret-0123456789-abcdefghijk", time.Hour),
		orders:        new(MockOrderService),
		deposits:      new(MockDepositService),
		inventory:     new(MockInventoryService),
		users:         new(MockUserService),
		notifications: new(MockNotificationService),
	}
	h := httpapi.NewHandler(s.orders, s.deposits, s.inventory, s.users, s.notifications, frontendURL)
	s.router = httpapi.NewRouter(h, s.tokens)
	return s
}

func (s *testServer) token(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	tok, err := s.tokens.GenerateAccessToken(userID, userID+"@test.com", roles)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func renter(id string) service.Actor {
	return service.Actor{UserID: id, Roles: []domain.Role{domain.RoleRenter}}
}

func admin(id string) service.Actor {
	return service.Actor{UserID: id, Roles: []domain.Role{domain.RoleAdmin}}
}

func TestHealth_IsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/orders", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/orders", "not-a-jwt", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := security.NewTokenManager("another-secret-0123456789-abcdefgh", time.Hour)
		tok, err := other.GenerateAccessToken("cust-1", "c@test.com", []string{"renter"})
		require.NoError(t, err)
		rec := s.do(t, http.MethodGet, "/api/v1/orders", tok, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin route rejects renter", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/deposits/dep-1/refund", s.token(t, "cust-1", "renter"), `{}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	s.deposits.AssertNotCalled(t, "RefundDeposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.orders.AssertNotCalled(t, "ListMyOrders", mock.Anything, mock.Anything)
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)
	req := service.CreateOrderRequest{ProductIDs: []string{"prod-1"}, Duration: 3, TotalPrice: 300000}
	s.orders.On("CreateOrder", mock.Anything, renter("cust-1"), req).
		Return(&domain.Order{ID: "ord-1", Status: domain.OrderStatusPendingConfirmation}, nil).Once()

	rec := s.do(t, http.MethodPost, "/api/v1/orders", s.token(t, "cust-1", "renter"),
		`{"productIds":["prod-1"],"duration":3,"totalPrice":300000}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ord-1", got.ID)
	s.orders.AssertExpectations(t)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/orders", s.token(t, "cust-1", "renter"), `{"productIds":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: order", domain.ErrNotFound), http.StatusNotFound},
		{"precondition", fmt.Errorf("%w: deposit not yet paid", domain.ErrPreconditionFailed), http.StatusPreconditionFailed},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"stock out", domain.ErrAllUnitsRented, http.StatusConflict},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"gateway", domain.ErrGatewayVerification, http.StatusPaymentRequired},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.orders.On("GetOrder", mock.Anything, renter("cust-1"), "ord-1").Return(nil, tt.err)

			rec := s.do(t, http.MethodGet, "/api/v1/orders/ord-1", s.token(t, "cust-1", "renter"), "")

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestOrderTransitions(t *testing.T) {
	s := newTestServer(t)
	owner := service.Actor{UserID: "owner-1", Roles: []domain.Role{domain.RoleOwner}}
	tok := s.token(t, "owner-1", "owner")
	done := &domain.Order{ID: "ord-1"}

	s.orders.On("Confirm", mock.Anything, owner, "ord-1").Return(done, nil).Once()
	s.orders.On("StartDelivery", mock.Anything, owner, "ord-1", []string{"https://img/1.jpg"}).Return(done, nil).Once()
	s.orders.On("Cancel", mock.Anything, owner, "ord-1", "damaged").Return(done, nil).Once()
	s.orders.On("UpdateStatus", mock.Anything, owner, "ord-1", "delivering",
		service.TransitionOptions{Evidence: []string{"a"}}).Return(done, nil).Once()

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/orders/ord-1/confirm", tok, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/orders/ord-1/start-delivery", tok,
		`{"evidence":["https://img/1.jpg"]}`).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/orders/ord-1/cancel", tok, `{"reason":"damaged"}`).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/v1/orders/ord-1/status", tok,
		`{"status":"delivering","evidence":["a"]}`).Code)

	s.orders.AssertExpectations(t)
}

func TestCreateDeposit(t *testing.T) {
	s := newTestServer(t)
	paymentURL := "https://pay.example.com/?vnp_TxnRef=abc"
	s.deposits.On("CreateDeposit", mock.Anything, renter("cust-1"), service.CreateDepositRequest{
		OrderID:  "ord-1",
		Method:   domain.PaymentMethodBankQR,
		ClientIP: "203.0.113.7",
	}).Return(&service.DepositPayment{Deposit: &domain.Deposit{ID: "dep-1"}, PaymentURL: paymentURL}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits?paymentMethod=qr",
		strings.NewReader(`{"orderId":"ord-1","paymentMethod":"vnpay"}`))
	req.Header.Set("Authorization", "Bearer "+s.token(t, "cust-1", "renter"))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paymentUrl"`)
	s.deposits.AssertExpectations(t)
}

func TestCreateDeposit_ReusedReturnsOK(t *testing.T) {
	s := newTestServer(t)
	s.deposits.On("CreateDeposit", mock.Anything, renter("cust-1"), mock.AnythingOfType("service.CreateDepositRequest")).
		Return(&service.DepositPayment{Deposit: &domain.Deposit{ID: "dep-1"}, Reused: true}, nil).Once()

	rec := s.do(t, http.MethodPost, "/api/v1/deposits", s.token(t, "cust-1", "renter"), `{"orderId":"ord-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVNPayReturn_RedirectsToFrontend(t *testing.T) {
	s := newTestServer(t)
	params := map[string]string{"vnp_TxnRef": "abc", "vnp_ResponseCode": "00"}
	s.deposits.On("HandleGatewayCallback", mock.Anything, params, domain.CallbackChannelReturn).
		Return(service.CallbackResult{RspCode: "00", Outcome: service.OutcomeSuccess, DepositID: "dep-1", OrderID: "ord-1"}).Once()

	rec := s.do(t, http.MethodGet, "/api/v1/deposits/vnpay-return?vnp_TxnRef=abc&vnp_ResponseCode=00", "", "")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", loc.Host)
	assert.Equal(t, "success", loc.Query().Get("payment"))
	assert.Equal(t, "dep-1", loc.Query().Get("depositId"))
}

func TestVNPayIPN(t *testing.T) {
	t.Run("reports gateway code with 200", func(t *testing.T) {
		s := newTestServer(t)
		s.deposits.On("HandleGatewayCallback", mock.Anything, mock.Anything, domain.CallbackChannelIPN).
			Return(service.CallbackResult{RspCode: service.RspCodeAmountMismatch, Message: "Invalid amount"}).Once()

		rec := s.do(t, http.MethodGet, "/api/v1/deposits/vnpay-ipn?vnp_TxnRef=abc", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"RspCode":"04","Message":"Invalid amount"}`, rec.Body.String())
	})

	t.Run("panic becomes unknown error", func(t *testing.T) {
		s := newTestServer(t)
		s.deposits.On("HandleGatewayCallback", mock.Anything, mock.Anything, domain.CallbackChannelIPN).
			Run(func(mock.Arguments) { panic("boom") }).
			Return(service.CallbackResult{}).Once()

		rec := s.do(t, http.MethodGet, "/api/v1/deposits/vnpay-ipn", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"RspCode":"99"`)
	})
}

func TestRefundDeposit_Admin(t *testing.T) {
	s := newTestServer(t)
	s.deposits.On("RefundDeposit", mock.Anything, admin("admin-1"), "dep-1", int64(100000), "partial").
		Return(&domain.Deposit{ID: "dep-1", Status: domain.DepositStatusRefunded}, nil).Once()

	rec := s.do(t, http.MethodPost, "/api/v1/deposits/dep-1/refund", s.token(t, "admin-1", "admin"),
		`{"amount":100000,"reason":"partial"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	s.deposits.AssertExpectations(t)
}

func TestGetDeposit_NotCaughtByCallbackRoutes(t *testing.T) {
	s := newTestServer(t)
	s.deposits.On("GetDeposit", mock.Anything, renter("cust-1"), "dep-1").Return(&domain.Deposit{ID: "dep-1"}, nil).Once()

	rec := s.do(t, http.MethodGet, "/api/v1/deposits/dep-1", s.token(t, "cust-1", "renter"), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	s.deposits.AssertExpectations(t)
}

func TestProductStock_IsPublic(t *testing.T) {
	s := newTestServer(t)
	s.inventory.On("GetStock", mock.Anything, "prod-1").
		Return(&service.ProductStock{ProductID: "prod-1", Stock: 2, AvailableStock: 1}, nil).Once()

	rec := s.do(t, http.MethodGet, "/api/v1/products/prod-1/stock", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available_stock":1`)
}

func TestNotifications(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "cust-1", "renter")
	s.notifications.On("GetNotifications", mock.Anything, "cust-1", int32(2), int32(5)).
		Return([]domain.Notification{{ID: "n-1"}}, int32(6), nil).Once()
	s.notifications.On("MarkAsRead", mock.Anything, "cust-1", "n-1").Return(nil).Once()

	rec := s.do(t, http.MethodGet, "/api/v1/notifications?page=2&pageSize=5", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":6`)

	rec = s.do(t, http.MethodPost, "/api/v1/notifications/n-1/read", tok, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	s.notifications.AssertExpectations(t)
}

func TestUpdateKYC_RequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	s.users.On("UpdateKYC", mock.Anything, admin("admin-1"), "cust-1", domain.KYCStatusPremium, true).
		Return(&domain.User{ID: "cust-1", KYCStatus: domain.KYCStatusPremium}, nil).Once()

	body := `{"tier":"premium","approved":true}`
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/v1/users/cust-1/kyc", s.token(t, "cust-1", "renter"), body).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/v1/users/cust-1/kyc", s.token(t, "admin-1", "admin"), body).Code)
	s.users.AssertExpectations(t)
}
