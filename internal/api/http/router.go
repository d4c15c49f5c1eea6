package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentalhub-backend/internal/config"
	"rentalhub-backend/internal/security"
)

// NewRouter registers every API route under a name from config.EndpointSecurityConfig.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	r := mux.NewRouter()
	auth := NewAuthMiddleware(tm)
	r.Use(recoverMiddleware, loggingMiddleware, auth.Handler)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost).Name(config.RouteCreateOrder)
	api.HandleFunc("/orders", h.ListMyOrders).Methods(http.MethodGet).Name(config.RouteListMyOrders)
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet).Name(config.RouteGetOrder)
	api.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods(http.MethodPut).Name(config.RouteUpdateOrderStatus)
	api.HandleFunc("/orders/{id}/confirm", h.ConfirmOrder).Methods(http.MethodPost).Name(config.RouteConfirmOrder)
	api.HandleFunc("/orders/{id}/start-delivery", h.StartDelivery).Methods(http.MethodPost).Name(config.RouteStartDelivery)
	api.HandleFunc("/orders/{id}/mark-received", h.MarkReceived).Methods(http.MethodPost).Name(config.RouteMarkReceived)
	api.HandleFunc("/orders/{id}/request-return", h.RequestReturn).Methods(http.MethodPost).Name(config.RouteRequestReturn)
	api.HandleFunc("/orders/{id}/complete", h.CompleteOrder).Methods(http.MethodPost).Name(config.RouteCompleteOrder)
	api.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods(http.MethodPost).Name(config.RouteCancelOrder)
	api.HandleFunc("/orders/{id}/deposits", h.ListOrderDeposits).Methods(http.MethodGet).Name(config.RouteListOrderDeposits)

	api.HandleFunc("/deposits", h.CreateDeposit).Methods(http.MethodPost).Name(config.RouteCreateDeposit)
	// Callback paths must be registered before /deposits/{id}.
	api.HandleFunc("/deposits/vnpay-return", h.VNPayReturn).Methods(http.MethodGet).Name(config.RouteVNPayReturn)
	api.HandleFunc("/deposits/vnpay-ipn", h.VNPayIPN).Methods(http.MethodGet).Name(config.RouteVNPayIPN)
	api.HandleFunc("/deposits/{id}", h.GetDeposit).Methods(http.MethodGet).Name(config.RouteGetDeposit)
	api.HandleFunc("/deposits/{id}/refund", h.RefundDeposit).Methods(http.MethodPost).Name(config.RouteRefundDeposit)
	api.HandleFunc("/deposits/{id}/forfeit", h.ForfeitDeposit).Methods(http.MethodPost).Name(config.RouteForfeitDeposit)

	api.HandleFunc("/products/{id}/units/provision", h.ProvisionUnits).Methods(http.MethodPost).Name(config.RouteProvisionUnits)
	api.HandleFunc("/products/{id}/stock", h.ProductStock).Methods(http.MethodGet).Name(config.RouteProductStock)

	api.HandleFunc("/users/me", h.GetMe).Methods(http.MethodGet).Name(config.RouteGetMe)
	api.HandleFunc("/users/{id}/kyc", h.UpdateKYC).Methods(http.MethodPut).Name(config.RouteUpdateKYC)

	api.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet).Name(config.RouteListNotifications)
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost).Name(config.RouteMarkNotification)

	return r
}
