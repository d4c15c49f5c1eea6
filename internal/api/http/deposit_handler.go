package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/payment/vnpay"
	"rentalhub-backend/internal/service"
)

type createDepositRequest struct {
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
	BankCode      string `json:"bankCode"`
}

type settleRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// ipnResponse is the body shape the gateway expects from the IPN endpoint.
type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// CreateDeposit takes the payment method from the query string, falling back to the body.
func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req createDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	method := req.PaymentMethod
	if q := r.URL.Query().Get("paymentMethod"); q != "" {
		method = q
	}
	if req.OrderID == "" {
		req.OrderID = r.URL.Query().Get("orderId")
	}

	payment, err := h.deposits.CreateDeposit(r.Context(), a, service.CreateDepositRequest{
		OrderID:  req.OrderID,
		Method:   domain.PaymentMethod(method),
		ClientIP: clientIP(r),
		BankCode: req.BankCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if payment.Reused {
		status = http.StatusOK
	}
	writeJSON(w, status, payment)
}

func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	deposit, err := h.deposits.GetDeposit(r.Context(), a, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposit)
}

func (h *Handler) RefundDeposit(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.deposits.RefundDeposit)
}

func (h *Handler) ForfeitDeposit(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.deposits.ForfeitDeposit)
}

type settleFunc = func(ctx context.Context, actor service.Actor, depositID string, amount int64, reason string) (*domain.Deposit, error)

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, fn settleFunc) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	deposit, err := fn(r.Context(), a, pathID(r), req.Amount, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposit)
}

// VNPayReturn handles the browser redirect back from the gateway and forwards the
// customer to the frontend with the outcome.
func (h *Handler) VNPayReturn(w http.ResponseWriter, r *http.Request) {
	result := h.deposits.HandleGatewayCallback(r.Context(), vnpay.ParamsFromQuery(r.URL.Query()), domain.CallbackChannelReturn)
	http.Redirect(w, r, h.returnRedirect(result), http.StatusFound)
}

func (h *Handler) returnRedirect(result service.CallbackResult) string {
	q := url.Values{}
	q.Set("payment", string(result.Outcome))
	if result.DepositID != "" {
		q.Set("depositId", result.DepositID)
	}
	if result.OrderID != "" {
		q.Set("orderId", result.OrderID)
	}
	sep := "?"
	if strings.Contains(h.frontendURL, "?") {
		sep = "&"
	}
	return h.frontendURL + sep + q.Encode()
}

// VNPayIPN is the server-to-server notification. The gateway retries on anything other
// than HTTP 200, so every outcome is reported through RspCode.
func (h *Handler) VNPayIPN(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic while handling IPN", "panic", fmt.Sprint(rec))
			writeJSON(w, http.StatusOK, ipnResponse{RspCode: service.RspCodeUnknown, Message: "Unknown error"})
		}
	}()
	result := h.deposits.HandleGatewayCallback(r.Context(), vnpay.ParamsFromQuery(r.URL.Query()), domain.CallbackChannelIPN)
	writeJSON(w, http.StatusOK, ipnResponse{RspCode: result.RspCode, Message: result.Message})
}
