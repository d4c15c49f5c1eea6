package domain

import "time"

type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusPaid      DepositStatus = "paid"
	DepositStatusRefunded  DepositStatus = "refunded"
	DepositStatusForfeited DepositStatus = "forfeited"
	DepositStatusCancelled DepositStatus = "cancelled"
	DepositStatusExpired   DepositStatus = "expired"
	// DepositStatusNotRequired only appears on orders.
	DepositStatusNotRequired DepositStatus = "not_required"
)

type PaymentMethod string

const (
	PaymentMethodVNPay  PaymentMethod = "vnpay"
	PaymentMethodBankQR PaymentMethod = "qr"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case "", PaymentMethodVNPay:
		return PaymentMethodVNPay, true
	case PaymentMethodBankQR:
		return PaymentMethodBankQR, true
	}
	return "", false
}

type Deposit struct {
	ID                   string        `json:"id"`
	OrderID              string        `json:"order_id"`
	CustomerID           string        `json:"customer_id"`
	Amount               int64         `json:"amount"`
	Status               DepositStatus `json:"status"`
	PaymentMethod        PaymentMethod `json:"payment_method"`
	PaymentTransactionID *string       `json:"payment_transaction_id,omitempty"`
	PaymentURL           *string       `json:"payment_url,omitempty"`
	ExpiresAt            time.Time     `json:"expires_at"`
	PaidAt               *time.Time    `json:"paid_at,omitempty"`
	RefundedAt           *time.Time    `json:"refunded_at,omitempty"`
	RefundAmount         int64         `json:"refund_amount,omitempty"`
	ForfeitedAt          *time.Time    `json:"forfeited_at,omitempty"`
	ForfeitAmount        int64         `json:"forfeit_amount,omitempty"`
	Reason               string        `json:"reason,omitempty"`
	CreatedOn            time.Time     `json:"created_on"`
	UpdatedOn            time.Time     `json:"updated_on"`
}

// IsActive reports whether the deposit blocks creation of another one for the same order.
func (d *Deposit) IsActive() bool {
	return d.Status == DepositStatusPending || d.Status == DepositStatusPaid
}

type PaymentHistoryStatus string

const (
	PaymentHistoryPending PaymentHistoryStatus = "pending"
	PaymentHistorySuccess PaymentHistoryStatus = "success"
	PaymentHistoryFailed  PaymentHistoryStatus = "failed"
)

type CallbackChannel string

const (
	CallbackChannelReturn CallbackChannel = "return"
	CallbackChannelIPN    CallbackChannel = "ipn"
)

// PaymentHistory is an append-only record of one gateway callback delivery.
type PaymentHistory struct {
	ID            string               `json:"id"`
	DepositID     *string              `json:"deposit_id,omitempty"`
	OrderID       *string              `json:"order_id,omitempty"`
	Amount        int64                `json:"amount"`
	Status        PaymentHistoryStatus `json:"status"`
	TransactionID string               `json:"transaction_id"`
	ResponseCode  string               `json:"response_code"`
	Channel       CallbackChannel      `json:"channel"`
	RawParams     map[string]string    `json:"raw_params"`
	CreatedOn     time.Time            `json:"created_on"`
}
