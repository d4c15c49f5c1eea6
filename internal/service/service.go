package service

import (
	"context"
	"time"

	"rentalhub-backend/internal/domain"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Roles  []domain.Role
	system bool
}

func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == domain.RoleAdmin {
			return true
		}
	}
	return false
}

// SystemActor is used by background jobs. It cannot be built outside this package.
var SystemActor = Actor{UserID: "system", system: true}

func (a Actor) IsSystem() bool { return a.system }

// ReconcileReport describes one product after inventory reconciliation.
type ReconcileReport struct {
	ProductID      string `json:"product_id"`
	Stock          int    `json:"stock"`
	UnitsBefore    int    `json:"units_before"`
	Created        int    `json:"created"`
	Surplus        int    `json:"surplus"`
	Available      int    `json:"available"`
	AvailableStock int    `json:"available_stock"`
}

type ProductStock struct {
	ProductID      string            `json:"product_id"`
	Stock          int               `json:"stock"`
	AvailableStock int               `json:"available_stock"`
	Units          domain.UnitCounts `json:"units"`
}

// PersistOrderFunc stores the order built from reserved units. It runs inside the
// reservation's unit of work when the storage supports transactions.
type PersistOrderFunc func(ctx context.Context, orders OrderWriter, units []domain.Unit) error

// OrderWriter is the part of the order repository available while units are reserved.
type OrderWriter interface {
	Create(ctx context.Context, order *domain.Order) error
}

type InventoryService interface {
	// ReserveOneAvailableUnit fails with domain.ErrNoUnitsProvisioned or domain.ErrAllUnitsRented.
	ReserveOneAvailableUnit(ctx context.Context, productID, renterID string) (*domain.Unit, error)
	// ReserveUnitsForOrder reserves one unit per product id and persists the order. With
	// transactions the whole step is atomic; without them each reservation is atomic on its
	// own and earlier reservations are released on a best-effort basis when a later one fails.
	ReserveUnitsForOrder(ctx context.Context, productIDs []string, renterID string, persist PersistOrderFunc) ([]domain.Unit, error)
	MarkRented(ctx context.Context, unitID, renterID string) error
	Release(ctx context.Context, unitID string) error
	AdjustDisplayStock(ctx context.Context, productID string, delta int) error
	ProvisionUnits(ctx context.Context, actor Actor, productID string) (*ReconcileReport, error)
	ReconcileProduct(ctx context.Context, productID string) (*ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]ReconcileReport, error)
	GetStock(ctx context.Context, productID string) (*ProductStock, error)
	ResolveShopOwner(ctx context.Context, productID string) (string, error)
}

type CreateOrderRequest struct {
	ProductIDs []string `json:"productIds"`
	Duration   int      `json:"duration"`
	TotalPrice int64    `json:"totalPrice"`
}

// TransitionOptions carries the optional inputs of a status change.
type TransitionOptions struct {
	Evidence []string
	Reason   string
}

// SweepResult counts what a background sweep did. Failures do not stop a sweep.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, actor Actor) ([]domain.Order, error)
	// UpdateStatus accepts canonical or legacy status labels.
	UpdateStatus(ctx context.Context, actor Actor, orderID, status string, opts TransitionOptions) (*domain.Order, error)
	// Confirm advances one owner step: pending_confirmation -> pending_payment -> confirmed.
	Confirm(ctx context.Context, actor Actor, orderID string) (*domain.Order, error)
	StartDelivery(ctx context.Context, actor Actor, orderID string, evidence []string) (*domain.Order, error)
	MarkReceived(ctx context.Context, actor Actor, orderID string, evidence []string) (*domain.Order, error)
	RequestReturn(ctx context.Context, actor Actor, orderID string) (*domain.Order, error)
	Complete(ctx context.Context, actor Actor, orderID string) (*domain.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID, reason string) (*domain.Order, error)
	// ResolveOwner derives the shop owner through order -> first unit -> product -> shop -> user.
	ResolveOwner(ctx context.Context, order *domain.Order) (string, error)
	AdvanceDueRentals(ctx context.Context, now time.Time) (SweepResult, error)
}

type CreateDepositRequest struct {
	OrderID  string
	Method   domain.PaymentMethod
	ClientIP string
	BankCode string
}

type DepositPayment struct {
	Deposit    *domain.Deposit `json:"deposit"`
	PaymentURL string          `json:"paymentUrl,omitempty"`
	Reused     bool            `json:"reused"`
}

// Gateway response codes returned on the IPN channel.
const (
	RspCodeOK             = "00"
	RspCodeNotFound       = "01"
	RspCodeAlreadySettled = "02"
	RspCodeAmountMismatch = "04"
	RspCodeInvalid        = "97"
	RspCodeUnknown        = "99"
)

// CallbackOutcome is what the browser-facing return channel reports to the frontend.
type CallbackOutcome string

const (
	OutcomeSuccess        CallbackOutcome = "success"
	OutcomeFailed         CallbackOutcome = "failed"
	OutcomeInvalid        CallbackOutcome = "invalid"
	OutcomeNotFound       CallbackOutcome = "not_found"
	OutcomeAmountMismatch CallbackOutcome = "amount_mismatch"
	OutcomeAlreadySettled CallbackOutcome = "already_settled"
	OutcomeError          CallbackOutcome = "error"
)

type CallbackResult struct {
	RspCode   string
	Message   string
	Outcome   CallbackOutcome
	DepositID string
	OrderID   string
}

type DepositDetails struct {
	Deposit domain.Deposit          `json:"deposit"`
	History []domain.PaymentHistory `json:"history,omitempty"`
}

type DepositService interface {
	// CreateDeposit returns the order's active deposit if there is one, otherwise creates it.
	CreateDeposit(ctx context.Context, actor Actor, req CreateDepositRequest) (*DepositPayment, error)
	GetDeposit(ctx context.Context, actor Actor, depositID string) (*domain.Deposit, error)
	// ListOrderDeposits includes payment history for admins.
	ListOrderDeposits(ctx context.Context, actor Actor, orderID string) ([]DepositDetails, error)
	// HandleGatewayCallback never returns an error: every outcome maps to a gateway response code.
	HandleGatewayCallback(ctx context.Context, params map[string]string, channel domain.CallbackChannel) CallbackResult
	RefundDeposit(ctx context.Context, actor Actor, depositID string, amount int64, reason string) (*domain.Deposit, error)
	ForfeitDeposit(ctx context.Context, actor Actor, depositID string, amount int64, reason string) (*domain.Deposit, error)
	// RefundForOrder refunds the order's paid deposit in full. It returns nil when nothing was paid.
	RefundForOrder(ctx context.Context, orderID, reason string) (*domain.Deposit, error)
	// CancelPendingForOrder cancels an unpaid deposit. Paid deposits are left for an admin decision.
	CancelPendingForOrder(ctx context.Context, orderID, reason string) (*domain.Deposit, error)
	ExpireStaleDeposits(ctx context.Context, now time.Time) (SweepResult, error)
}

// EmailSender delivers one plain-text email.
type EmailSender interface {
	Send(ctx context.Context, to, toName, subject, body string) error
}

// PushSender delivers a push notification to every device of a user.
type PushSender interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
}

type UserService interface {
	GetUserProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateKYC(ctx context.Context, actor Actor, userID string, tier domain.KYCStatus, approved bool) (*domain.User, error)
}
