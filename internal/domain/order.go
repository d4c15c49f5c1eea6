package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPendingConfirmation OrderStatus = "pending_confirmation"
	OrderStatusPendingPayment      OrderStatus = "pending_payment"
	OrderStatusConfirmed           OrderStatus = "confirmed"
	OrderStatusInDelivery          OrderStatus = "in_delivery"
	OrderStatusBeforeDeadline      OrderStatus = "before_deadline"
	OrderStatusReturnProduct       OrderStatus = "return_product"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusCanceled            OrderStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid      PaymentStatus = "unpaid"
	PaymentStatusDepositPaid PaymentStatus = "deposit_paid"
	PaymentStatusPaid        PaymentStatus = "paid"
)

type Order struct {
	ID               string        `json:"id"`
	CustomerID       string        `json:"customer_id"`
	UnitIDs          []string      `json:"unit_ids"`
	ProductIDs       []string      `json:"product_ids"`
	TotalPrice       int64         `json:"total_price"`
	Duration         int           `json:"duration"` // days
	Status           OrderStatus   `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	DepositRequired  bool          `json:"deposit_required"`
	DepositAmount    int64         `json:"deposit_amount"`
	DepositStatus    DepositStatus `json:"deposit_status"`
	RemainingAmount  int64         `json:"remaining_amount"`
	DeliveryDate     *time.Time    `json:"delivery_date,omitempty"`
	DispatchEvidence []string      `json:"dispatch_evidence,omitempty"`
	DeliveryEvidence []string      `json:"delivery_evidence,omitempty"`
	CancelReason     string        `json:"cancel_reason,omitempty"`
	CreatedOn        time.Time     `json:"created_on"`
	UpdatedOn        time.Time     `json:"updated_on"`
}

// NewOrder assembles a pending_confirmation order from already reserved units.
func NewOrder(id, customerID string, units []Unit, totalPrice int64, duration int, depositAmount int64, now time.Time) *Order {
	o := &Order{
		ID:            id,
		CustomerID:    customerID,
		UnitIDs:       make([]string, 0, len(units)),
		ProductIDs:    make([]string, 0, len(units)),
		TotalPrice:    totalPrice,
		Duration:      duration,
		Status:        OrderStatusPendingConfirmation,
		PaymentStatus: PaymentStatusUnpaid,
		CreatedOn:     now,
		UpdatedOn:     now,
	}
	for _, u := range units {
		o.UnitIDs = append(o.UnitIDs, u.ID)
		o.ProductIDs = append(o.ProductIDs, u.ProductID)
	}
	o.SetDepositRequirement(depositAmount)
	return o
}

// SetDepositRequirement records the required deposit and recomputes the remaining amount.
func (o *Order) SetDepositRequirement(amount int64) {
	o.DepositAmount = amount
	o.DepositRequired = amount > 0
	if o.DepositRequired {
		if o.DepositStatus == "" || o.DepositStatus == DepositStatusNotRequired {
			o.DepositStatus = DepositStatusPending
		}
	} else {
		o.DepositStatus = DepositStatusNotRequired
	}
	o.recomputeRemaining()
}

func (o *Order) SetTotalPrice(total int64) {
	o.TotalPrice = total
	o.recomputeRemaining()
}

func (o *Order) recomputeRemaining() {
	o.RemainingAmount = o.TotalPrice - o.DepositAmount
}

// MarkDepositPaid mirrors a settled deposit onto the order.
func (o *Order) MarkDepositPaid(now time.Time) {
	o.DepositStatus = DepositStatusPaid
	if o.RemainingAmount <= 0 {
		o.PaymentStatus = PaymentStatusPaid
	} else {
		o.PaymentStatus = PaymentStatusDepositPaid
	}
	o.UpdatedOn = now
}

// DepositSatisfied reports whether the order may move past pending_payment.
func (o *Order) DepositSatisfied() bool {
	return !o.DepositRequired || o.DepositStatus == DepositStatusPaid
}

// ReturnDueAt is deliveryDate + duration days. ok is false until the order was delivered.
func (o *Order) ReturnDueAt() (due time.Time, ok bool) {
	if o.DeliveryDate == nil {
		return time.Time{}, false
	}
	return o.DeliveryDate.AddDate(0, 0, o.Duration), true
}

func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCanceled
}

// Party is the role an actor plays relative to one order.
type Party string

const (
	PartyCustomer Party = "customer"
	PartyOwner    Party = "owner"
	PartyAdmin    Party = "admin"
	PartySystem   Party = "system"
)

type transitionRule struct {
	from    []OrderStatus
	parties []Party
	// customerFrom narrows the legal source states when only the customer is acting.
	customerFrom []OrderStatus
}

var transitions = map[OrderStatus]transitionRule{
	OrderStatusPendingPayment: {
		from:    []OrderStatus{OrderStatusPendingConfirmation},
		parties: []Party{PartyOwner},
	},
	OrderStatusConfirmed: {
		from:    []OrderStatus{OrderStatusPendingPayment},
		parties: []Party{PartyOwner},
	},
	OrderStatusInDelivery: {
		from:    []OrderStatus{OrderStatusConfirmed},
		parties: []Party{PartyOwner},
	},
	OrderStatusBeforeDeadline: {
		from:    []OrderStatus{OrderStatusInDelivery},
		parties: []Party{PartyCustomer},
	},
	OrderStatusReturnProduct: {
		from:    []OrderStatus{OrderStatusBeforeDeadline, OrderStatusInDelivery},
		parties: []Party{PartyCustomer, PartySystem},
	},
	OrderStatusCompleted: {
		from:    []OrderStatus{OrderStatusReturnProduct},
		parties: []Party{PartyOwner},
	},
	OrderStatusCanceled: {
		from:         []OrderStatus{OrderStatusPendingConfirmation, OrderStatusPendingPayment, OrderStatusConfirmed},
		parties:      []Party{PartyOwner, PartyCustomer},
		customerFrom: []OrderStatus{OrderStatusPendingConfirmation, OrderStatusPendingPayment},
	},
}

// CheckTransition validates moving from -> to for an actor playing the given parties.
// Admins may act for any party.
func CheckTransition(from, to OrderStatus, parties []Party) error {
	rule, ok := transitions[to]
	if !ok {
		return fmt.Errorf("%w: %q is not a reachable order status", ErrPreconditionFailed, to)
	}
	if !containsStatus(rule.from, from) {
		return fmt.Errorf("%w: cannot move order from %s to %s (requires status %s)",
			ErrPreconditionFailed, from, to, joinStatuses(rule.from))
	}

	if hasParty(parties, PartyAdmin) {
		return nil
	}
	allowed := false
	for _, p := range rule.parties {
		if hasParty(parties, p) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: only %s may move an order to %s", ErrForbidden, joinParties(rule.parties), to)
	}

	if rule.customerFrom != nil && hasParty(parties, PartyCustomer) && !hasOtherThanCustomer(parties, rule.parties) {
		if !containsStatus(rule.customerFrom, from) {
			return fmt.Errorf("%w: customer may only move an order to %s while it is %s",
				ErrPreconditionFailed, to, joinStatuses(rule.customerFrom))
		}
	}
	return nil
}

var statusSynonyms = map[string]OrderStatus{
	"cancelled":  OrderStatusCanceled,
	"approved":   OrderStatusConfirmed,
	"shipped":    OrderStatusInDelivery,
	"delivering": OrderStatusInDelivery,
	"received":   OrderStatusBeforeDeadline,
	"returning":  OrderStatusReturnProduct,
	"complete":   OrderStatusCompleted,
}

// CanonicalOrderStatus maps legacy and alternate labels onto the canonical status set.
func CanonicalOrderStatus(raw string) (OrderStatus, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := statusSynonyms[s]; ok {
		return canonical, nil
	}
	status := OrderStatus(s)
	if status == OrderStatusPendingConfirmation {
		return status, nil
	}
	if _, ok := transitions[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, raw)
}

func containsStatus(list []OrderStatus, s OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasParty(list []Party, p Party) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

// hasOtherThanCustomer reports whether the actor also plays a non-customer party the rule allows.
func hasOtherThanCustomer(parties, allowed []Party) bool {
	for _, p := range parties {
		if p != PartyCustomer && hasParty(allowed, p) {
			return true
		}
	}
	return false
}

func joinStatuses(list []OrderStatus) string {
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = string(s)
	}
	return strings.Join(parts, " or ")
}

func joinParties(list []Party) string {
	parts := make([]string, len(list))
	for i, p := range list {
		parts[i] = string(p)
	}
	return strings.Join(parts, " or ")
}
