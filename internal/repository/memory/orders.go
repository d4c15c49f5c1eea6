package memory

import (
	"context"
	"fmt"
	"time"

	"rentalhub-backend/internal/domain"
)

type orderRepository struct{ s *Store }

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; ok {
		return fmt.Errorf("%w: order %s exists", domain.ErrConflict, order.ID)
	}
	r.s.orders[order.ID] = cloneOrder(order)
	r.s.orderSeq = append(r.s.orderSeq, order.ID)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.patch(order.ID, func(cur *domain.Order) { applyLifecycle(cur, order) })
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, order *domain.Order, expected domain.OrderStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[order.ID]
	if !ok {
		return false, fmt.Errorf("%w: order %s", domain.ErrNotFound, order.ID)
	}
	if cur.Status != expected {
		return false, nil
	}
	applyLifecycle(cur, order)
	cur.UpdatedOn = time.Now().UTC()
	return true, nil
}

func applyLifecycle(cur, order *domain.Order) {
	in := cloneOrder(order)
	cur.Status = in.Status
	cur.DeliveryDate = in.DeliveryDate
	cur.DispatchEvidence = in.DispatchEvidence
	cur.DeliveryEvidence = in.DeliveryEvidence
	cur.CancelReason = in.CancelReason
}

func (r *orderRepository) UpdatePayment(ctx context.Context, order *domain.Order) error {
	return r.patch(order.ID, func(cur *domain.Order) {
		cur.TotalPrice = order.TotalPrice
		cur.PaymentStatus = order.PaymentStatus
		cur.DepositRequired = order.DepositRequired
		cur.DepositAmount = order.DepositAmount
		cur.DepositStatus = order.DepositStatus
		cur.RemainingAmount = order.RemainingAmount
	})
}

func (r *orderRepository) patch(id string, apply func(cur *domain.Order)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	apply(cur)
	cur.UpdatedOn = time.Now().UTC()
	return nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.Status == status }), nil
}

func (r *orderRepository) list(match func(*domain.Order) bool) []domain.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Order
	for _, id := range r.s.orderSeq {
		if o := r.s.orders[id]; match(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.UnitIDs = cloneStrings(o.UnitIDs)
	c.ProductIDs = cloneStrings(o.ProductIDs)
	c.DispatchEvidence = cloneStrings(o.DispatchEvidence)
	c.DeliveryEvidence = cloneStrings(o.DeliveryEvidence)
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		c.DeliveryDate = &d
	}
	return &c
}
