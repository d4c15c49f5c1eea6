package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentalhub-backend/internal/domain"
)

type depositRepository struct{ s *Store }

// Create enforces at most one active deposit per order, like the partial unique index in Postgres.
func (r *depositRepository) Create(ctx context.Context, deposit *domain.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if deposit.IsActive() {
		for _, d := range r.s.deposits {
			if d.OrderID == deposit.OrderID && d.IsActive() {
				return fmt.Errorf("%w: order %s already has an active deposit", domain.ErrConflict, deposit.OrderID)
			}
		}
	}
	r.s.deposits[deposit.ID] = cloneDeposit(deposit)
	r.s.depositSeq = append(r.s.depositSeq, deposit.ID)
	return nil
}

func (r *depositRepository) GetByID(ctx context.Context, id string) (*domain.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.deposits[id]
	if !ok {
		return nil, fmt.Errorf("%w: deposit %s", domain.ErrNotFound, id)
	}
	return cloneDeposit(d), nil
}

func (r *depositRepository) Update(ctx context.Context, deposit *domain.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.deposits[deposit.ID]; !ok {
		return fmt.Errorf("%w: deposit %s", domain.ErrNotFound, deposit.ID)
	}
	r.s.deposits[deposit.ID] = cloneDeposit(deposit)
	return nil
}

func (r *depositRepository) UpdateStatusIf(ctx context.Context, deposit *domain.Deposit, expected domain.DepositStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.deposits[deposit.ID]
	if !ok {
		return false, fmt.Errorf("%w: deposit %s", domain.ErrNotFound, deposit.ID)
	}
	if cur.Status != expected {
		return false, nil
	}
	r.s.deposits[deposit.ID] = cloneDeposit(deposit)
	return true, nil
}

func (r *depositRepository) FindActiveByOrder(ctx context.Context, orderID string) (*domain.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range r.s.depositSeq {
		d := r.s.deposits[id]
		if d.OrderID == orderID && d.IsActive() {
			return cloneDeposit(d), nil
		}
	}
	return nil, fmt.Errorf("%w: no active deposit for order %s", domain.ErrNotFound, orderID)
}

func (r *depositRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Deposit
	for _, id := range r.s.depositSeq {
		if d := r.s.deposits[id]; d.OrderID == orderID {
			out = append(out, *cloneDeposit(d))
		}
	}
	return out, nil
}

func (r *depositRepository) ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Deposit
	for _, id := range r.s.depositSeq {
		d := r.s.deposits[id]
		if d.Status == domain.DepositStatusPending && d.ExpiresAt.Before(cutoff) {
			out = append(out, *cloneDeposit(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func cloneDeposit(d *domain.Deposit) *domain.Deposit {
	c := *d
	c.PaymentTransactionID = cloneStringPtr(d.PaymentTransactionID)
	c.PaymentURL = cloneStringPtr(d.PaymentURL)
	c.PaidAt = cloneTimePtr(d.PaidAt)
	c.RefundedAt = cloneTimePtr(d.RefundedAt)
	c.ForfeitedAt = cloneTimePtr(d.ForfeitedAt)
	return &c
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type paymentHistoryRepository struct{ s *Store }

func (r *paymentHistoryRepository) Create(ctx context.Context, entry *domain.PaymentHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *entry
	c.DepositID = cloneStringPtr(entry.DepositID)
	c.OrderID = cloneStringPtr(entry.OrderID)
	c.RawParams = make(map[string]string, len(entry.RawParams))
	for k, v := range entry.RawParams {
		c.RawParams[k] = v
	}
	r.s.history = append(r.s.history, &c)
	return nil
}

func (r *paymentHistoryRepository) ListByDeposit(ctx context.Context, depositID string) ([]domain.PaymentHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PaymentHistory
	for _, h := range r.s.history {
		if h.DepositID != nil && *h.DepositID == depositID {
			out = append(out, *h)
		}
	}
	return out, nil
}

type notificationRepository struct{ s *Store }

func (r *notificationRepository) Create(ctx context.Context, note *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *note
	r.s.notifications = append(r.s.notifications, &c)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var mine []domain.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if n := r.s.notifications[i]; n.UserID == userID {
			mine = append(mine, *n)
		}
	}
	total := int32(len(mine))
	if offset >= total {
		return []domain.Notification{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
}
