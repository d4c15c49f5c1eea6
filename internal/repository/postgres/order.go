package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

type orderRepository struct {
	db dbtx
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, customer_id, unit_ids, product_ids, total_price, duration_days, status, payment_status,
	deposit_required, deposit_amount, deposit_status, remaining_amount, delivery_date,
	dispatch_evidence, delivery_evidence, cancel_reason, created_on, updated_on`

func scanOrder(row interface{ Scan(...any) error }, o *domain.Order) error {
	return row.Scan(&o.ID, &o.CustomerID, pq.Array(&o.UnitIDs), pq.Array(&o.ProductIDs), &o.TotalPrice, &o.Duration,
		&o.Status, &o.PaymentStatus, &o.DepositRequired, &o.DepositAmount, &o.DepositStatus, &o.RemainingAmount,
		&o.DeliveryDate, pq.Array(&o.DispatchEvidence), pq.Array(&o.DeliveryEvidence), &o.CancelReason,
		&o.CreatedOn, &o.UpdatedOn)
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.CustomerID, pq.Array(o.UnitIDs), pq.Array(o.ProductIDs), o.TotalPrice, o.Duration,
		o.Status, o.PaymentStatus, o.DepositRequired, o.DepositAmount, o.DepositStatus, o.RemainingAmount,
		o.DeliveryDate, pq.Array(o.DispatchEvidence), pq.Array(o.DeliveryEvidence), o.CancelReason,
		o.CreatedOn, o.UpdatedOn)
	return translate(err, "order "+o.ID)
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o := &domain.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), o); err != nil {
		return nil, translate(err, "order "+id)
	}
	return o, nil
}

const orderLifecycleSet = `status=$2, delivery_date=$3, dispatch_evidence=$4, delivery_evidence=$5,
	cancel_reason=$6, updated_on=$7`

func orderLifecycleArgs(o *domain.Order) []any {
	return []any{o.ID, o.Status, o.DeliveryDate, pq.Array(o.DispatchEvidence), pq.Array(o.DeliveryEvidence),
		o.CancelReason, o.UpdatedOn}
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	o.UpdatedOn = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET `+orderLifecycleSet+` WHERE id=$1`, orderLifecycleArgs(o)...)
	if err != nil {
		return err
	}
	return requireRow(res, "order "+o.ID)
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, o *domain.Order, expected domain.OrderStatus) (bool, error) {
	o.UpdatedOn = time.Now().UTC()
	args := append(orderLifecycleArgs(o), expected)
	logger.DatabaseCall("UPDATE", "orders", "orderID", o.ID, "expected", expected, "next", o.Status)
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET `+orderLifecycleSet+` WHERE id=$1 AND status=$8`, args...)
	if err != nil {
		return false, translate(err, "order "+o.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, o.ID); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

func (r *orderRepository) UpdatePayment(ctx context.Context, o *domain.Order) error {
	o.UpdatedOn = time.Now().UTC()
	query := `UPDATE orders SET total_price=$2, payment_status=$3, deposit_required=$4, deposit_amount=$5,
	          deposit_status=$6, remaining_amount=$7, updated_on=$8
	          WHERE id=$1`
	res, err := r.db.ExecContext(ctx, query, o.ID, o.TotalPrice, o.PaymentStatus, o.DepositRequired, o.DepositAmount,
		o.DepositStatus, o.RemainingAmount, o.UpdatedOn)
	if err != nil {
		return err
	}
	return requireRow(res, "order "+o.ID)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_on DESC`, customerID)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_on`, status)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
