package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

type depositRepository struct {
	db dbtx
}

func NewDepositRepository(db *sql.DB) repository.DepositRepository {
	return &depositRepository{db: db}
}

const depositColumns = `id, order_id, customer_id, amount, status, payment_method, payment_transaction_id, payment_url,
	expires_at, paid_at, refunded_at, refund_amount, forfeited_at, forfeit_amount, reason, created_on, updated_on`

func scanDeposit(row interface{ Scan(...any) error }, d *domain.Deposit) error {
	return row.Scan(&d.ID, &d.OrderID, &d.CustomerID, &d.Amount, &d.Status, &d.PaymentMethod, &d.PaymentTransactionID,
		&d.PaymentURL, &d.ExpiresAt, &d.PaidAt, &d.RefundedAt, &d.RefundAmount, &d.ForfeitedAt, &d.ForfeitAmount,
		&d.Reason, &d.CreatedOn, &d.UpdatedOn)
}

// Create relies on the partial unique index deposits_one_active_per_order; a second active
// deposit for the same order surfaces as domain.ErrConflict.
func (r *depositRepository) Create(ctx context.Context, d *domain.Deposit) error {
	query := `INSERT INTO deposits (` + depositColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	logger.DatabaseCall("INSERT", "deposits", "depositID", d.ID, "orderID", d.OrderID)
	_, err := r.db.ExecContext(ctx, query, d.ID, d.OrderID, d.CustomerID, d.Amount, d.Status, d.PaymentMethod,
		d.PaymentTransactionID, d.PaymentURL, d.ExpiresAt, d.PaidAt, d.RefundedAt, d.RefundAmount, d.ForfeitedAt,
		d.ForfeitAmount, d.Reason, d.CreatedOn, d.UpdatedOn)
	logger.DatabaseResult("INSERT", 1, err, "depositID", d.ID)
	return translate(err, "deposit for order "+d.OrderID)
}

func (r *depositRepository) GetByID(ctx context.Context, id string) (*domain.Deposit, error) {
	d := &domain.Deposit{}
	if err := scanDeposit(r.db.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id), d); err != nil {
		return nil, translate(err, "deposit "+id)
	}
	return d, nil
}

const depositUpdateSet = `amount=$2, status=$3, payment_method=$4, payment_transaction_id=$5, payment_url=$6, expires_at=$7,
	paid_at=$8, refunded_at=$9, refund_amount=$10, forfeited_at=$11, forfeit_amount=$12, reason=$13, updated_on=$14`

func depositUpdateArgs(d *domain.Deposit) []any {
	return []any{d.ID, d.Amount, d.Status, d.PaymentMethod, d.PaymentTransactionID, d.PaymentURL, d.ExpiresAt,
		d.PaidAt, d.RefundedAt, d.RefundAmount, d.ForfeitedAt, d.ForfeitAmount, d.Reason, d.UpdatedOn}
}

func (r *depositRepository) Update(ctx context.Context, d *domain.Deposit) error {
	d.UpdatedOn = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE deposits SET `+depositUpdateSet+` WHERE id=$1`, depositUpdateArgs(d)...)
	if err != nil {
		return translate(err, "deposit "+d.ID)
	}
	return requireRow(res, "deposit "+d.ID)
}

func (r *depositRepository) UpdateStatusIf(ctx context.Context, d *domain.Deposit, expected domain.DepositStatus) (bool, error) {
	d.UpdatedOn = time.Now().UTC()
	args := append(depositUpdateArgs(d), expected)
	logger.DatabaseCall("UPDATE", "deposits", "depositID", d.ID, "expected", expected, "next", d.Status)
	res, err := r.db.ExecContext(ctx, `UPDATE deposits SET `+depositUpdateSet+` WHERE id=$1 AND status=$15`, args...)
	if err != nil {
		return false, translate(err, "deposit "+d.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, d.ID); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

func (r *depositRepository) FindActiveByOrder(ctx context.Context, orderID string) (*domain.Deposit, error) {
	d := &domain.Deposit{}
	query := `SELECT ` + depositColumns + ` FROM deposits
	          WHERE order_id = $1 AND status IN ('pending', 'paid')
	          ORDER BY created_on DESC LIMIT 1`
	if err := scanDeposit(r.db.QueryRowContext(ctx, query, orderID), d); err != nil {
		return nil, translate(err, "no active deposit for order "+orderID)
	}
	return d, nil
}

func (r *depositRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Deposit, error) {
	return r.list(ctx, `SELECT `+depositColumns+` FROM deposits WHERE order_id = $1 ORDER BY created_on`, orderID)
}

func (r *depositRepository) ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.Deposit, error) {
	return r.list(ctx, `SELECT `+depositColumns+` FROM deposits WHERE status = 'pending' AND expires_at < $1 ORDER BY expires_at`, cutoff)
}

func (r *depositRepository) list(ctx context.Context, query string, args ...any) ([]domain.Deposit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		var d domain.Deposit
		if err := scanDeposit(rows, &d); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

type paymentHistoryRepository struct {
	db dbtx
}

func NewPaymentHistoryRepository(db *sql.DB) repository.PaymentHistoryRepository {
	return &paymentHistoryRepository{db: db}
}

func (r *paymentHistoryRepository) Create(ctx context.Context, h *domain.PaymentHistory) error {
	raw, err := json.Marshal(h.RawParams)
	if err != nil {
		return err
	}
	if h.CreatedOn.IsZero() {
		h.CreatedOn = time.Now().UTC()
	}
	query := `INSERT INTO payment_history (id, deposit_id, order_id, amount, status, transaction_id, response_code, channel, raw_params, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query, h.ID, h.DepositID, h.OrderID, h.Amount, h.Status, h.TransactionID,
		h.ResponseCode, h.Channel, raw, h.CreatedOn)
	return translate(err, "payment history "+h.ID)
}

func (r *paymentHistoryRepository) ListByDeposit(ctx context.Context, depositID string) ([]domain.PaymentHistory, error) {
	query := `SELECT id, deposit_id, order_id, amount, status, transaction_id, response_code, channel, raw_params, created_on
	          FROM payment_history WHERE deposit_id = $1 ORDER BY created_on`
	rows, err := r.db.QueryContext(ctx, query, depositID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PaymentHistory
	for rows.Next() {
		var h domain.PaymentHistory
		var raw []byte
		if err := rows.Scan(&h.ID, &h.DepositID, &h.OrderID, &h.Amount, &h.Status, &h.TransactionID,
			&h.ResponseCode, &h.Channel, &raw, &h.CreatedOn); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &h.RawParams); err != nil {
				return nil, err
			}
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
