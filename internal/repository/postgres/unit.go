package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

type unitRepository struct {
	db dbtx
}

func NewUnitRepository(db *sql.DB) repository.UnitRepository {
	return &unitRepository{db: db}
}

const unitColumns = `id, product_id, unit_label, status, renter_id, updated_on`

func (r *unitRepository) CreateBatch(ctx context.Context, units []domain.Unit) error {
	query := `INSERT INTO units (` + unitColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	now := time.Now().UTC()
	for i := range units {
		u := &units[i]
		u.UpdatedOn = now
		if _, err := r.db.ExecContext(ctx, query, u.ID, u.ProductID, u.UnitLabel, u.Status, u.RenterID, u.UpdatedOn); err != nil {
			return translate(err, "unit "+u.ID)
		}
	}
	return nil
}

func (r *unitRepository) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	u := &domain.Unit{}
	err := r.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id).
		Scan(&u.ID, &u.ProductID, &u.UnitLabel, &u.Status, &u.RenterID, &u.UpdatedOn)
	if err != nil {
		return nil, translate(err, "unit "+id)
	}
	return u, nil
}

// ReserveAvailable is a single conditional UPDATE. SKIP LOCKED lets concurrent reservations
// pick different rows instead of queueing on the same one.
func (r *unitRepository) ReserveAvailable(ctx context.Context, productID, renterID string) (*domain.Unit, error) {
	query := `UPDATE units SET status = 'rented', renter_id = $2, updated_on = $3
	          WHERE id = (
	              SELECT id FROM units
	              WHERE product_id = $1 AND status = 'available'
	              ORDER BY unit_label
	              LIMIT 1
	              FOR UPDATE SKIP LOCKED
	          )
	          RETURNING ` + unitColumns
	logger.DatabaseCall("UPDATE", "units", "productID", productID, "renterID", renterID)

	u := &domain.Unit{}
	err := r.db.QueryRowContext(ctx, query, productID, renterID, time.Now().UTC()).
		Scan(&u.ID, &u.ProductID, &u.UnitLabel, &u.Status, &u.RenterID, &u.UpdatedOn)
	logger.DatabaseResult("UPDATE", 1, err, "productID", productID)
	if err != nil {
		return nil, translate(err, "no available unit for product "+productID)
	}
	return u, nil
}

func (r *unitRepository) MarkRented(ctx context.Context, unitID, renterID string) error {
	query := `UPDATE units SET status = 'rented', renter_id = $2, updated_on = $3
	          WHERE id = $1 AND (status = 'available' OR renter_id = $2)`
	res, err := r.db.ExecContext(ctx, query, unitID, renterID, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, unitID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: unit %s is rented by another customer", domain.ErrConflict, unitID)
	}
	return nil
}

func (r *unitRepository) Release(ctx context.Context, unitID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE units SET status = 'available', renter_id = NULL, updated_on = $2 WHERE id = $1`,
		unitID, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, "unit "+unitID)
}

func (r *unitRepository) CountByProduct(ctx context.Context, productID string) (domain.UnitCounts, error) {
	var c domain.UnitCounts
	query := `SELECT count(*),
	                 count(*) FILTER (WHERE status = 'available'),
	                 count(*) FILTER (WHERE status = 'rented')
	          FROM units WHERE product_id = $1`
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&c.Total, &c.Available, &c.Rented)
	return c, err
}
