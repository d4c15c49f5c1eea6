package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/repository"
	"rentalhub-backend/internal/repository/postgres"
)

var unitCols = []string{"id", "product_id", "unit_label", "status", "renter_id", "updated_on"}

func TestUnitRepository_ReserveAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewUnitRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE units SET status = 'rented'").
			WithArgs("p1", "c1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(unitCols).AddRow("u1", "p1", "p1-1", "rented", "c1", time.Now()))

		u, err := repo.ReserveAvailable(ctx, "p1", "c1")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, domain.UnitStatusRented, u.Status)
		require.NotNil(t, u.RenterID)
		assert.Equal(t, "c1", *u.RenterID)
	})

	t.Run("NoneAvailable", func(t *testing.T) {
		mock.ExpectQuery("UPDATE units SET status = 'rented'").
			WithArgs("p1", "c2", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(unitCols))

		_, err := repo.ReserveAvailable(ctx, "p1", "c2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitRepository_MarkRented(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewUnitRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE units SET status = 'rented'").
			WithArgs("u1", "c1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.MarkRented(ctx, "u1", "c1"))
	})

	t.Run("RentedByOther", func(t *testing.T) {
		mock.ExpectExec("UPDATE units SET status = 'rented'").
			WithArgs("u1", "c2", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM units WHERE id = \\$1").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(unitCols).AddRow("u1", "p1", "p1-1", "rented", "c1", time.Now()))

		assert.ErrorIs(t, repo.MarkRented(ctx, "u1", "c2"), domain.ErrConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitRepository_CountByProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT count\\(\\*\\)").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "available", "rented"}).AddRow(3, 1, 2))

	counts, err := postgres.NewUnitRepository(db).CountByProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.UnitCounts{Total: 3, Available: 1, Rented: 2}, counts)
}

func TestProductRepository_AdjustAvailableStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewProductRepository(db)

	mock.ExpectExec("UPDATE products SET available_stock = LEAST\\(GREATEST").
		WithArgs("p1", -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.AdjustAvailableStock(context.Background(), "p1", -1))

	mock.ExpectExec("UPDATE products SET available_stock").
		WithArgs("missing", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.AdjustAvailableStock(context.Background(), "missing", 1), domain.ErrNotFound)
}

func TestOrderRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()
	cols := []string{"id", "customer_id", "unit_ids", "product_ids", "total_price", "duration_days", "status", "payment_status",
		"deposit_required", "deposit_amount", "deposit_status", "remaining_amount", "delivery_date",
		"dispatch_evidence", "delivery_evidence", "cancel_reason", "created_on", "updated_on"}

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("o1", "c1", "{u1,u2}", "{p1,p2}", 500000, 3, "pending_payment", "unpaid",
				true, 200000, "pending", 300000, nil, nil, nil, "", now, now))

		o, err := repo.GetByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, o.UnitIDs)
		assert.Equal(t, []string{"p1", "p2"}, o.ProductIDs)
		assert.Equal(t, domain.OrderStatusPendingPayment, o.Status)
		assert.Equal(t, int64(300000), o.RemainingAmount)
		assert.Nil(t, o.DeliveryDate)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDepositRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewDepositRepository(db)
	ctx := context.Background()
	d := &domain.Deposit{ID: "d1", OrderID: "o1", CustomerID: "c1", Amount: 300000,
		Status: domain.DepositStatusPending, PaymentMethod: domain.PaymentMethodVNPay}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO deposits").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Create(ctx, d))
	})

	t.Run("SecondActiveDeposit", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO deposits").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "deposits_one_active_per_order"})

		err := repo.Create(ctx, d)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestOrderRepository_UpdateStatusIf(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOrderRepository(db)
	ctx := context.Background()
	o := &domain.Order{ID: "o1", Status: domain.OrderStatusCanceled, CancelReason: "changed plans"}

	t.Run("Applied", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders SET (.+) WHERE id=\\$1 AND status=\\$8").
			WithArgs("o1", "canceled", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				"changed plans", sqlmock.AnyArg(), "pending_confirmation").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatusIf(ctx, o, domain.OrderStatusPendingConfirmation)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("LostRace", func(t *testing.T) {
		cols := []string{"id", "customer_id", "unit_ids", "product_ids", "total_price", "duration_days", "status", "payment_status",
			"deposit_required", "deposit_amount", "deposit_status", "remaining_amount", "delivery_date",
			"dispatch_evidence", "delivery_evidence", "cancel_reason", "created_on", "updated_on"}
		now := time.Now()
		mock.ExpectExec("UPDATE orders SET (.+) WHERE id=\\$1 AND status=\\$8").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("o1", "c1", "{u1}", "{p1}", 500000, 3, "pending_payment", "unpaid",
				false, 0, "", 500000, nil, nil, nil, "", now, now))

		ok, err := repo.UpdateStatusIf(ctx, o, domain.OrderStatusPendingConfirmation)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders SET (.+) WHERE id=\\$1 AND status=\\$8").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = \\$1").
			WithArgs("o1").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateStatusIf(ctx, o, domain.OrderStatusPendingConfirmation)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRepository_UpdateStatusIf(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewDepositRepository(db)
	ctx := context.Background()
	d := &domain.Deposit{ID: "d1", OrderID: "o1", Status: domain.DepositStatusPaid}

	t.Run("Applied", func(t *testing.T) {
		mock.ExpectExec("UPDATE deposits SET (.+) WHERE id=\\$1 AND status=\\$15").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatusIf(ctx, d, domain.DepositStatusPending)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("LostRace", func(t *testing.T) {
		cols := []string{"id", "order_id", "customer_id", "amount", "status", "payment_method", "payment_transaction_id",
			"payment_url", "expires_at", "paid_at", "refunded_at", "refund_amount", "forfeited_at", "forfeit_amount",
			"reason", "created_on", "updated_on"}
		now := time.Now()
		mock.ExpectExec("UPDATE deposits SET (.+) WHERE id=\\$1 AND status=\\$15").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM deposits WHERE id = \\$1").
			WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("d1", "o1", "c1", 300000, "paid", "vnpay", "T1", nil,
				now, now, nil, 0, nil, 0, "", now, now))

		ok, err := repo.UpdateStatusIf(ctx, d, domain.DepositStatusPending)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTransaction(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE units SET status = 'available'").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		store := postgres.NewStore(db, true)
		assert.True(t, store.SupportsTransactions())
		err = store.WithinTransaction(context.Background(), func(ctx context.Context, repos repository.TxRepositories) error {
			return repos.Units.Release(ctx, "u1")
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = postgres.NewStore(db, true).WithinTransaction(context.Background(), func(ctx context.Context, repos repository.TxRepositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Disabled", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := postgres.NewStore(db, false)
		assert.False(t, store.SupportsTransactions())
		err = store.WithinTransaction(context.Background(), func(ctx context.Context, repos repository.TxRepositories) error {
			return nil
		})
		assert.ErrorIs(t, err, repository.ErrTransactionsUnsupported)
	})
}
