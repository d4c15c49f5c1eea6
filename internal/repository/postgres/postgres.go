package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repositories can run inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db           *sql.DB
	transactions bool

	Users          repository.UserRepository
	Shops          repository.ShopRepository
	Products       repository.ProductRepository
	Units          repository.UnitRepository
	Orders         repository.OrderRepository
	Deposits       repository.DepositRepository
	PaymentHistory repository.PaymentHistoryRepository
	Notifications  repository.NotificationRepository
}

// NewStore wires every repository onto db. transactions mirrors the database.transactions
// setting; deployments behind a pooler that breaks multi-statement transactions turn it off.
func NewStore(db *sql.DB, transactions bool) *Store {
	return &Store{
		db:             db,
		transactions:   transactions,
		Users:          NewUserRepository(db),
		Shops:          NewShopRepository(db),
		Products:       NewProductRepository(db),
		Units:          NewUnitRepository(db),
		Orders:         NewOrderRepository(db),
		Deposits:       NewDepositRepository(db),
		PaymentHistory: NewPaymentHistoryRepository(db),
		Notifications:  NewNotificationRepository(db),
	}
}

func (s *Store) SupportsTransactions() bool { return s.transactions }

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	if !s.transactions {
		return repository.ErrTransactionsUnsupported
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repos := repository.TxRepositories{
		Products: &productRepository{db: tx},
		Units:    &unitRepository{db: tx},
		Orders:   &orderRepository{db: tx},
	}
	if err := fn(ctx, repos); err != nil {
		logger.Debug("Transaction rolled back", "error", err)
		return err
	}
	return tx.Commit()
}

const uniqueViolation = "23505"

// translate maps driver errors onto the domain error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s (%s)", domain.ErrConflict, what, pqErr.Constraint)
	}
	return err
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return nil
}
