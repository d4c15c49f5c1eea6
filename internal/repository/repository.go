package repository

import (
	"context"
	"errors"
	"time"

	"rentalhub-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type ShopRepository interface {
	Create(ctx context.Context, shop *domain.Shop) error
	GetByID(ctx context.Context, id string) (*domain.Shop, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	// AdjustAvailableStock adds delta to the display counter, clamped to [0, stock].
	AdjustAvailableStock(ctx context.Context, productID string, delta int) error
	SetAvailableStock(ctx context.Context, productID string, value int) error
}

type UnitRepository interface {
	CreateBatch(ctx context.Context, units []domain.Unit) error
	GetByID(ctx context.Context, id string) (*domain.Unit, error)
	// ReserveAvailable atomically flips one available unit of the product to rented.
	// It returns domain.ErrNotFound when no unit is available.
	ReserveAvailable(ctx context.Context, productID, renterID string) (*domain.Unit, error)
	// MarkRented sets an already reserved unit to rented for renterID. Idempotent.
	MarkRented(ctx context.Context, unitID, renterID string) error
	// Release sets the unit back to available and clears the renter.
	Release(ctx context.Context, unitID string) error
	CountByProduct(ctx context.Context, productID string) (domain.UnitCounts, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// Update writes the lifecycle columns: status, delivery date, evidence, cancel reason.
	Update(ctx context.Context, order *domain.Order) error
	// UpdateStatusIf writes the lifecycle columns only if the stored status still equals expected.
	// It reports false when another transition committed first.
	UpdateStatusIf(ctx context.Context, order *domain.Order, expected domain.OrderStatus) (bool, error)
	// UpdatePayment writes the payment columns: totals, payment status and deposit state.
	// The two writers touch disjoint columns so a gateway callback never clobbers a transition.
	UpdatePayment(ctx context.Context, order *domain.Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	// ListByStatus returns orders in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
}

type DepositRepository interface {
	// Create returns domain.ErrConflict when the order already has an active deposit.
	Create(ctx context.Context, deposit *domain.Deposit) error
	GetByID(ctx context.Context, id string) (*domain.Deposit, error)
	Update(ctx context.Context, deposit *domain.Deposit) error
	// UpdateStatusIf persists deposit only if its stored status still equals expected.
	// It reports false when another writer changed the status first.
	UpdateStatusIf(ctx context.Context, deposit *domain.Deposit, expected domain.DepositStatus) (bool, error)
	FindActiveByOrder(ctx context.Context, orderID string) (*domain.Deposit, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Deposit, error)
	ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.Deposit, error)
}

type PaymentHistoryRepository interface {
	Create(ctx context.Context, entry *domain.PaymentHistory) error
	ListByDeposit(ctx context.Context, depositID string) ([]domain.PaymentHistory, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}

// TxRepositories are the repositories bound to one unit of work.
type TxRepositories struct {
	Products ProductRepository
	Units    UnitRepository
	Orders   OrderRepository
}

var ErrTransactionsUnsupported = errors.New("storage does not support transactions")

// Transactor exposes multi-statement transactions when the storage backend has them.
type Transactor interface {
	SupportsTransactions() bool
	// WithinTransaction runs fn in one transaction, committing only if fn returns nil.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
