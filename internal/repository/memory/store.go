// Package memory is an in-process storage backend. It has no multi-statement
// transactions, so order creation runs the best-effort reservation path against it.
package memory

import (
	"context"
	"sync"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	users         map[string]*domain.User
	shops         map[string]*domain.Shop
	products      map[string]*domain.Product
	productOrder  []string
	units         map[string]*domain.Unit
	unitsByProd   map[string][]string
	orders        map[string]*domain.Order
	orderSeq      []string
	deposits      map[string]*domain.Deposit
	depositSeq    []string
	history       []*domain.PaymentHistory
	notifications []*domain.Notification

	Users          repository.UserRepository
	Shops          repository.ShopRepository
	Products       repository.ProductRepository
	Units          repository.UnitRepository
	Orders         repository.OrderRepository
	Deposits       repository.DepositRepository
	PaymentHistory repository.PaymentHistoryRepository
	Notifications  repository.NotificationRepository
}

func NewStore() *Store {
	s := &Store{
		users:       make(map[string]*domain.User),
		shops:       make(map[string]*domain.Shop),
		products:    make(map[string]*domain.Product),
		units:       make(map[string]*domain.Unit),
		unitsByProd: make(map[string][]string),
		orders:      make(map[string]*domain.Order),
		deposits:    make(map[string]*domain.Deposit),
	}
	s.Users = &userRepository{s}
	s.Shops = &shopRepository{s}
	s.Products = &productRepository{s}
	s.Units = &unitRepository{s}
	s.Orders = &orderRepository{s}
	s.Deposits = &depositRepository{s}
	s.PaymentHistory = &paymentHistoryRepository{s}
	s.Notifications = &notificationRepository{s}
	return s
}

func (s *Store) SupportsTransactions() bool { return false }

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	return repository.ErrTransactionsUnsupported
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
