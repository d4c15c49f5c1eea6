package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalhub-backend/internal/domain"
)

func seedUnits(t *testing.T, s *Store, productID string, n int) {
	t.Helper()
	units := make([]domain.Unit, n)
	for i := range units {
		units[i] = domain.Unit{
			ID:        fmt.Sprintf("%s-u%d", productID, i),
			ProductID: productID,
			UnitLabel: fmt.Sprintf("%s-%d", productID, i+1),
			Status:    domain.UnitStatusAvailable,
		}
	}
	require.NoError(t, s.Units.CreateBatch(context.Background(), units))
}

func TestUnitRepository_ConcurrentReserve(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUnits(t, s, "p1", 5)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved = map[string]string{}
		failures int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			renter := fmt.Sprintf("c%d", i)
			u, err := s.Units.ReserveAvailable(ctx, "p1", renter)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrNotFound)
				failures++
				return
			}
			_, dup := reserved[u.ID]
			assert.False(t, dup, "unit %s allocated twice", u.ID)
			reserved[u.ID] = renter
		}(i)
	}
	wg.Wait()

	assert.Len(t, reserved, 5)
	assert.Equal(t, 45, failures)

	counts, err := s.Units.CountByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.UnitCounts{Total: 5, Available: 0, Rented: 5}, counts)
}

func TestUnitRepository_ReleaseAndMarkRented(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUnits(t, s, "p1", 1)

	u, err := s.Units.ReserveAvailable(ctx, "p1", "c1")
	require.NoError(t, err)

	t.Run("mark rented is idempotent for the same renter", func(t *testing.T) {
		assert.NoError(t, s.Units.MarkRented(ctx, u.ID, "c1"))
	})

	t.Run("mark rented refuses another renter", func(t *testing.T) {
		assert.ErrorIs(t, s.Units.MarkRented(ctx, u.ID, "c2"), domain.ErrConflict)
	})

	t.Run("release clears the renter", func(t *testing.T) {
		require.NoError(t, s.Units.Release(ctx, u.ID))
		got, err := s.Units.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UnitStatusAvailable, got.Status)
		assert.Nil(t, got.RenterID)
	})
}

func TestProductRepository_AvailableStockClamped(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Products.Create(ctx, &domain.Product{ID: "p1", Stock: 2, AvailableStock: 2}))

	require.NoError(t, s.Products.AdjustAvailableStock(ctx, "p1", 5))
	p, _ := s.Products.GetByID(ctx, "p1")
	assert.Equal(t, 2, p.AvailableStock)

	require.NoError(t, s.Products.AdjustAvailableStock(ctx, "p1", -7))
	p, _ = s.Products.GetByID(ctx, "p1")
	assert.Equal(t, 0, p.AvailableStock)

	assert.ErrorIs(t, s.Products.AdjustAvailableStock(ctx, "missing", 1), domain.ErrNotFound)
}

func TestDepositRepository_OneActivePerOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := &domain.Deposit{ID: "d1", OrderID: "o1", Status: domain.DepositStatusPending}
	require.NoError(t, s.Deposits.Create(ctx, first))

	err := s.Deposits.Create(ctx, &domain.Deposit{ID: "d2", OrderID: "o1", Status: domain.DepositStatusPending})
	assert.ErrorIs(t, err, domain.ErrConflict)

	paid := *first
	paid.Status = domain.DepositStatusPaid
	ok, err := s.Deposits.UpdateStatusIf(ctx, &paid, domain.DepositStatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Deposits.UpdateStatusIf(ctx, &paid, domain.DepositStatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := s.Deposits.FindActiveByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "d1", active.ID)
	assert.Equal(t, domain.DepositStatusPaid, active.Status)
}

func TestOrderRepository_UpdateStatusIf(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Orders.Create(ctx, &domain.Order{ID: "o1", Status: domain.OrderStatusPendingConfirmation}))

	canceled := &domain.Order{ID: "o1", Status: domain.OrderStatusCanceled, CancelReason: "changed plans"}
	ok, err := s.Orders.UpdateStatusIf(ctx, canceled, domain.OrderStatusPendingConfirmation)
	require.NoError(t, err)
	assert.True(t, ok)

	accepted := &domain.Order{ID: "o1", Status: domain.OrderStatusPendingPayment}
	ok, err = s.Orders.UpdateStatusIf(ctx, accepted, domain.OrderStatusPendingConfirmation)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, got.Status)
	assert.Equal(t, "changed plans", got.CancelReason)

	_, err = s.Orders.UpdateStatusIf(ctx, &domain.Order{ID: "missing"}, domain.OrderStatusPendingConfirmation)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_NoTransactions(t *testing.T) {
	s := NewStore()
	assert.False(t, s.SupportsTransactions())
}
