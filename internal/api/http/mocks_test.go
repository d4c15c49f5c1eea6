package http_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/service"
)

type MockOrderService struct{ mock.Mock }

func (m *MockOrderService) order(args mock.Arguments) (*domain.Order, error) {
	if o := args.Get(0); o != nil {
		return o.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, actor service.Actor, req service.CreateOrderRequest) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, req))
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor service.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) ListMyOrders(ctx context.Context, actor service.Actor) ([]domain.Order, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, actor service.Actor, orderID, status string, opts service.TransitionOptions) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, status, opts))
}

func (m *MockOrderService) Confirm(ctx context.Context, actor service.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) StartDelivery(ctx context.Context, actor service.Actor, orderID string, evidence []string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, evidence))
}

func (m *MockOrderService) MarkReceived(ctx context.Context, actor service.Actor, orderID string, evidence []string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, evidence))
}

func (m *MockOrderService) RequestReturn(ctx context.Context, actor service.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) Complete(ctx context.Context, actor service.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) Cancel(ctx context.Context, actor service.Actor, orderID, reason string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, reason))
}

func (m *MockOrderService) ResolveOwner(ctx context.Context, order *domain.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

func (m *MockOrderService) AdvanceDueRentals(ctx context.Context, now time.Time) (service.SweepResult, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(service.SweepResult), args.Error(1)
}

type MockDepositService struct{ mock.Mock }

func (m *MockDepositService) deposit(args mock.Arguments) (*domain.Deposit, error) {
	if d := args.Get(0); d != nil {
		return d.(*domain.Deposit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDepositService) CreateDeposit(ctx context.Context, actor service.Actor, req service.CreateDepositRequest) (*service.DepositPayment, error) {
	args := m.Called(ctx, actor, req)
	if p := args.Get(0); p != nil {
		return p.(*service.DepositPayment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDepositService) GetDeposit(ctx context.Context, actor service.Actor, depositID string) (*domain.Deposit, error) {
	return m.deposit(m.Called(ctx, actor, depositID))
}

func (m *MockDepositService) ListOrderDeposits(ctx context.Context, actor service.Actor, orderID string) ([]service.DepositDetails, error) {
	args := m.Called(ctx, actor, orderID)
	return args.Get(0).([]service.DepositDetails), args.Error(1)
}

func (m *MockDepositService) HandleGatewayCallback(ctx context.Context, params map[string]string, channel domain.CallbackChannel) service.CallbackResult {
	args := m.Called(ctx, params, channel)
	return args.Get(0).(service.CallbackResult)
}

func (m *MockDepositService) RefundDeposit(ctx context.Context, actor service.Actor, depositID string, amount int64, reason string) (*domain.Deposit, error) {
	return m.deposit(m.Called(ctx, actor, depositID, amount, reason))
}

func (m *MockDepositService) ForfeitDeposit(ctx context.Context, actor service.Actor, depositID string, amount int64, reason string) (*domain.Deposit, error) {
	return m.deposit(m.Called(ctx, actor, depositID, amount, reason))
}

func (m *MockDepositService) RefundForOrder(ctx context.Context, orderID, reason string) (*domain.Deposit, error) {
	return m.deposit(m.Called(ctx, orderID, reason))
}

func (m *MockDepositService) CancelPendingForOrder(ctx context.Context, orderID, reason string) (*domain.Deposit, error) {
	return m.deposit(m.Called(ctx, orderID, reason))
}

func (m *MockDepositService) ExpireStaleDeposits(ctx context.Context, now time.Time) (service.SweepResult, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(service.SweepResult), args.Error(1)
}

type MockInventoryService struct{ mock.Mock }

func (m *MockInventoryService) ReserveOneAvailableUnit(ctx context.Context, productID, renterID string) (*domain.Unit, error) {
	args := m.Called(ctx, productID, renterID)
	if u := args.Get(0); u != nil {
		return u.(*domain.Unit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInventoryService) ReserveUnitsForOrder(ctx context.Context, productIDs []string, renterID string, persist service.PersistOrderFunc) ([]domain.Unit, error) {
	args := m.Called(ctx, productIDs, renterID, persist)
	return args.Get(0).([]domain.Unit), args.Error(1)
}

func (m *MockInventoryService) MarkRented(ctx context.Context, unitID, renterID string) error {
	return m.Called(ctx, unitID, renterID).Error(0)
}

func (m *MockInventoryService) Release(ctx context.Context, unitID string) error {
	return m.Called(ctx, unitID).Error(0)
}

func (m *MockInventoryService) AdjustDisplayStock(ctx context.Context, productID string, delta int) error {
	return m.Called(ctx, productID, delta).Error(0)
}

func (m *MockInventoryService) ProvisionUnits(ctx context.Context, actor service.Actor, productID string) (*service.ReconcileReport, error) {
	args := m.Called(ctx, actor, productID)
	if r := args.Get(0); r != nil {
		return r.(*service.ReconcileReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInventoryService) ReconcileProduct(ctx context.Context, productID string) (*service.ReconcileReport, error) {
	args := m.Called(ctx, productID)
	if r := args.Get(0); r != nil {
		return r.(*service.ReconcileReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInventoryService) ReconcileAll(ctx context.Context) ([]service.ReconcileReport, error) {
	args := m.Called(ctx)
	return args.Get(0).([]service.ReconcileReport), args.Error(1)
}

func (m *MockInventoryService) GetStock(ctx context.Context, productID string) (*service.ProductStock, error) {
	args := m.Called(ctx, productID)
	if s := args.Get(0); s != nil {
		return s.(*service.ProductStock), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInventoryService) ResolveShopOwner(ctx context.Context, productID string) (string, error) {
	args := m.Called(ctx, productID)
	return args.String(0), args.Error(1)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) GetUserProfile(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) UpdateKYC(ctx context.Context, actor service.Actor, userID string, tier domain.KYCStatus, approved bool) (*domain.User, error) {
	args := m.Called(ctx, actor, userID, tier, approved)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockNotificationService struct{ mock.Mock }

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}
