package service_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/payment/bankqr"
	"rentalhub-backend/internal/payment/vnpay"
	"rentalhub-backend/internal/repository"
	"rentalhub-backend/internal/repository/memory"
	"rentalhub-backend/internal/service"
)

const (
	testSecret = "TESTSECRET0123456789"

	customerID   = "user-customer"
	verifiedID   = "user-verified"
	premiumID    = "user-premium"
	unapprovedID = "user-unapproved"
	ownerID      = "user-owner"
	adminID      = "user-admin"
	strangerID   = "user-stranger"

	shopID      = "shop-1"
	cameraID    = "prod-camera"
	emptyProdID = "prod-empty"
)

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	inventory service.InventoryService
	orders    service.OrderService
	deposits  service.DepositService
	notifier  *service.Notifier
	users     service.UserService
	gateway   *vnpay.Gateway
	email     *MockEmailSender
	push      *MockPushSender
}

var (
	customer = service.Actor{UserID: customerID, Roles: []domain.Role{domain.RoleRenter}}
	verified = service.Actor{UserID: verifiedID, Roles: []domain.Role{domain.RoleRenter}}
	premium  = service.Actor{UserID: premiumID, Roles: []domain.Role{domain.RoleRenter}}
	owner    = service.Actor{UserID: ownerID, Roles: []domain.Role{domain.RoleOwner}}
	admin    = service.Actor{UserID: adminID, Roles: []domain.Role{domain.RoleAdmin}}
	stranger = service.Actor{UserID: strangerID, Roles: []domain.Role{domain.RoleRenter}}
)

// newFixture wires the services on the in-memory store with one shop and a camera
// priced 1,000,000 with the given stock.
func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	email := new(MockEmailSender)
	email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	push := new(MockPushSender)
	push.On("SendToUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	notifier := service.NewNotifier(store.Users, store.Notifications, email, push)

	gw := vnpay.New(vnpay.Config{
		TmnCode:    "TESTCODE",
		HashSecret: testSecret,
		PaymentURL: "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/deposits/vnpay-return",
	})
	qr := bankqr.New(bankqr.Config{BankID: "970436", AccountNo: "0123456789", AccountName: "RENTALHUB"})

	inv := service.NewInventoryService(store.Products, store.Units, store.Shops, store.Orders, store, nil)
	deposits := service.NewDepositService(store.Deposits, store.PaymentHistory, store.Orders, store.Users,
		store.Products, inv, gw, qr, notifier, nil, 15*time.Minute)
	orders := service.NewOrderService(store.Orders, store.Users, store.Products, store.Units, inv, deposits, notifier, nil)

	users := []domain.User{
		{ID: customerID, Email: "customer@test.com", Name: "Customer", Roles: []domain.Role{domain.RoleRenter}, KYCStatus: domain.KYCStatusUnverified, KYCApproved: true},
		{ID: verifiedID, Email: "verified@test.com", Name: "Verified", Roles: []domain.Role{domain.RoleRenter}, KYCStatus: domain.KYCStatusVerified, KYCApproved: true},
		{ID: premiumID, Email: "premium@test.com", Name: "Premium", Roles: []domain.Role{domain.RoleRenter}, KYCStatus: domain.KYCStatusPremium, KYCApproved: true},
		{ID: unapprovedID, Email: "new@test.com", Name: "Unapproved", Roles: []domain.Role{domain.RoleRenter}, KYCStatus: domain.KYCStatusUnverified},
		{ID: ownerID, Email: "owner@test.com", Name: "Owner", Roles: []domain.Role{domain.RoleOwner}, KYCStatus: domain.KYCStatusVerified, KYCApproved: true},
		{ID: adminID, Email: "admin@test.com", Name: "Admin", Roles: []domain.Role{domain.RoleAdmin}},
		{ID: strangerID, Email: "stranger@test.com", Name: "Stranger", Roles: []domain.Role{domain.RoleRenter}, KYCApproved: true},
	}
	for i := range users {
		require.NoError(t, store.Users.Create(ctx, &users[i]))
	}
	require.NoError(t, store.Shops.Create(ctx, &domain.Shop{ID: shopID, OwnerUserID: ownerID, Name: "Camera Shop"}))
	require.NoError(t, store.Products.Create(ctx, &domain.Product{ID: cameraID, ShopID: shopID, Name: "Camera", Price: 1_000_000, Stock: stock}))
	require.NoError(t, store.Products.Create(ctx, &domain.Product{ID: emptyProdID, ShopID: shopID, Name: "Tripod", Price: 50_000, Stock: 0}))
	_, err := inv.ReconcileProduct(ctx, cameraID)
	require.NoError(t, err)

	return &fixture{
		ctx:       ctx,
		store:     store,
		inventory: inv,
		orders:    orders,
		deposits:  deposits,
		notifier:  notifier,
		users:     service.NewUserService(store.Users, notifier),
		gateway:   gw,
		email:     email,
		push:      push,
	}
}

// orderService builds an order service over the fixture's store with the given order
// repository and inventory in place of the defaults.
func (f *fixture) orderService(orderRepo repository.OrderRepository, inv service.InventoryService) service.OrderService {
	return service.NewOrderService(orderRepo, f.store.Users, f.store.Products, f.store.Units, inv, f.deposits, f.notifier, nil)
}

// hookedOrders runs before ahead of the first conditional status write on orderID.
type hookedOrders struct {
	repository.OrderRepository
	orderID string
	before  func() error
	once    sync.Once
}

func (r *hookedOrders) UpdateStatusIf(ctx context.Context, order *domain.Order, expected domain.OrderStatus) (bool, error) {
	var err error
	if order.ID == r.orderID {
		r.once.Do(func() { err = r.before() })
	}
	if err != nil {
		return false, err
	}
	return r.OrderRepository.UpdateStatusIf(ctx, order, expected)
}

// hookedInventory runs beforeMarkRented ahead of the first MarkRented call.
type hookedInventory struct {
	service.InventoryService
	beforeMarkRented func()
	once             sync.Once
}

func (i *hookedInventory) MarkRented(ctx context.Context, unitID, renterID string) error {
	i.once.Do(i.beforeMarkRented)
	return i.InventoryService.MarkRented(ctx, unitID, renterID)
}

func (f *fixture) createOrder(t *testing.T, actor service.Actor, productIDs ...string) *domain.Order {
	t.Helper()
	if len(productIDs) == 0 {
		productIDs = []string{cameraID}
	}
	order, err := f.orders.CreateOrder(f.ctx, actor, service.CreateOrderRequest{ProductIDs: productIDs, Duration: 3})
	require.NoError(t, err)
	return order
}

// callback builds gateway callback parameters for a deposit, signed unless the caller tampers with them.
func (f *fixture) callback(txnRef string, amount int64, responseCode string) map[string]string {
	params := map[string]string{
		"vnp_TmnCode":           "TESTCODE",
		"vnp_TxnRef":            txnRef,
		"vnp_Amount":            strconv.FormatInt(amount*100, 10),
		"vnp_ResponseCode":      responseCode,
		"vnp_TransactionStatus": responseCode,
		"vnp_TransactionNo":     "14226112",
		"vnp_BankCode":          "NCB",
		"vnp_PayDate":           "20261015103000",
		"vnp_OrderInfo":         "Deposit for order",
	}
	params["vnp_SecureHash"] = f.gateway.Sign(params)
	return params
}

// payDeposit creates a deposit for the order and settles it through a signed IPN.
func (f *fixture) payDeposit(t *testing.T, actor service.Actor, orderID string) *domain.Deposit {
	t.Helper()
	payment, err := f.deposits.CreateDeposit(f.ctx, actor, service.CreateDepositRequest{OrderID: orderID})
	require.NoError(t, err)
	res := f.deposits.HandleGatewayCallback(f.ctx, f.callback(service.TxnRef(payment.Deposit.ID), payment.Deposit.Amount, "00"), domain.CallbackChannelIPN)
	require.Equal(t, service.RspCodeOK, res.RspCode)
	d, err := f.store.Deposits.GetByID(f.ctx, payment.Deposit.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DepositStatusPaid, d.Status)
	return d
}

func (f *fixture) unitStatus(t *testing.T, unitID string) domain.UnitStatus {
	t.Helper()
	u, err := f.store.Units.GetByID(f.ctx, unitID)
	require.NoError(t, err)
	return u.Status
}

func (f *fixture) notificationsOfType(t *testing.T, userID, kind string) int {
	t.Helper()
	notes, _, err := f.store.Notifications.List(f.ctx, userID, 1000, 0)
	require.NoError(t, err)
	n := 0
	for _, note := range notes {
		if note.Attributes["type"] == kind {
			n++
		}
	}
	return n
}
