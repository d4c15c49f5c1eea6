package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/metrics"
	"rentalhub-backend/internal/payment/vnpay"
	"rentalhub-backend/internal/repository"
	"rentalhub-backend/internal/utils"
)

// PaymentGateway signs payment requests and verifies callbacks. *vnpay.Gateway implements it.
type PaymentGateway interface {
	BuildPaymentURL(req vnpay.PaymentRequest) (string, error)
	Verify(params map[string]string) bool
}

// QRGenerator renders the unsigned bank-transfer alternative. *bankqr.Generator implements it.
type QRGenerator interface {
	ImageURL(orderID string, amount int64) (string, error)
}

type depositService struct {
	depositRepo repository.DepositRepository
	historyRepo repository.PaymentHistoryRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	inventory   InventoryService
	gateway     PaymentGateway
	qr          QRGenerator
	notifier    *Notifier
	metrics     *metrics.Metrics
	ttl         time.Duration
}

func NewDepositService(
	depositRepo repository.DepositRepository,
	historyRepo repository.PaymentHistoryRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	inventory InventoryService,
	gateway PaymentGateway,
	qr QRGenerator,
	notifier *Notifier,
	m *metrics.Metrics,
	ttl time.Duration,
) DepositService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &depositService{
		depositRepo: depositRepo,
		historyRepo: historyRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		inventory:   inventory,
		gateway:     gateway,
		qr:          qr,
		notifier:    notifier,
		metrics:     m,
		ttl:         ttl,
	}
}

// TxnRef is the gateway transaction reference of a deposit: its uuid without dashes.
func TxnRef(depositID string) string {
	return strings.ReplaceAll(depositID, "-", "")
}

func (s *depositService) CreateDeposit(ctx context.Context, actor Actor, req CreateDepositRequest) (*DepositPayment, error) {
	logger.EnterMethod("depositService.CreateDeposit", "orderID", req.OrderID, "method", req.Method)
	if req.Method == "" {
		req.Method = domain.PaymentMethodVNPay
	}
	if _, ok := domain.ParsePaymentMethod(string(req.Method)); !ok {
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrValidation, req.Method)
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		logger.ExitMethodWithError("depositService.CreateDeposit", err, "orderID", req.OrderID)
		return nil, err
	}
	if !actor.IsAdmin() && order.CustomerID != actor.UserID {
		return nil, fmt.Errorf("%w: only the ordering customer may pay the deposit", domain.ErrForbidden)
	}
	if order.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrPreconditionFailed, order.Status)
	}

	now := time.Now().UTC()
	active, err := s.depositRepo.FindActiveByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.ExitMethodWithError("depositService.CreateDeposit", err, "orderID", order.ID)
		return nil, err
	}
	if active != nil && active.Status == domain.DepositStatusPending && now.After(active.ExpiresAt) {
		expired, err := s.expire(ctx, active, now)
		if err != nil {
			return nil, err
		}
		if expired {
			order.DepositStatus = domain.DepositStatusExpired
			active = nil
		} else {
			// A callback or the sweep settled it first; continue from the stored state.
			if active, err = s.depositRepo.FindActiveByOrder(ctx, order.ID); err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					return nil, err
				}
				active = nil
			}
			if order, err = s.orderRepo.GetByID(ctx, order.ID); err != nil {
				return nil, err
			}
			if active == nil && order.IsTerminal() {
				return nil, fmt.Errorf("%w: order is %s", domain.ErrPreconditionFailed, order.Status)
			}
		}
	}
	if active != nil {
		payment, err := s.reuse(ctx, order, active, req, now)
		if err != nil {
			logger.ExitMethodWithError("depositService.CreateDeposit", err, "depositID", active.ID)
			return nil, err
		}
		logger.ExitMethod("depositService.CreateDeposit", "depositID", active.ID, "reused", true)
		return payment, nil
	}

	amount, err := s.currentRequirement(ctx, order)
	if err != nil {
		logger.ExitMethodWithError("depositService.CreateDeposit", err, "orderID", order.ID)
		return nil, err
	}
	if amount != order.DepositAmount || (amount == 0) != (order.DepositStatus == domain.DepositStatusNotRequired) {
		order.SetDepositRequirement(amount)
		order.UpdatedOn = now
		if err := s.orderRepo.UpdatePayment(ctx, order); err != nil {
			return nil, err
		}
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: no deposit is required for this order", domain.ErrPreconditionFailed)
	}

	if err := s.supersede(ctx, order.ID, now); err != nil {
		return nil, err
	}

	deposit := &domain.Deposit{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Amount:        amount,
		Status:        domain.DepositStatusPending,
		PaymentMethod: req.Method,
		ExpiresAt:     now.Add(s.ttl),
		CreatedOn:     now,
		UpdatedOn:     now,
	}
	paymentURL, err := s.paymentURL(order, deposit, req, now)
	if err != nil {
		logger.ExitMethodWithError("depositService.CreateDeposit", err, "orderID", order.ID)
		return nil, err
	}
	deposit.PaymentURL = &paymentURL

	if err := s.depositRepo.Create(ctx, deposit); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			logger.ExitMethodWithError("depositService.CreateDeposit", err, "orderID", order.ID)
			return nil, err
		}
		// A concurrent request created the active deposit first.
		winner, ferr := s.depositRepo.FindActiveByOrder(ctx, order.ID)
		if ferr != nil {
			return nil, ferr
		}
		return s.reuse(ctx, order, winner, req, now)
	}

	if order.DepositStatus != domain.DepositStatusPending {
		order.DepositStatus = domain.DepositStatusPending
		order.UpdatedOn = now
		if err := s.orderRepo.UpdatePayment(ctx, order); err != nil {
			logger.Error("Failed to mirror new deposit onto order", "orderID", order.ID, "error", err)
		}
	}

	logger.ExitMethod("depositService.CreateDeposit", "depositID", deposit.ID, "amount", amount)
	return &DepositPayment{Deposit: deposit, PaymentURL: paymentURL}, nil
}

// reuse returns an active deposit, regenerating its payment URL only if it has none.
func (s *depositService) reuse(ctx context.Context, order *domain.Order, deposit *domain.Deposit, req CreateDepositRequest, now time.Time) (*DepositPayment, error) {
	if deposit.Status == domain.DepositStatusPending && (deposit.PaymentURL == nil || *deposit.PaymentURL == "") {
		paymentURL, err := s.paymentURL(order, deposit, CreateDepositRequest{
			OrderID:  req.OrderID,
			Method:   deposit.PaymentMethod,
			ClientIP: req.ClientIP,
			BankCode: req.BankCode,
		}, now)
		if err != nil {
			return nil, err
		}
		deposit.PaymentURL = &paymentURL
		deposit.UpdatedOn = now
		if err := s.depositRepo.Update(ctx, deposit); err != nil {
			return nil, err
		}
	}
	payment := &DepositPayment{Deposit: deposit, Reused: true}
	if deposit.PaymentURL != nil {
		payment.PaymentURL = *deposit.PaymentURL
	}
	return payment, nil
}

func (s *depositService) paymentURL(order *domain.Order, deposit *domain.Deposit, req CreateDepositRequest, now time.Time) (string, error) {
	switch deposit.PaymentMethod {
	case domain.PaymentMethodBankQR:
		if s.qr == nil {
			return "", fmt.Errorf("%w: bank transfer payments are not configured", domain.ErrPreconditionFailed)
		}
		return s.qr.ImageURL(order.ID, deposit.Amount)
	default:
		if s.gateway == nil {
			return "", fmt.Errorf("%w: card payments are not configured", domain.ErrPreconditionFailed)
		}
		return s.gateway.BuildPaymentURL(vnpay.PaymentRequest{
			TxnRef:    TxnRef(deposit.ID),
			Amount:    deposit.Amount,
			OrderInfo: "Deposit for order " + order.ID,
			ClientIP:  req.ClientIP,
			BankCode:  req.BankCode,
			CreatedAt: now,
		})
	}
}

// currentRequirement evaluates the deposit against the customer's KYC tier as it is now.
func (s *depositService) currentRequirement(ctx context.Context, order *domain.Order) (int64, error) {
	customer, err := s.userRepo.GetByID(ctx, order.CustomerID)
	if err != nil {
		return 0, err
	}
	products, err := loadOrderedProducts(ctx, s.productRepo, order.ProductIDs)
	if err != nil {
		return 0, err
	}
	return utils.RequiredOrderDeposit(customer.KYCStatus, products), nil
}

// loadOrderedProducts returns one product per ordered unit, fetching each distinct product once.
func loadOrderedProducts(ctx context.Context, repo repository.ProductRepository, productIDs []string) ([]*domain.Product, error) {
	cache := make(map[string]*domain.Product, len(productIDs))
	out := make([]*domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		p, ok := cache[id]
		if !ok {
			var err error
			p, err = repo.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			cache[id] = p
		}
		out = append(out, p)
	}
	return out, nil
}

// supersede marks expired deposits of the order cancelled before a replacement is created.
// Refunded and forfeited deposits keep their settlement record.
// supersede marks every settled or abandoned deposit of the order cancelled before a new one
// is created. Refund and forfeit amounts and timestamps are kept.
func (s *depositService) supersede(ctx context.Context, orderID string, now time.Time) error {
	deposits, err := s.depositRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for i := range deposits {
		d := &deposits[i]
		if d.IsActive() || d.Status == domain.DepositStatusCancelled {
			continue
		}
		prior := d.Status
		d.Status = domain.DepositStatusCancelled
		if d.Reason == "" {
			d.Reason = "superseded by a new deposit"
		} else {
			d.Reason += "; superseded by a new deposit"
		}
		d.UpdatedOn = now
		if _, err := s.depositRepo.UpdateStatusIf(ctx, d, prior); err != nil {
			return err
		}
	}
	return nil
}

// expire moves a pending deposit to expired and mirrors it onto the order.
func (s *depositService) expire(ctx context.Context, deposit *domain.Deposit, now time.Time) (bool, error) {
	deposit.Status = domain.DepositStatusExpired
	deposit.UpdatedOn = now
	ok, err := s.depositRepo.UpdateStatusIf(ctx, deposit, domain.DepositStatusPending)
	if err != nil || !ok {
		return ok, err
	}
	s.metrics.DepositSettled(string(domain.DepositStatusExpired))
	s.mirrorOntoOrder(ctx, deposit.OrderID, domain.DepositStatusExpired, now)
	return true, nil
}

// mirrorOntoOrder copies a deposit status change onto the order's deposit columns.
func (s *depositService) mirrorOntoOrder(ctx context.Context, orderID string, status domain.DepositStatus, now time.Time) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		logger.Error("Failed to load order for deposit update", "orderID", orderID, "error", err)
		return
	}
	if order.DepositStatus == status {
		return
	}
	order.DepositStatus = status
	order.UpdatedOn = now
	if err := s.orderRepo.UpdatePayment(ctx, order); err != nil {
		logger.Error("Failed to mirror deposit status onto order", "orderID", orderID, "status", status, "error", err)
	}
}

func (s *depositService) GetDeposit(ctx context.Context, actor Actor, depositID string) (*domain.Deposit, error) {
	deposit, err := s.depositRepo.GetByID(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || deposit.CustomerID == actor.UserID {
		return deposit, nil
	}
	order, err := s.orderRepo.GetByID(ctx, deposit.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, actor, order); err != nil {
		return nil, err
	}
	return deposit, nil
}

func (s *depositService) ListOrderDeposits(ctx context.Context, actor Actor, orderID string) ([]DepositDetails, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.CustomerID != actor.UserID {
		if err := s.authorizeOwner(ctx, actor, order); err != nil {
			return nil, err
		}
	}
	deposits, err := s.depositRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]DepositDetails, 0, len(deposits))
	for _, d := range deposits {
		details := DepositDetails{Deposit: d}
		if actor.IsAdmin() {
			history, err := s.historyRepo.ListByDeposit(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			details.History = history
		}
		out = append(out, details)
	}
	return out, nil
}

func (s *depositService) authorizeOwner(ctx context.Context, actor Actor, order *domain.Order) error {
	if len(order.ProductIDs) == 0 || s.inventory == nil {
		return fmt.Errorf("%w: not a party to this order", domain.ErrForbidden)
	}
	ownerID, err := s.inventory.ResolveShopOwner(ctx, order.ProductIDs[0])
	if err != nil {
		return err
	}
	if ownerID != actor.UserID {
		return fmt.Errorf("%w: not a party to this order", domain.ErrForbidden)
	}
	return nil
}

func (s *depositService) HandleGatewayCallback(ctx context.Context, params map[string]string, channel domain.CallbackChannel) (result CallbackResult) {
	logger.EnterMethod("depositService.HandleGatewayCallback", "channel", channel, "txnRef", params["vnp_TxnRef"])
	entry := &domain.PaymentHistory{
		ID:        uuid.NewString(),
		Status:    domain.PaymentHistoryFailed,
		Channel:   channel,
		RawParams: params,
		CreatedOn: time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling gateway callback", "channel", channel, "panic", r)
			entry.Status = domain.PaymentHistoryFailed
			result = CallbackResult{RspCode: RspCodeUnknown, Message: "Unknown error", Outcome: OutcomeError}
		}
		if err := s.historyRepo.Create(ctx, entry); err != nil {
			logger.Error("Failed to record payment history", "channel", channel, "error", err)
		}
		s.metrics.GatewayCallback(string(channel), result.RspCode)
		logger.Info("Gateway callback handled",
			"channel", channel, "rspCode", result.RspCode, "outcome", result.Outcome, "depositID", result.DepositID)
		logger.ExitMethod("depositService.HandleGatewayCallback", "rspCode", result.RspCode)
	}()
	return s.processCallback(ctx, params, entry)
}

func (s *depositService) processCallback(ctx context.Context, params map[string]string, entry *domain.PaymentHistory) CallbackResult {
	cb, err := vnpay.ParseCallback(params)
	entry.TransactionID = cb.TransactionNo
	entry.ResponseCode = cb.ResponseCode
	if cb.Amount > 0 {
		entry.Amount = cb.Amount
	}
	if err != nil {
		return CallbackResult{RspCode: RspCodeInvalid, Message: "Missing transaction reference", Outcome: OutcomeInvalid}
	}
	if s.gateway == nil || !s.gateway.Verify(params) {
		logger.Warn("Gateway callback failed signature verification", "txnRef", cb.TxnRef)
		return CallbackResult{RspCode: RspCodeInvalid, Message: "Invalid signature", Outcome: OutcomeInvalid}
	}

	ref, err := uuid.Parse(cb.TxnRef)
	if err != nil {
		return CallbackResult{RspCode: RspCodeNotFound, Message: "Order not found", Outcome: OutcomeNotFound}
	}
	deposit, err := s.depositRepo.GetByID(ctx, ref.String())
	if errors.Is(err, domain.ErrNotFound) {
		return CallbackResult{RspCode: RspCodeNotFound, Message: "Order not found", Outcome: OutcomeNotFound}
	}
	if err != nil {
		logger.Error("Failed to load deposit for callback", "txnRef", cb.TxnRef, "error", err)
		return CallbackResult{RspCode: RspCodeUnknown, Message: "Unknown error", Outcome: OutcomeError}
	}
	entry.DepositID = &deposit.ID
	entry.OrderID = &deposit.OrderID
	result := CallbackResult{DepositID: deposit.ID, OrderID: deposit.OrderID}

	if cb.Amount != deposit.Amount {
		logger.Warn("Gateway callback amount mismatch", "depositID", deposit.ID, "expected", deposit.Amount, "got", cb.Amount)
		result.RspCode, result.Message, result.Outcome = RspCodeAmountMismatch, "Invalid amount", OutcomeAmountMismatch
		return result
	}

	switch deposit.Status {
	case domain.DepositStatusPaid:
		// Redelivery. The state already flipped; only repair the order mirror if it was missed.
		entry.Status = domain.PaymentHistorySuccess
		if err := s.markOrderDepositPaid(ctx, deposit.OrderID); err != nil {
			result.RspCode, result.Message, result.Outcome = RspCodeUnknown, "Unknown error", OutcomeError
			return result
		}
		result.RspCode, result.Message, result.Outcome = RspCodeOK, "Confirm Success", OutcomeSuccess
		return result
	case domain.DepositStatusPending:
	default:
		result.RspCode, result.Message, result.Outcome = RspCodeAlreadySettled, "Order already confirmed", OutcomeAlreadySettled
		return result
	}

	if !cb.Succeeded() {
		logger.Info("Gateway reported unsuccessful payment", "depositID", deposit.ID, "responseCode", cb.ResponseCode)
		result.RspCode, result.Message, result.Outcome = RspCodeOK, "Confirm Success", OutcomeFailed
		return result
	}

	now := time.Now().UTC()
	deposit.Status = domain.DepositStatusPaid
	deposit.PaidAt = &now
	if cb.TransactionNo != "" {
		txn := cb.TransactionNo
		deposit.PaymentTransactionID = &txn
	}
	deposit.UpdatedOn = now
	flipped, err := s.depositRepo.UpdateStatusIf(ctx, deposit, domain.DepositStatusPending)
	if err != nil {
		logger.Error("Failed to mark deposit paid", "depositID", deposit.ID, "error", err)
		result.RspCode, result.Message, result.Outcome = RspCodeUnknown, "Unknown error", OutcomeError
		return result
	}
	entry.Status = domain.PaymentHistorySuccess
	if !flipped {
		// A concurrent delivery won the flip.
		logger.Info("Deposit already settled by a concurrent callback", "depositID", deposit.ID)
		result.RspCode, result.Message, result.Outcome = RspCodeOK, "Confirm Success", OutcomeSuccess
		return result
	}
	s.metrics.DepositSettled(string(domain.DepositStatusPaid))

	if err := s.markOrderDepositPaid(ctx, deposit.OrderID); err != nil {
		result.RspCode, result.Message, result.Outcome = RspCodeUnknown, "Unknown error", OutcomeError
		return result
	}
	s.notifier.Notify(ctx, deposit.CustomerID, "Deposit received",
		fmt.Sprintf("Your deposit of %d VND for order %s has been received.", deposit.Amount, deposit.OrderID),
		map[string]string{"type": "DEPOSIT_PAID", "order_id": deposit.OrderID, "deposit_id": deposit.ID})

	result.RspCode, result.Message, result.Outcome = RspCodeOK, "Confirm Success", OutcomeSuccess
	return result
}

// markOrderDepositPaid mirrors a paid deposit onto the order. It is a no-op when already mirrored.
func (s *depositService) markOrderDepositPaid(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		logger.Error("Failed to load order for paid deposit", "orderID", orderID, "error", err)
		return err
	}
	if order.DepositStatus == domain.DepositStatusPaid {
		return nil
	}
	order.MarkDepositPaid(time.Now().UTC())
	if err := s.orderRepo.UpdatePayment(ctx, order); err != nil {
		logger.Error("Failed to mark order deposit paid", "orderID", orderID, "error", err)
		return err
	}
	return nil
}

func (s *depositService) RefundDeposit(ctx context.Context, actor Actor, depositID string, amount int64, reason string) (*domain.Deposit, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may refund deposits", domain.ErrForbidden)
	}
	return s.settle(ctx, depositID, domain.DepositStatusRefunded, amount, reason)
}

func (s *depositService) ForfeitDeposit(ctx context.Context, actor Actor, depositID string, amount int64, reason string) (*domain.Deposit, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may forfeit deposits", domain.ErrForbidden)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a reason is required to forfeit a deposit", domain.ErrValidation)
	}
	return s.settle(ctx, depositID, domain.DepositStatusForfeited, amount, reason)
}

// settle moves a paid deposit to refunded or forfeited. amount 0 means the full deposit.
func (s *depositService) settle(ctx context.Context, depositID string, to domain.DepositStatus, amount int64, reason string) (*domain.Deposit, error) {
	logger.EnterMethod("depositService.settle", "depositID", depositID, "to", to, "amount", amount)
	deposit, err := s.depositRepo.GetByID(ctx, depositID)
	if err != nil {
		logger.ExitMethodWithError("depositService.settle", err, "depositID", depositID)
		return nil, err
	}
	if deposit.Status != domain.DepositStatusPaid {
		return nil, fmt.Errorf("%w: deposit is %s, only paid deposits can be %s", domain.ErrPreconditionFailed, deposit.Status, to)
	}
	if amount < 0 || amount > deposit.Amount {
		return nil, fmt.Errorf("%w: amount must be between 0 and %d", domain.ErrValidation, deposit.Amount)
	}
	if amount == 0 {
		amount = deposit.Amount
	}

	now := time.Now().UTC()
	deposit.Status = to
	deposit.Reason = reason
	deposit.UpdatedOn = now
	if to == domain.DepositStatusRefunded {
		deposit.RefundedAt = &now
		deposit.RefundAmount = amount
	} else {
		deposit.ForfeitedAt = &now
		deposit.ForfeitAmount = amount
	}
	ok, err := s.depositRepo.UpdateStatusIf(ctx, deposit, domain.DepositStatusPaid)
	if err != nil {
		logger.ExitMethodWithError("depositService.settle", err, "depositID", depositID)
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: deposit was settled concurrently", domain.ErrPreconditionFailed)
	}
	s.metrics.DepositSettled(string(to))
	s.mirrorOntoOrder(ctx, deposit.OrderID, to, now)

	title, verb := "Deposit refunded", "refunded"
	if to == domain.DepositStatusForfeited {
		title, verb = "Deposit forfeited", "forfeited"
	}
	s.notifier.Notify(ctx, deposit.CustomerID, title,
		fmt.Sprintf("%d VND of your deposit for order %s has been %s.", amount, deposit.OrderID, verb),
		map[string]string{"type": strings.ToUpper("deposit_" + verb), "order_id": deposit.OrderID, "deposit_id": deposit.ID})

	logger.ExitMethod("depositService.settle", "depositID", depositID, "status", to)
	return deposit, nil
}

func (s *depositService) RefundForOrder(ctx context.Context, orderID, reason string) (*domain.Deposit, error) {
	active, err := s.depositRepo.FindActiveByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if active.Status != domain.DepositStatusPaid {
		return nil, nil
	}
	return s.settle(ctx, active.ID, domain.DepositStatusRefunded, 0, reason)
}

func (s *depositService) CancelPendingForOrder(ctx context.Context, orderID, reason string) (*domain.Deposit, error) {
	active, err := s.depositRepo.FindActiveByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if active.Status == domain.DepositStatusPaid {
		logger.Warn("Canceled order has a paid deposit awaiting refund or forfeit", "orderID", orderID, "depositID", active.ID)
		return nil, nil
	}

	now := time.Now().UTC()
	active.Status = domain.DepositStatusCancelled
	active.Reason = reason
	active.UpdatedOn = now
	ok, err := s.depositRepo.UpdateStatusIf(ctx, active, domain.DepositStatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	s.metrics.DepositSettled(string(domain.DepositStatusCancelled))
	s.mirrorOntoOrder(ctx, orderID, domain.DepositStatusCancelled, now)
	return active, nil
}

func (s *depositService) ExpireStaleDeposits(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	stale, err := s.depositRepo.ListPendingExpiredBefore(ctx, now)
	if err != nil {
		return result, err
	}
	result.Scanned = len(stale)
	for i := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		ok, err := s.expire(ctx, &stale[i], now)
		if err != nil {
			result.Failed++
			logger.Error("Failed to expire deposit", "depositID", stale[i].ID, "error", err)
			continue
		}
		if ok {
			result.Processed++
		}
	}
	return result, nil
}
