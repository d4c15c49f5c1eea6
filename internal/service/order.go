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
	"rentalhub-backend/internal/repository"
	"rentalhub-backend/internal/utils"
)

type orderService struct {
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	unitRepo    repository.UnitRepository
	inventory   InventoryService
	deposits    DepositService
	notifier    *Notifier
	metrics     *metrics.Metrics
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	unitRepo repository.UnitRepository,
	inventory InventoryService,
	deposits DepositService,
	notifier *Notifier,
	m *metrics.Metrics,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		unitRepo:    unitRepo,
		inventory:   inventory,
		deposits:    deposits,
		notifier:    notifier,
		metrics:     m,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*domain.Order, error) {
	logger.EnterMethod("orderService.CreateOrder", "customerID", actor.UserID, "products", len(req.ProductIDs))
	order, err := s.createOrder(ctx, actor, req)
	s.metrics.OrderTransition(string(domain.OrderStatusPendingConfirmation), err)
	if err != nil {
		if isBusinessError(err) {
			logger.Warn("Order creation rejected", "customerID", actor.UserID, "error", err)
		} else {
			logger.ExitMethodWithError("orderService.CreateOrder", err, "customerID", actor.UserID)
		}
		return nil, err
	}
	logger.ExitMethod("orderService.CreateOrder", "orderID", order.ID, "depositAmount", order.DepositAmount)
	return order, nil
}

func (s *orderService) createOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*domain.Order, error) {
	if len(req.ProductIDs) == 0 {
		return nil, fmt.Errorf("%w: productIds must not be empty", domain.ErrValidation)
	}
	for _, id := range req.ProductIDs {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: productIds must not contain empty ids", domain.ErrValidation)
		}
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be a positive number of days", domain.ErrValidation)
	}
	if req.TotalPrice < 0 {
		return nil, fmt.Errorf("%w: totalPrice must not be negative", domain.ErrValidation)
	}

	customer, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !customer.KYCApproved {
		return nil, fmt.Errorf("%w: KYC approval is required before renting", domain.ErrPreconditionFailed)
	}

	products, err := loadOrderedProducts(ctx, s.productRepo, req.ProductIDs)
	if err != nil {
		return nil, err
	}
	depositAmount := utils.RequiredOrderDeposit(customer.KYCStatus, products)
	total := req.TotalPrice
	if total == 0 {
		for _, p := range products {
			total += p.Price * int64(req.Duration)
		}
	}

	var order *domain.Order
	now := time.Now().UTC()
	_, err = s.inventory.ReserveUnitsForOrder(ctx, req.ProductIDs, customer.ID,
		func(ctx context.Context, orders OrderWriter, units []domain.Unit) error {
			order = domain.NewOrder(uuid.NewString(), customer.ID, units, total, req.Duration, depositAmount, now)
			return orders.Create(ctx, order)
		})
	if err != nil {
		return nil, err
	}

	s.notifyOwner(ctx, order, "New order",
		fmt.Sprintf("%s placed order %s for %d item(s).", customer.Name, order.ID, len(order.UnitIDs)), "ORDER_CREATED")
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	parties, err := s.parties(ctx, actor, order)
	if err != nil {
		return nil, err
	}
	if len(parties) == 0 {
		return nil, fmt.Errorf("%w: not a party to this order", domain.ErrForbidden)
	}
	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, actor Actor) ([]domain.Order, error) {
	return s.orderRepo.ListByCustomer(ctx, actor.UserID)
}

func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, orderID, status string, opts TransitionOptions) (*domain.Order, error) {
	to, err := domain.CanonicalOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, orderID, to, opts)
}

func (s *orderService) Confirm(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	to := domain.OrderStatusConfirmed
	if order.Status == domain.OrderStatusPendingConfirmation {
		to = domain.OrderStatusPendingPayment
	}
	return s.transition(ctx, actor, orderID, to, TransitionOptions{})
}

func (s *orderService) StartDelivery(ctx context.Context, actor Actor, orderID string, evidence []string) (*domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.OrderStatusInDelivery, TransitionOptions{Evidence: evidence})
}

func (s *orderService) MarkReceived(ctx context.Context, actor Actor, orderID string, evidence []string) (*domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.OrderStatusBeforeDeadline, TransitionOptions{Evidence: evidence})
}

func (s *orderService) RequestReturn(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.OrderStatusReturnProduct, TransitionOptions{})
}

func (s *orderService) Complete(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.OrderStatusCompleted, TransitionOptions{})
}

func (s *orderService) Cancel(ctx context.Context, actor Actor, orderID, reason string) (*domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.OrderStatusCanceled, TransitionOptions{Reason: reason})
}

// transition validates and applies one status change. The new status is claimed with a
// conditional write before any side effect runs, so of two transitions read from the same
// status only one commits. A failed side effect puts the previous status back.
func (s *orderService) transition(ctx context.Context, actor Actor, orderID string, to domain.OrderStatus, opts TransitionOptions) (*domain.Order, error) {
	logger.EnterMethod("orderService.transition", "orderID", orderID, "to", to, "actor", actor.UserID)
	order, err := s.applyTransition(ctx, actor, orderID, to, opts)
	s.metrics.OrderTransition(string(to), err)
	if err != nil {
		if isBusinessError(err) {
			logger.Warn("Order transition rejected", "orderID", orderID, "to", to, "actor", actor.UserID, "error", err)
		} else {
			logger.ExitMethodWithError("orderService.transition", err, "orderID", orderID, "to", to)
		}
		return nil, err
	}
	logger.ExitMethod("orderService.transition", "orderID", orderID, "status", order.Status)
	return order, nil
}

func (s *orderService) applyTransition(ctx context.Context, actor Actor, orderID string, to domain.OrderStatus, opts TransitionOptions) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	parties, err := s.parties(ctx, actor, order)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := domain.CheckTransition(from, to, parties); err != nil {
		return nil, err
	}
	if err := validateEvidence(opts.Evidence); err != nil {
		return nil, err
	}

	prev := *order
	now := time.Now().UTC()
	switch to {
	case domain.OrderStatusConfirmed:
		if !order.DepositSatisfied() {
			return nil, fmt.Errorf("%w: deposit not yet paid (deposit status %s)", domain.ErrPreconditionFailed, order.DepositStatus)
		}
	case domain.OrderStatusInDelivery:
		if len(opts.Evidence) > 0 {
			order.DispatchEvidence = opts.Evidence
		}
	case domain.OrderStatusBeforeDeadline:
		if len(opts.Evidence) > 0 {
			order.DeliveryEvidence = opts.Evidence
		}
		order.DeliveryDate = &now
	case domain.OrderStatusCanceled:
		order.CancelReason = opts.Reason
	}

	order.Status = to
	order.UpdatedOn = now
	claimed, err := s.orderRepo.UpdateStatusIf(ctx, order, from)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: order %s changed status while moving it to %s; reload and retry",
			domain.ErrPreconditionFailed, orderID, to)
	}

	if err := s.runSideEffects(ctx, order, from); err != nil {
		s.revertClaim(ctx, &prev, to)
		return nil, err
	}
	s.notifyTransition(ctx, actor, order)
	return order, nil
}

func (s *orderService) runSideEffects(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	switch order.Status {
	case domain.OrderStatusPendingPayment:
		return s.accept(ctx, order)
	case domain.OrderStatusCompleted:
		return s.complete(ctx, order)
	case domain.OrderStatusCanceled:
		return s.cancel(ctx, order, from, order.CancelReason)
	}
	return nil
}

// revertClaim puts the previous status back after a side effect failed. It only applies
// while the order still holds the claimed status.
func (s *orderService) revertClaim(ctx context.Context, prev *domain.Order, claimed domain.OrderStatus) {
	reverted, err := s.orderRepo.UpdateStatusIf(ctx, prev, claimed)
	switch {
	case err != nil:
		logger.Error("Failed to revert order status", "orderID", prev.ID, "status", claimed, "previous", prev.Status, "error", err)
	case !reverted:
		logger.Warn("Order moved on before its status could be reverted", "orderID", prev.ID, "status", claimed)
	}
}

// accept re-marks the reserved units rented and takes them off the display counter.
// A cancel that lands while the units are being marked wins and the units are released again.
func (s *orderService) accept(ctx context.Context, order *domain.Order) error {
	var marked []string
	for _, unitID := range order.UnitIDs {
		if err := s.inventory.MarkRented(ctx, unitID, order.CustomerID); err != nil {
			return err
		}
		marked = append(marked, unitID)
	}

	current, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		s.releaseMarked(ctx, order.ID, marked)
		return fmt.Errorf("%w: order %s was %s while it was being accepted",
			domain.ErrPreconditionFailed, order.ID, current.Status)
	}

	for _, productID := range order.ProductIDs {
		if err := s.inventory.AdjustDisplayStock(ctx, productID, -1); err != nil {
			logger.Warn("Failed to adjust display stock", "productID", productID, "error", err)
		}
	}
	return nil
}

func (s *orderService) releaseMarked(ctx context.Context, orderID string, unitIDs []string) {
	for _, unitID := range unitIDs {
		if err := s.inventory.Release(ctx, unitID); err != nil {
			logger.Error("Failed to release unit", "orderID", orderID, "unitID", unitID, "error", err)
		}
	}
}

// complete refunds a paid deposit and returns the units to the pool.
func (s *orderService) complete(ctx context.Context, order *domain.Order) error {
	if s.deposits != nil {
		if _, err := s.deposits.RefundForOrder(ctx, order.ID, "order completed"); err != nil {
			return err
		}
	}
	if err := s.releaseUnits(ctx, order, true); err != nil {
		return err
	}
	return s.syncPayment(ctx, order, func(o *domain.Order) { o.PaymentStatus = domain.PaymentStatusPaid })
}

// cancel releases the reserved units and cancels an unpaid deposit. Units only come back onto
// the display counter if accepting the order had taken them off.
func (s *orderService) cancel(ctx context.Context, order *domain.Order, from domain.OrderStatus, reason string) error {
	if s.deposits != nil {
		if reason == "" {
			reason = "order canceled"
		}
		if _, err := s.deposits.CancelPendingForOrder(ctx, order.ID, reason); err != nil {
			return err
		}
	}
	accepted := from == domain.OrderStatusPendingPayment || from == domain.OrderStatusConfirmed
	if err := s.releaseUnits(ctx, order, accepted); err != nil {
		return err
	}
	return s.syncPayment(ctx, order, nil)
}

func (s *orderService) releaseUnits(ctx context.Context, order *domain.Order, restoreDisplay bool) error {
	for _, unitID := range order.UnitIDs {
		if err := s.inventory.Release(ctx, unitID); err != nil {
			return err
		}
	}
	if !restoreDisplay {
		return nil
	}
	for _, productID := range order.ProductIDs {
		if err := s.inventory.AdjustDisplayStock(ctx, productID, 1); err != nil {
			logger.Warn("Failed to adjust display stock", "productID", productID, "error", err)
		}
	}
	return nil
}

// syncPayment reloads the payment columns written by the deposit side effects, applies
// mutate to them and copies the result back onto order.
func (s *orderService) syncPayment(ctx context.Context, order *domain.Order, mutate func(*domain.Order)) error {
	fresh, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return err
	}
	if mutate != nil {
		mutate(fresh)
		fresh.UpdatedOn = time.Now().UTC()
		if err := s.orderRepo.UpdatePayment(ctx, fresh); err != nil {
			return err
		}
	}
	order.TotalPrice = fresh.TotalPrice
	order.PaymentStatus = fresh.PaymentStatus
	order.DepositRequired = fresh.DepositRequired
	order.DepositAmount = fresh.DepositAmount
	order.DepositStatus = fresh.DepositStatus
	order.RemainingAmount = fresh.RemainingAmount
	return nil
}

func validateEvidence(evidence []string) error {
	for _, e := range evidence {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("%w: evidence entries must not be empty", domain.ErrValidation)
		}
	}
	return nil
}

// parties lists the roles the actor plays on this order.
func (s *orderService) parties(ctx context.Context, actor Actor, order *domain.Order) ([]domain.Party, error) {
	if actor.IsSystem() {
		return []domain.Party{domain.PartySystem}, nil
	}
	var parties []domain.Party
	if actor.IsAdmin() {
		parties = append(parties, domain.PartyAdmin)
	}
	if order.CustomerID == actor.UserID {
		parties = append(parties, domain.PartyCustomer)
	}
	ownerID, err := s.ResolveOwner(ctx, order)
	switch {
	case err == nil:
		if ownerID == actor.UserID {
			parties = append(parties, domain.PartyOwner)
		}
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn("Could not resolve order owner", "orderID", order.ID, "error", err)
	default:
		return nil, err
	}
	return parties, nil
}

func (s *orderService) ResolveOwner(ctx context.Context, order *domain.Order) (string, error) {
	if len(order.UnitIDs) == 0 {
		return "", fmt.Errorf("%w: order %s has no units", domain.ErrNotFound, order.ID)
	}
	unit, err := s.unitRepo.GetByID(ctx, order.UnitIDs[0])
	if err != nil {
		return "", err
	}
	return s.inventory.ResolveShopOwner(ctx, unit.ProductID)
}

func (s *orderService) AdvanceDueRentals(ctx context.Context, now time.Time) (SweepResult, error) {
	logger.EnterMethod("orderService.AdvanceDueRentals", "now", now)
	var result SweepResult
	orders, err := s.orderRepo.ListByStatus(ctx, domain.OrderStatusBeforeDeadline)
	if err != nil {
		logger.ExitMethodWithError("orderService.AdvanceDueRentals", err)
		return result, err
	}
	result.Scanned = len(orders)
	for _, o := range orders {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		due, ok := o.ReturnDueAt()
		if !ok || now.Before(due) {
			continue
		}
		if _, err := s.transition(ctx, SystemActor, o.ID, domain.OrderStatusReturnProduct, TransitionOptions{}); err != nil {
			result.Failed++
			logger.Error("Failed to advance rental to return", "orderID", o.ID, "error", err)
			continue
		}
		result.Processed++
	}
	logger.ExitMethod("orderService.AdvanceDueRentals", "scanned", result.Scanned, "processed", result.Processed, "failed", result.Failed)
	return result, nil
}

type transitionNotice struct {
	title   string
	message string
	kind    string
}

var transitionNotices = map[domain.OrderStatus]transitionNotice{
	domain.OrderStatusPendingPayment: {"Order accepted", "Your order %s was accepted. Please pay the deposit to continue.", "ORDER_ACCEPTED"},
	domain.OrderStatusConfirmed:      {"Order confirmed", "Your order %s is confirmed.", "ORDER_CONFIRMED"},
	domain.OrderStatusInDelivery:     {"Order dispatched", "Your order %s is on its way.", "ORDER_DISPATCHED"},
	domain.OrderStatusBeforeDeadline: {"Order received", "Order %s was received by the customer.", "ORDER_RECEIVED"},
	domain.OrderStatusReturnProduct:  {"Return requested", "Order %s is being returned.", "ORDER_RETURNING"},
	domain.OrderStatusCompleted:      {"Order completed", "Order %s is completed.", "ORDER_COMPLETED"},
	domain.OrderStatusCanceled:       {"Order canceled", "Order %s was canceled.", "ORDER_CANCELED"},
}

// notifyTransition tells the other side of the order. Owner-driven changes go to the customer;
// customer and system changes go to the owner.
func (s *orderService) notifyTransition(ctx context.Context, actor Actor, order *domain.Order) {
	notice, ok := transitionNotices[order.Status]
	if !ok {
		return
	}
	message := fmt.Sprintf(notice.message, order.ID)
	if order.Status == domain.OrderStatusCanceled && order.CancelReason != "" {
		message += " Reason: " + order.CancelReason
	}
	if actor.UserID != order.CustomerID || order.Status == domain.OrderStatusCompleted {
		s.notifier.Notify(ctx, order.CustomerID, notice.title, message,
			map[string]string{"type": notice.kind, "order_id": order.ID})
	}
	if actor.UserID == order.CustomerID || actor.IsSystem() || order.Status == domain.OrderStatusCompleted {
		s.notifyOwner(ctx, order, notice.title, message, notice.kind)
	}
}

func (s *orderService) notifyOwner(ctx context.Context, order *domain.Order, title, message, kind string) {
	if s.notifier == nil {
		return
	}
	ownerID, err := s.ResolveOwner(ctx, order)
	if err != nil {
		logger.Warn("Could not resolve owner for notification", "orderID", order.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, ownerID, title, message, map[string]string{"type": kind, "order_id": order.ID})
}

// isBusinessError reports whether err is an expected rejection rather than a fault.
func isBusinessError(err error) bool {
	for _, kind := range []error{
		domain.ErrNotFound, domain.ErrPreconditionFailed, domain.ErrForbidden,
		domain.ErrOutOfStock, domain.ErrValidation, domain.ErrConflict,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
