package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/metrics"
	"rentalhub-backend/internal/repository"
)

type inventoryService struct {
	productRepo repository.ProductRepository
	unitRepo    repository.UnitRepository
	shopRepo    repository.ShopRepository
	orderRepo   repository.OrderRepository
	tx          repository.Transactor
	metrics     *metrics.Metrics
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	unitRepo repository.UnitRepository,
	shopRepo repository.ShopRepository,
	orderRepo repository.OrderRepository,
	tx repository.Transactor,
	m *metrics.Metrics,
) InventoryService {
	return &inventoryService{
		productRepo: productRepo,
		unitRepo:    unitRepo,
		shopRepo:    shopRepo,
		orderRepo:   orderRepo,
		tx:          tx,
		metrics:     m,
	}
}

func (s *inventoryService) ReserveOneAvailableUnit(ctx context.Context, productID, renterID string) (*domain.Unit, error) {
	return reserveOne(ctx, s.unitRepo, s.metrics, productID, renterID)
}

// reserveOne performs the atomic conditional update and, when it finds nothing,
// tells an unprovisioned product apart from an ordinary stock-out.
func reserveOne(ctx context.Context, units repository.UnitRepository, m *metrics.Metrics, productID, renterID string) (*domain.Unit, error) {
	unit, err := units.ReserveAvailable(ctx, productID, renterID)
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	counts, cerr := units.CountByProduct(ctx, productID)
	if cerr != nil {
		return nil, cerr
	}
	if counts.Total == 0 {
		m.ReservationFailure("no_units_provisioned")
		logger.Warn("Product has no units provisioned", "productID", productID)
		return nil, fmt.Errorf("%w (product %s)", domain.ErrNoUnitsProvisioned, productID)
	}
	m.ReservationFailure("all_units_rented")
	return nil, fmt.Errorf("%w (product %s)", domain.ErrAllUnitsRented, productID)
}

func (s *inventoryService) ReserveUnitsForOrder(ctx context.Context, productIDs []string, renterID string, persist PersistOrderFunc) ([]domain.Unit, error) {
	logger.EnterMethod("inventoryService.ReserveUnitsForOrder", "renterID", renterID, "products", len(productIDs))
	var (
		units []domain.Unit
		err   error
	)
	if s.tx != nil && s.tx.SupportsTransactions() {
		units, err = s.reserveTransactional(ctx, productIDs, renterID, persist)
	} else {
		units, err = s.reserveBestEffort(ctx, productIDs, renterID, persist)
	}
	if err != nil {
		logger.ExitMethodWithError("inventoryService.ReserveUnitsForOrder", err, "renterID", renterID)
		return nil, err
	}
	logger.ExitMethod("inventoryService.ReserveUnitsForOrder", "renterID", renterID, "units", len(units))
	return units, nil
}

// reserveTransactional reserves every unit and persists the order in one unit of work.
// Any failure rolls back all reservations.
func (s *inventoryService) reserveTransactional(ctx context.Context, productIDs []string, renterID string, persist PersistOrderFunc) ([]domain.Unit, error) {
	var reserved []domain.Unit
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		reserved = reserved[:0]
		for _, productID := range productIDs {
			unit, err := reserveOne(ctx, repos.Units, s.metrics, productID, renterID)
			if err != nil {
				return err
			}
			reserved = append(reserved, *unit)
		}
		return persist(ctx, repos.Orders, reserved)
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// reserveBestEffort is used when storage has no transactions. Each reservation is atomic
// on its own, but the set is not: if unit K fails, units 1..K-1 stay validly reserved until
// the compensating release below runs, and a failed release leaves them rented.
func (s *inventoryService) reserveBestEffort(ctx context.Context, productIDs []string, renterID string, persist PersistOrderFunc) ([]domain.Unit, error) {
	reserved := make([]domain.Unit, 0, len(productIDs))
	for _, productID := range productIDs {
		unit, err := reserveOne(ctx, s.unitRepo, s.metrics, productID, renterID)
		if err != nil {
			s.compensate(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, *unit)
	}
	if err := persist(ctx, s.orderRepo, reserved); err != nil {
		s.compensate(ctx, reserved)
		return nil, err
	}
	return reserved, nil
}

func (s *inventoryService) compensate(ctx context.Context, reserved []domain.Unit) {
	for _, u := range reserved {
		if err := s.unitRepo.Release(ctx, u.ID); err != nil {
			logger.Error("Failed to release unit after aborted reservation", "unitID", u.ID, "error", err)
		}
	}
}

func (s *inventoryService) MarkRented(ctx context.Context, unitID, renterID string) error {
	return s.unitRepo.MarkRented(ctx, unitID, renterID)
}

// Release returns a unit to available. The display counter is adjusted by the caller.
func (s *inventoryService) Release(ctx context.Context, unitID string) error {
	return s.unitRepo.Release(ctx, unitID)
}

func (s *inventoryService) AdjustDisplayStock(ctx context.Context, productID string, delta int) error {
	return s.productRepo.AdjustAvailableStock(ctx, productID, delta)
}

func (s *inventoryService) ProvisionUnits(ctx context.Context, actor Actor, productID string) (*ReconcileReport, error) {
	if !actor.IsAdmin() {
		ownerID, err := s.ResolveShopOwner(ctx, productID)
		if err != nil {
			return nil, err
		}
		if ownerID != actor.UserID {
			return nil, fmt.Errorf("%w: only the shop owner may provision units", domain.ErrForbidden)
		}
	}
	return s.ReconcileProduct(ctx, productID)
}

// ReconcileProduct restores count(units) == stock by creating the missing units and resets
// the display counter to the available unit count. Surplus units are reported only.
func (s *inventoryService) ReconcileProduct(ctx context.Context, productID string) (*ReconcileReport, error) {
	logger.EnterMethod("inventoryService.ReconcileProduct", "productID", productID)
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.ReconcileProduct", err, "productID", productID)
		return nil, err
	}
	counts, err := s.unitRepo.CountByProduct(ctx, productID)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.ReconcileProduct", err, "productID", productID)
		return nil, err
	}

	report := &ReconcileReport{ProductID: productID, Stock: product.Stock, UnitsBefore: counts.Total}
	if missing := product.Stock - counts.Total; missing > 0 {
		now := time.Now().UTC()
		units := make([]domain.Unit, 0, missing)
		for n := counts.Total + 1; n <= product.Stock; n++ {
			units = append(units, domain.Unit{
				ID:        uuid.NewString(),
				ProductID: productID,
				UnitLabel: fmt.Sprintf("%s-%d", productID, n),
				Status:    domain.UnitStatusAvailable,
				UpdatedOn: now,
			})
		}
		if err := s.unitRepo.CreateBatch(ctx, units); err != nil {
			logger.ExitMethodWithError("inventoryService.ReconcileProduct", err, "productID", productID)
			return nil, err
		}
		report.Created = missing
		counts.Available += missing
	} else if missing < 0 {
		report.Surplus = -missing
		logger.Warn("Product has more units than stock", "productID", productID, "stock", product.Stock, "units", counts.Total)
	}

	display := counts.Available
	if display > product.Stock {
		display = product.Stock
	}
	if err := s.productRepo.SetAvailableStock(ctx, productID, display); err != nil {
		logger.ExitMethodWithError("inventoryService.ReconcileProduct", err, "productID", productID)
		return nil, err
	}
	report.Available = counts.Available
	report.AvailableStock = display

	logger.ExitMethod("inventoryService.ReconcileProduct", "productID", productID, "created", report.Created, "surplus", report.Surplus)
	return report, nil
}

// ReconcileAll keeps going past a failing product and returns the joined errors.
func (s *inventoryService) ReconcileAll(ctx context.Context) ([]ReconcileReport, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]ReconcileReport, 0, len(products))
	var errs []error
	for _, p := range products {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		r, err := s.ReconcileProduct(ctx, p.ID)
		if err != nil {
			logger.Error("Failed to reconcile product", "productID", p.ID, "error", err)
			errs = append(errs, fmt.Errorf("product %s: %w", p.ID, err))
			continue
		}
		reports = append(reports, *r)
	}
	return reports, errors.Join(errs...)
}

func (s *inventoryService) GetStock(ctx context.Context, productID string) (*ProductStock, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	counts, err := s.unitRepo.CountByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductStock{
		ProductID:      productID,
		Stock:          product.Stock,
		AvailableStock: product.AvailableStock,
		Units:          counts,
	}, nil
}

func (s *inventoryService) ResolveShopOwner(ctx context.Context, productID string) (string, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return "", err
	}
	shop, err := s.shopRepo.GetByID(ctx, product.ShopID)
	if err != nil {
		return "", err
	}
	if shop.OwnerUserID == "" {
		return "", fmt.Errorf("%w: shop %s has no registered owner", domain.ErrNotFound, shop.ID)
	}
	return shop.OwnerUserID, nil
}
