package memory

import (
	"context"
	"fmt"
	"time"

	"rentalhub-backend/internal/domain"
)

type unitRepository struct{ s *Store }

func (r *unitRepository) CreateBatch(ctx context.Context, units []domain.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range units {
		u := units[i]
		if _, ok := r.s.units[u.ID]; ok {
			return fmt.Errorf("%w: unit %s exists", domain.ErrConflict, u.ID)
		}
	}
	for i := range units {
		u := cloneUnit(&units[i])
		r.s.units[u.ID] = u
		r.s.unitsByProd[u.ProductID] = append(r.s.unitsByProd[u.ProductID], u.ID)
	}
	return nil
}

func (r *unitRepository) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: unit %s", domain.ErrNotFound, id)
	}
	return cloneUnit(u), nil
}

// ReserveAvailable checks and flips under one lock, so two callers never get the same unit.
func (r *unitRepository) ReserveAvailable(ctx context.Context, productID, renterID string) (*domain.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.unitsByProd[productID] {
		u := r.s.units[id]
		if u.Status != domain.UnitStatusAvailable {
			continue
		}
		u.Status = domain.UnitStatusRented
		renter := renterID
		u.RenterID = &renter
		u.UpdatedOn = time.Now().UTC()
		return cloneUnit(u), nil
	}
	return nil, fmt.Errorf("%w: no available unit for product %s", domain.ErrNotFound, productID)
}

func (r *unitRepository) MarkRented(ctx context.Context, unitID, renterID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[unitID]
	if !ok {
		return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
	}
	if u.Status == domain.UnitStatusRented && u.RenterID != nil && *u.RenterID != renterID {
		return fmt.Errorf("%w: unit %s is rented by another customer", domain.ErrConflict, unitID)
	}
	u.Status = domain.UnitStatusRented
	renter := renterID
	u.RenterID = &renter
	u.UpdatedOn = time.Now().UTC()
	return nil
}

func (r *unitRepository) Release(ctx context.Context, unitID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[unitID]
	if !ok {
		return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
	}
	u.Status = domain.UnitStatusAvailable
	u.RenterID = nil
	u.UpdatedOn = time.Now().UTC()
	return nil
}

func (r *unitRepository) CountByProduct(ctx context.Context, productID string) (domain.UnitCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var c domain.UnitCounts
	for _, id := range r.s.unitsByProd[productID] {
		c.Total++
		if r.s.units[id].Status == domain.UnitStatusAvailable {
			c.Available++
		} else {
			c.Rented++
		}
	}
	return c, nil
}

func cloneUnit(u *domain.Unit) *domain.Unit {
	c := *u
	c.RenterID = cloneStringPtr(u.RenterID)
	return &c
}
