package memory

import (
	"context"
	"fmt"

	"rentalhub-backend/internal/domain"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s exists", domain.ErrConflict, user.ID)
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return cloneUser(u), nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, user.ID)
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]domain.Role(nil), u.Roles...)
	return &c
}

type shopRepository struct{ s *Store }

func (r *shopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *shop
	r.s.shops[shop.ID] = &c
	return nil
}

func (r *shopRepository) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	shop, ok := r.s.shops[id]
	if !ok {
		return nil, fmt.Errorf("%w: shop %s", domain.ErrNotFound, id)
	}
	c := *shop
	return &c, nil
}

type productRepository struct{ s *Store }

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[product.ID]; !ok {
		r.s.productOrder = append(r.s.productOrder, product.ID)
	}
	r.s.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return cloneProduct(p), nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Product, 0, len(r.s.productOrder))
	for _, id := range r.s.productOrder {
		out = append(out, *cloneProduct(r.s.products[id]))
	}
	return out, nil
}

func (r *productRepository) AdjustAvailableStock(ctx context.Context, productID string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	p.AvailableStock = clamp(p.AvailableStock+delta, 0, p.Stock)
	return nil
}

func (r *productRepository) SetAvailableStock(ctx context.Context, productID string, value int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	p.AvailableStock = clamp(value, 0, p.Stock)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneProduct(p *domain.Product) *domain.Product {
	c := *p
	c.DepositPolicy = domain.DepositPolicy{
		Unverified: cloneIntPtr(p.DepositPolicy.Unverified),
		Verified:   cloneIntPtr(p.DepositPolicy.Verified),
		Premium:    cloneIntPtr(p.DepositPolicy.Premium),
	}
	return &c
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
