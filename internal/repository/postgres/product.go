package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

type shopRepository struct {
	db dbtx
}

func NewShopRepository(db *sql.DB) repository.ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) Create(ctx context.Context, s *domain.Shop) error {
	if s.CreatedOn.IsZero() {
		s.CreatedOn = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO shops (id, owner_user_id, name, created_on) VALUES ($1, $2, $3, $4)`,
		s.ID, s.OwnerUserID, s.Name, s.CreatedOn)
	return translate(err, "shop "+s.ID)
}

func (r *shopRepository) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	s := &domain.Shop{}
	err := r.db.QueryRowContext(ctx, `SELECT id, owner_user_id, name, created_on FROM shops WHERE id = $1`, id).
		Scan(&s.ID, &s.OwnerUserID, &s.Name, &s.CreatedOn)
	if err != nil {
		return nil, translate(err, "shop "+id)
	}
	return s, nil
}

type productRepository struct {
	db dbtx
}

func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, shop_id, name, price, deposit_unverified_pct, deposit_verified_pct, deposit_premium_pct, stock, available_stock, created_on, updated_on`

func scanProduct(row interface{ Scan(...any) error }, p *domain.Product) error {
	return row.Scan(&p.ID, &p.ShopID, &p.Name, &p.Price,
		&p.DepositPolicy.Unverified, &p.DepositPolicy.Verified, &p.DepositPolicy.Premium,
		&p.Stock, &p.AvailableStock, &p.CreatedOn, &p.UpdatedOn)
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedOn, p.UpdatedOn = now, now
	query := `INSERT INTO products (` + productColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.ShopID, p.Name, p.Price,
		p.DepositPolicy.Unverified, p.DepositPolicy.Verified, p.DepositPolicy.Premium,
		p.Stock, p.AvailableStock, p.CreatedOn, p.UpdatedOn)
	return translate(err, "product "+p.ID)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), p)
	if err != nil {
		return nil, translate(err, "product "+id)
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_on`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) AdjustAvailableStock(ctx context.Context, productID string, delta int) error {
	logger.DatabaseCall("UPDATE", "products", "productID", productID, "delta", delta)
	query := `UPDATE products SET available_stock = LEAST(GREATEST(available_stock + $2, 0), stock), updated_on = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, productID, delta, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, "product "+productID)
}

func (r *productRepository) SetAvailableStock(ctx context.Context, productID string, value int) error {
	query := `UPDATE products SET available_stock = LEAST(GREATEST($2, 0), stock), updated_on = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, productID, value, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, "product "+productID)
}
