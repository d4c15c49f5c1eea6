package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/repository"
)

type userRepository struct {
	db dbtx
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, email, name, roles, kyc_status, kyc_approved, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if u.CreatedOn.IsZero() {
		u.CreatedOn = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, pq.Array(rolesToStrings(u.Roles)), u.KYCStatus, u.KYCApproved, u.CreatedOn)
	return translate(err, "user "+u.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	var roles []string
	query := `SELECT id, email, name, roles, kyc_status, kyc_approved, created_on FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, pq.Array(&roles), &u.KYCStatus, &u.KYCApproved, &u.CreatedOn)
	if err != nil {
		return nil, translate(err, "user "+id)
	}
	for _, role := range roles {
		u.Roles = append(u.Roles, domain.Role(role))
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET email=$1, name=$2, roles=$3, kyc_status=$4, kyc_approved=$5 WHERE id=$6`
	res, err := r.db.ExecContext(ctx, query, u.Email, u.Name, pq.Array(rolesToStrings(u.Roles)), u.KYCStatus, u.KYCApproved, u.ID)
	if err != nil {
		return translate(err, "user "+u.ID)
	}
	return requireRow(res, "user "+u.ID)
}

func rolesToStrings(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
