package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AdminRepository handles persistence for administrators.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id int64) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	List(ctx context.Context, limit, offset int) ([]domain.Admin, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type adminRepository struct {
	db DBTX
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(db DBTX) AdminRepository {
	return &adminRepository{db: db}
}

const adminColumns = `id, email, hashed_password, full_name, role, is_active, created_at`

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	const query = `
        INSERT INTO admins (email, hashed_password, full_name, role, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRow(ctx, query,
		admin.Email,
		admin.PasswordHash,
		admin.FullName,
		string(admin.Role),
		admin.Active,
	).Scan(&admin.ID, &admin.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *adminRepository) GetByID(ctx context.Context, id int64) (*domain.Admin, error) {
	const query = `SELECT ` + adminColumns + ` FROM admins WHERE id=$1`
	return scanAdmin(conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	const query = `SELECT ` + adminColumns + ` FROM admins WHERE email=$1`
	return scanAdmin(conn(ctx, r.db).QueryRow(ctx, query, email))
}

func (r *adminRepository) List(ctx context.Context, limit, offset int) ([]domain.Admin, error) {
	const query = `SELECT ` + adminColumns + ` FROM admins ORDER BY id LIMIT $1 OFFSET $2`
	limit, offset = normalizePage(limit, offset, 100, 500)

	rows, err := conn(ctx, r.db).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *admin)
	}
	return result, rows.Err()
}

func (r *adminRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE admins SET is_active=$1 WHERE id=$2`

	cmd, err := conn(ctx, r.db).Exec(ctx, query, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	var (
		admin    domain.Admin
		fullName *string
		role     string
	)
	if err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&fullName,
		&role,
		&admin.Active,
		&admin.CreatedAt,
	); err != nil {
		return nil, err
	}
	if fullName != nil {
		admin.FullName = *fullName
	}
	admin.Role = domain.AdminRole(role)
	return &admin, nil
}
