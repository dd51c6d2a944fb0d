package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/dberrors"
	"github.com/campusgpt/admission/internal/pkg/logger"
)

// StaffRepository handles staff account database operations
type StaffRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new staff account
func (r *StaffRepository) Create(ctx context.Context, staff *models.StaffUser) error {
	sql, args, err := r.sb.Insert("staff_users").
		Columns("email", "password_hash", "full_name", "role", "is_active").
		Values(staff.Email, staff.PasswordHash, staff.FullName, staff.Role, staff.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create staff query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&staff.ID, &staff.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "staff_users_email_key") {
			return apperrors.ErrStaffAlreadyExists
		}
		logger.Error().Err(err).Str("email", staff.Email).Msg("Error creating staff user")
		return fmt.Errorf("failed to create staff user: %w", err)
	}
	return nil
}

func (r *StaffRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.StaffUser, error) {
	sql, args, err := r.sb.Select("id", "email", "password_hash", "full_name", "role", "is_active", "last_login_at", "created_at").
		From("staff_users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get staff query: %w", err)
	}

	var s models.StaffUser
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&s.ID, &s.Email, &s.PasswordHash, &s.FullName, &s.Role, &s.IsActive, &s.LastLoginAt, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &s, nil
}

// GetByEmail retrieves a staff account by email
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByID retrieves a staff account by id
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.StaffUser, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// UpdateLastLogin stamps a successful login
func (r *StaffRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE staff_users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStaffNotFound
	}
	return nil
}
