package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns the directory backed by the users, roles and
// permission tables.
func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return r.hydrate(ctx, rec)
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return r.hydrate(ctx, rec)
}

func (r *userRepository) RecordLogin(ctx context.Context, userID uuid.UUID, loginAt time.Time, markVerified bool) error {
	updates := map[string]any{
		"last_login_at": loginAt,
		"updated_at":    loginAt,
	}
	query := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID)
	if markVerified {
		// Only the first verified sign-in stamps the timestamp.
		if err := query.
			Where("email_verified_at IS NULL").
			Update("email_verified_at", loginAt).Error; err != nil {
			return err
		}
		query = r.db.WithContext(ctx).
			Model(&userModel{}).
			Where("user_id = ?", userID)
	}
	return query.Updates(updates).Error
}

// hydrate attaches role name and both grant sets so callers never follow up
// with extra reads mid-issuance.
func (r *userRepository) hydrate(ctx context.Context, rec userModel) (domain.User, error) {
	var role roleModel
	if err := r.db.WithContext(ctx).
		Where("role_id = ?", rec.RoleID).
		Take(&role).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, err
	}

	var roleGrants []string
	if err := r.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.permission_id").
		Where("role_permissions.role_id = ?", rec.RoleID).
		Pluck("permissions.slug", &roleGrants).Error; err != nil {
		return domain.User{}, err
	}

	var directGrants []string
	if err := r.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.permission_id").
		Where("user_permissions.user_id = ?", rec.UserID).
		Pluck("permissions.slug", &directGrants).Error; err != nil {
		return domain.User{}, err
	}

	return domain.User{
		UserID:            rec.UserID,
		Email:             rec.Email,
		IsActive:          rec.IsActive,
		RoleID:            rec.RoleID,
		RoleName:          role.Name,
		TenantID:          rec.TenantID,
		RolePermissions:   roleGrants,
		DirectPermissions: directGrants,
		LastLoginAt:       rec.LastLoginAt,
		EmailVerifiedAt:   rec.EmailVerifiedAt,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}, nil
}
