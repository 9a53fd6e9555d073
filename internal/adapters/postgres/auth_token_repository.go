package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type authTokenRepository struct {
	db *gorm.DB
}

func NewAuthTokenRepository(db *gorm.DB) *authTokenRepository {
	return &authTokenRepository{db: db}
}

func (r *authTokenRepository) Create(ctx context.Context, params ports.TokenCreateParams) (domain.AuthToken, error) {
	now := time.Now().UTC()
	rec := authTokenModel{
		UserID:           params.UserID,
		DeviceName:       params.DeviceName,
		AccessTokenID:    params.AccessTokenID,
		RefreshTokenHash: params.RefreshTokenHash,
		AccessExpiresAt:  params.AccessExpiresAt,
		RefreshExpiresAt: params.RefreshExpiresAt,
		IPAddress:        nullableString(params.IPAddress),
		UserAgent:        params.UserAgent,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.AuthToken{}, err
	}
	return toDomainAuthToken(rec), nil
}

func (r *authTokenRepository) GetByAccessTokenID(ctx context.Context, accessTokenID string) (domain.AuthToken, error) {
	var rec authTokenModel
	if err := r.db.WithContext(ctx).
		Where("access_token_id = ?", accessTokenID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AuthToken{}, domain.ErrNotFound
		}
		return domain.AuthToken{}, err
	}
	return toDomainAuthToken(rec), nil
}

func (r *authTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AuthToken, error) {
	var rows []authTokenModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.AuthToken, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainAuthToken(item))
	}
	return result, nil
}

func (r *authTokenRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&authTokenModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// RotateByRefreshHash locks the matched live row FOR UPDATE, runs fn, and
// overwrites the row in place with fn's rotation. The lock is held until the
// transaction commits, so a second refresh with the same credential waits and
// then misses, because the hash it matched on is gone.
func (r *authTokenRepository) RotateByRefreshHash(ctx context.Context, refreshHash string, fn func(current domain.AuthToken) (ports.TokenRotation, error)) (domain.AuthToken, error) {
	var rec authTokenModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("refresh_token_hash = ?", refreshHash).
			Where("revoked = FALSE").
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		rotation, err := fn(toDomainAuthToken(rec))
		if err != nil {
			return err
		}

		updates := map[string]any{
			"access_token_id":    rotation.AccessTokenID,
			"refresh_token_hash": rotation.RefreshTokenHash,
			"access_expires_at":  rotation.AccessExpiresAt,
			"refresh_expires_at": rotation.RefreshExpiresAt,
			"device_name":        rotation.DeviceName,
			"ip_address":         nullableString(rotation.IPAddress),
			"user_agent":         rotation.UserAgent,
			"last_used_at":       rotation.LastUsedAt,
			"updated_at":         rotation.LastUsedAt,
		}
		if err := tx.Model(&authTokenModel{}).
			Where("id = ?", rec.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", rec.ID).Take(&rec).Error
	})
	if err != nil {
		return domain.AuthToken{}, err
	}
	return toDomainAuthToken(rec), nil
}

func (r *authTokenRepository) RevokeByAccessTokenID(ctx context.Context, accessTokenID string, revokedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&authTokenModel{}).
		Where("access_token_id = ?", accessTokenID).
		Where("revoked = FALSE").
		Updates(revocationUpdates(revokedAt))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *authTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&authTokenModel{}).
		Where("user_id = ?", userID).
		Where("revoked = FALSE").
		Updates(revocationUpdates(revokedAt))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *authTokenRepository) TouchLastUsed(ctx context.Context, accessTokenID string, usedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&authTokenModel{}).
		Where("access_token_id = ?", accessTokenID).
		Update("last_used_at", usedAt).Error
}

// Revocation forces both expiries to the revocation instant so the record
// fails every later check regardless of which expiry a path consults.
func revocationUpdates(revokedAt time.Time) map[string]any {
	return map[string]any{
		"revoked":            true,
		"access_expires_at":  revokedAt,
		"refresh_expires_at": revokedAt,
		"updated_at":         revokedAt,
	}
}
