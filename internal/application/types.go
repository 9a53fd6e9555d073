package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

// TokenContext carries the client metadata recorded on each credential row.
type TokenContext struct {
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type GoogleSignInRequest struct {
	IdentityToken string
	DeviceName    string
	IPAddress     string
	UserAgent     string
}

type UserSummary struct {
	UserID      uuid.UUID  `json:"user_id"`
	Email       string     `json:"email"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	RoleID      uuid.UUID  `json:"role_id"`
	RoleName    string     `json:"role_name"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// TokenPair is the only response that ever carries the raw refresh
// credential. The expiry countdowns are exact second differences against the
// instant the pair was minted.
type TokenPair struct {
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	TokenType        string      `json:"token_type"`
	TokenID          string      `json:"token_id"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	RefreshExpiresAt time.Time   `json:"refresh_expires_at"`
	AccessExpiresIn  int64       `json:"access_expires_in"`
	RefreshExpiresIn int64       `json:"refresh_expires_in"`
	User             UserSummary `json:"user"`
}

type SessionItem struct {
	TokenID          string     `json:"token_id"`
	DeviceName       string     `json:"device_name,omitempty"`
	IPAddress        string     `json:"ip_address,omitempty"`
	UserAgent        string     `json:"user_agent,omitempty"`
	Current          bool       `json:"current"`
	Revoked          bool       `json:"revoked"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	RefreshExpiresAt time.Time  `json:"refresh_expires_at"`
}

type RecordLoyaltyRequest struct {
	Type           string
	PointsDelta    int64
	SpentDelta     float64
	PurchasesDelta int64
	Reason         string
	Meta           map[string]any
}

func (s *Service) tokenPair(user domain.User, rec domain.AuthToken, accessToken, rawRefresh string, permissions []string, issuedAt time.Time) TokenPair {
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     rawRefresh,
		TokenType:        "Bearer",
		TokenID:          rec.AccessTokenID,
		AccessExpiresAt:  rec.AccessExpiresAt,
		RefreshExpiresAt: rec.RefreshExpiresAt,
		AccessExpiresIn:  int64(rec.AccessExpiresAt.Sub(issuedAt).Seconds()),
		RefreshExpiresIn: int64(rec.RefreshExpiresAt.Sub(issuedAt).Seconds()),
		User: UserSummary{
			UserID:      user.UserID,
			Email:       user.Email,
			TenantID:    user.TenantID,
			RoleID:      user.RoleID,
			RoleName:    user.RoleName,
			Permissions: permissions,
			LastLoginAt: user.LastLoginAt,
		},
	}
}

func toSessionItem(rec domain.AuthToken, currentTokenID string) SessionItem {
	return SessionItem{
		TokenID:          rec.AccessTokenID,
		DeviceName:       rec.DeviceName,
		IPAddress:        rec.IPAddress,
		UserAgent:        rec.UserAgent,
		Current:          rec.AccessTokenID == currentTokenID,
		Revoked:          rec.Revoked,
		CreatedAt:        rec.CreatedAt,
		LastUsedAt:       rec.LastUsedAt,
		AccessExpiresAt:  rec.AccessExpiresAt,
		RefreshExpiresAt: rec.RefreshExpiresAt,
	}
}

func accessClaims(user domain.User, permissions []string, tokenID, issuer string, issuedAt, expiresAt time.Time) ports.AccessClaims {
	return ports.AccessClaims{
		UserID:      user.UserID,
		TenantID:    user.TenantID,
		RoleID:      user.RoleID,
		Permissions: permissions,
		TokenID:     tokenID,
		Issuer:      issuer,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}
}
