package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/metrics"
	"github.com/stockwise/backend-core/internal/ports"
)

// SignInWithGoogle exchanges a verified external identity token for a
// first-party credential pair. Unknown and inactive accounts both fail with
// the generic invalid-credentials error so the endpoint cannot be used to
// probe which emails exist.
func (s *Service) SignInWithGoogle(ctx context.Context, req GoogleSignInRequest) (TokenPair, error) {
	identityToken := strings.TrimSpace(req.IdentityToken)
	if identityToken == "" {
		return TokenPair{}, fmt.Errorf("%w: id_token is required", domain.ErrInvalidInput)
	}

	if req.IPAddress != "" {
		if err := s.enforceRateLimit(ctx, "signin:ip:"+req.IPAddress, s.cfg.SignInRateLimitIPThreshold, s.cfg.SignInRateLimitWindow); err != nil {
			return TokenPair{}, err
		}
	}

	claims, err := s.verifier.Verify(ctx, identityToken)
	if err != nil {
		s.logAuth(ctx, "google_sign_in", "denied", "error", err)
		return TokenPair{}, err
	}

	email, err := normalizeEmail(claims.Email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.enforceRateLimit(ctx, "signin:email:"+email, s.cfg.SignInRateLimitEmailThreshold, s.cfg.SignInRateLimitWindow); err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logAuth(ctx, "google_sign_in", "denied", "email", email, "reason", "unknown_account")
			return TokenPair{}, domain.ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		s.logAuth(ctx, "google_sign_in", "denied", "user_id", user.UserID, "reason", "inactive_account")
		return TokenPair{}, domain.ErrInvalidCredentials
	}

	now := s.nowFn()
	if err := s.users.RecordLogin(ctx, user.UserID, now, claims.EmailVerified); err != nil {
		slog.Default().WarnContext(ctx, "failed to record login",
			"module", "application", "layer", "application",
			"operation", "google_sign_in", "outcome", "warning",
			"user_id", user.UserID, "error", err,
		)
	}
	user.LastLoginAt = &now

	pair, err := s.IssueTokens(ctx, user, TokenContext{
		DeviceName: req.DeviceName,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		return TokenPair{}, err
	}
	s.logAuth(ctx, "google_sign_in", "success", "user_id", user.UserID, "token_id", pair.TokenID)
	return pair, nil
}

// IssueTokens mints a credential pair for an already-authenticated user. The
// permission snapshot is resolved fresh on every call; nothing is reused from
// earlier issues.
func (s *Service) IssueTokens(ctx context.Context, user domain.User, tc TokenContext) (TokenPair, error) {
	permissions := domain.ResolvePermissions(user.RolePermissions, user.DirectPermissions)
	now := s.nowFn()
	accessExpiresAt := now.Add(s.cfg.AccessTokenTTL)
	refreshExpiresAt := now.Add(s.cfg.RefreshTokenTTL)
	tokenID := newTokenID()

	accessToken, err := s.signer.Sign(accessClaims(user, permissions, tokenID, s.cfg.Issuer, now, accessExpiresAt))
	if err != nil {
		return TokenPair{}, err
	}

	rawRefresh := randomHex(refreshTokenBytes)
	rec, err := s.tokens.Create(ctx, ports.TokenCreateParams{
		UserID:           user.UserID,
		AccessTokenID:    tokenID,
		RefreshTokenHash: s.hasher.HashRefreshToken(rawRefresh),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
		DeviceName:       tc.DeviceName,
		IPAddress:        tc.IPAddress,
		UserAgent:        tc.UserAgent,
	})
	if err != nil {
		return TokenPair{}, err
	}
	metrics.RecordTokenIssued()
	return s.tokenPair(user, rec, accessToken, rawRefresh, permissions, now), nil
}

// RefreshTokens rotates a credential pair in place. Validation, permission
// re-resolution and the row update all happen inside the repository's
// exclusive row lock, so two concurrent calls with the same credential cannot
// both succeed.
func (s *Service) RefreshTokens(ctx context.Context, rawRefresh string, tc TokenContext) (TokenPair, error) {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh_token is required", domain.ErrInvalidInput)
	}

	var (
		user        domain.User
		permissions []string
		accessToken string
		rawNext     string
		issuedAt    time.Time
	)
	rec, err := s.tokens.RotateByRefreshHash(ctx, s.hasher.HashRefreshToken(rawRefresh), func(current domain.AuthToken) (ports.TokenRotation, error) {
		now := s.nowFn()
		if !current.RefreshExpiresAt.After(now) {
			return ports.TokenRotation{}, domain.ErrExpiredRefreshToken
		}

		u, err := s.users.GetByID(ctx, current.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return ports.TokenRotation{}, domain.ErrInactiveAccount
			}
			return ports.TokenRotation{}, err
		}
		if !u.IsActive {
			return ports.TokenRotation{}, domain.ErrInactiveAccount
		}

		// Prior permission snapshots are distrusted on rotation.
		permissions = domain.ResolvePermissions(u.RolePermissions, u.DirectPermissions)
		tokenID := newTokenID()
		accessExpiresAt := now.Add(s.cfg.AccessTokenTTL)
		signed, err := s.signer.Sign(accessClaims(u, permissions, tokenID, s.cfg.Issuer, now, accessExpiresAt))
		if err != nil {
			return ports.TokenRotation{}, err
		}

		rawNext = randomHex(refreshTokenBytes)
		user = u
		accessToken = signed
		issuedAt = now
		return ports.TokenRotation{
			AccessTokenID:    tokenID,
			RefreshTokenHash: s.hasher.HashRefreshToken(rawNext),
			AccessExpiresAt:  accessExpiresAt,
			RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
			// Context fields describe the rotating request, not the
			// original issue; they are overwritten wholesale.
			DeviceName:       tc.DeviceName,
			IPAddress:        tc.IPAddress,
			UserAgent:        tc.UserAgent,
			LastUsedAt:       now,
		}, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}

	metrics.RecordTokenIssued()
	s.logAuth(ctx, "refresh_tokens", "success", "user_id", user.UserID, "token_id", rec.AccessTokenID)
	return s.tokenPair(user, rec, accessToken, rawNext, permissions, issuedAt), nil
}

// Logout revokes the calling session, or every session the user has when
// allDevices is set. Revocation forces both expiries to the current instant,
// so the revoked rows stop validating immediately.
func (s *Service) Logout(ctx context.Context, claims ports.AccessClaims, allDevices bool) error {
	now := s.nowFn()
	if allDevices {
		revoked, err := s.tokens.RevokeAllByUser(ctx, claims.UserID, now)
		if err != nil {
			return err
		}
		metrics.RecordSessionsRevoked(revoked)
		s.enqueueSessionsRevoked(ctx, claims.UserID, revoked, true, now)
		s.logAuth(ctx, "logout", "success", "user_id", claims.UserID, "all_devices", true, "sessions_revoked", revoked)
		return nil
	}

	if err := s.tokens.RevokeByAccessTokenID(ctx, claims.TokenID, now); err != nil {
		// Logout is idempotent: a session that is already gone stays
		// logged out.
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	metrics.RecordSessionsRevoked(1)
	s.enqueueSessionsRevoked(ctx, claims.UserID, 1, false, now)
	s.logAuth(ctx, "logout", "success", "user_id", claims.UserID, "token_id", claims.TokenID)
	return nil
}

// ValidateToken verifies a signed access credential and cross-checks the
// stored session row, which keeps the residual validity window of a revoked
// credential bounded by the store lookup rather than the JWT expiry.
func (s *Service) ValidateToken(ctx context.Context, rawAccess string) (ports.AccessClaims, error) {
	rawAccess = strings.TrimSpace(rawAccess)
	if rawAccess == "" {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	claims, err := s.signer.ParseAndValidate(rawAccess)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	rec, err := s.tokens.GetByAccessTokenID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ports.AccessClaims{}, fmt.Errorf("%w: unknown session", domain.ErrUnauthorized)
		}
		return ports.AccessClaims{}, err
	}
	now := s.nowFn()
	if rec.Revoked || !rec.AccessExpiresAt.After(now) {
		return ports.AccessClaims{}, fmt.Errorf("%w: session no longer valid", domain.ErrUnauthorized)
	}

	if err := s.tokens.TouchLastUsed(ctx, claims.TokenID, now); err != nil {
		slog.Default().WarnContext(ctx, "failed to touch session",
			"module", "application", "layer", "application",
			"operation", "validate_token", "outcome", "warning",
			"token_id", claims.TokenID, "error", err,
		)
	}
	return claims, nil
}

const (
	sessionListDefaultLimit = 50
	sessionListMaxLimit     = 200
)

// ListSessions returns a page of the user's stored session rows, newest
// first, with the calling session flagged.
func (s *Service) ListSessions(ctx context.Context, claims ports.AccessClaims, limit, offset int) ([]SessionItem, error) {
	if limit <= 0 {
		limit = sessionListDefaultLimit
	}
	if limit > sessionListMaxLimit {
		limit = sessionListMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.tokens.ListByUser(ctx, claims.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]SessionItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toSessionItem(rec, claims.TokenID))
	}
	return items, nil
}

func (s *Service) logAuth(ctx context.Context, operation, outcome string, attrs ...any) {
	fields := append([]any{
		"module", "auth",
		"layer", "application",
		"operation", operation,
		"outcome", outcome,
	}, attrs...)
	if outcome == "success" {
		slog.Default().InfoContext(ctx, "auth operation", fields...)
		return
	}
	slog.Default().WarnContext(ctx, "auth operation", fields...)
}
