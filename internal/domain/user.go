package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// User is the identity plus authorization snapshot consumed at token issuance.
// Role and direct grants are loaded eagerly so issuance never reads back into
// the directory mid-flight.
type User struct {
	UserID            uuid.UUID
	Email             string
	IsActive          bool
	RoleID            uuid.UUID
	RoleName          string
	TenantID          uuid.UUID
	RolePermissions   []string
	DirectPermissions []string
	LastLoginAt       *time.Time
	EmailVerifiedAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AuthToken is one device session: a stored access-token identifier paired
// with the SHA-256 hash of its refresh credential. The raw refresh credential
// is never persisted. Rotation overwrites this row in place, so a user holds
// at most one live row per device session.
type AuthToken struct {
	ID               int64
	UserID           uuid.UUID
	DeviceName       string
	AccessTokenID    string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Revoked          bool
	LastUsedAt       *time.Time
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ResolvePermissions computes the permission snapshot fresh: the union of
// role-granted and directly granted slugs, deduplicated and sorted. Callers
// that must not trust any earlier snapshot (issuance, refresh) call this
// directly instead of caching the result on the user.
func ResolvePermissions(roleGrants, directGrants []string) []string {
	seen := make(map[string]struct{}, len(roleGrants)+len(directGrants))
	out := make([]string, 0, len(roleGrants)+len(directGrants))
	for _, grants := range [][]string{roleGrants, directGrants} {
		for _, slug := range grants {
			if slug == "" {
				continue
			}
			if _, ok := seen[slug]; ok {
				continue
			}
			seen[slug] = struct{}{}
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out
}

// Permissions resolves the user's snapshot from its eagerly loaded grants.
func (u User) Permissions() []string {
	return ResolvePermissions(u.RolePermissions, u.DirectPermissions)
}

// HasPermission reports whether the slug is present in the resolved snapshot.
func (u User) HasPermission(slug string) bool {
	for _, granted := range u.Permissions() {
		if granted == slug {
			return true
		}
	}
	return false
}
