package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/adapters/security"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

type fixture struct {
	service   *Service
	users     *fakeUserDirectory
	tokens    *fakeTokenRepo
	loyalty   *fakeLoyaltyStore
	outbox    *fakeOutbox
	verifier  *fakeVerifier
	limiter   *fakeLimiter
	signer    ports.AccessTokenSigner
	clock     *fakeClock
	tenantID  uuid.UUID
	roleID    uuid.UUID
	defaultID uuid.UUID
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture() *fixture {
	// Signed credentials are verified against wall-clock time by the parser,
	// so the controllable clock starts at real now and only moves forward.
	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
	signer, err := security.NewJWTSigner("fixture-signing-secret", "stockwise-test")
	if err != nil {
		panic(err)
	}

	users := &fakeUserDirectory{byID: make(map[uuid.UUID]domain.User)}
	tokens := &fakeTokenRepo{now: clock.Now, rows: make(map[int64]domain.AuthToken)}
	loyalty := &fakeLoyaltyStore{
		customers: make(map[uuid.UUID]domain.Customer),
		ledger:    make(map[uuid.UUID][]domain.LoyaltyTransaction),
	}
	outbox := &fakeOutbox{}
	verifier := &fakeVerifier{}
	limiter := &fakeLimiter{counts: make(map[string]int64)}

	f := &fixture{
		service: NewService(Dependencies{
			Config: Config{
				Issuer:                        "stockwise-test",
				AccessTokenTTL:                15 * time.Minute,
				RefreshTokenTTL:               14 * 24 * time.Hour,
				SignInRateLimitIPThreshold:    20,
				SignInRateLimitEmailThreshold: 6,
				SignInRateLimitWindow:         time.Minute,
			},
			Users:     users,
			Tokens:    tokens,
			Customers: loyalty,
			Ledger:    loyalty,
			Outbox:    outbox,
			Limiter:   limiter,
			Verifier:  verifier,
			Signer:    signer,
			Hasher:    security.SHA256RefreshHasher{},
		}),
		users:    users,
		tokens:   tokens,
		loyalty:  loyalty,
		outbox:   outbox,
		verifier: verifier,
		limiter:  limiter,
		signer:   signer,
		clock:    clock,
		tenantID: uuid.New(),
		roleID:   uuid.New(),
	}
	f.service.nowFn = clock.Now
	f.defaultID = f.seedUser("cashier@example.com", true, []string{"loyalty.record", "inventory.read"}, []string{"reports.view"})
	return f
}

func (f *fixture) seedUser(email string, active bool, roleGrants, directGrants []string) uuid.UUID {
	id := uuid.New()
	f.users.byID[id] = domain.User{
		UserID:            id,
		Email:             email,
		IsActive:          active,
		RoleID:            f.roleID,
		RoleName:          "cashier",
		TenantID:          f.tenantID,
		RolePermissions:   roleGrants,
		DirectPermissions: directGrants,
		CreatedAt:         f.clock.Now(),
		UpdatedAt:         f.clock.Now(),
	}
	return id
}

func (f *fixture) seedCustomer(points int64, spent float64, purchases int64) uuid.UUID {
	id := uuid.New()
	f.loyalty.customers[id] = domain.Customer{
		CustomerID:     id,
		TenantID:       f.tenantID,
		Name:           "Walk-in Customer",
		LoyaltyPoints:  points,
		TotalSpent:     spent,
		TotalPurchases: purchases,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	}
	return id
}

type fakeUserDirectory struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.User
	logins int
}

func (d *fakeUserDirectory) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (d *fakeUserDirectory) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (d *fakeUserDirectory) RecordLogin(ctx context.Context, userID uuid.UUID, loginAt time.Time, markVerified bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastLoginAt = &loginAt
	if markVerified && u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &loginAt
	}
	d.byID[userID] = u
	d.logins++
	return nil
}

func (d *fakeUserDirectory) setActive(userID uuid.UUID, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.byID[userID]
	u.IsActive = active
	d.byID[userID] = u
}

func (d *fakeUserDirectory) setRoleGrants(userID uuid.UUID, grants []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.byID[userID]
	u.RolePermissions = grants
	d.byID[userID] = u
}

type fakeTokenRepo struct {
	mu   sync.Mutex
	now  func() time.Time
	seq  int64
	rows map[int64]domain.AuthToken
}

func (r *fakeTokenRepo) Create(ctx context.Context, params ports.TokenCreateParams) (domain.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec := domain.AuthToken{
		ID:               r.seq,
		UserID:           params.UserID,
		DeviceName:       params.DeviceName,
		AccessTokenID:    params.AccessTokenID,
		RefreshTokenHash: params.RefreshTokenHash,
		AccessExpiresAt:  params.AccessExpiresAt,
		RefreshExpiresAt: params.RefreshExpiresAt,
		IPAddress:        params.IPAddress,
		UserAgent:        params.UserAgent,
		CreatedAt:        r.now(),
		UpdatedAt:        r.now(),
	}
	r.rows[rec.ID] = rec
	return rec, nil
}

func (r *fakeTokenRepo) GetByAccessTokenID(ctx context.Context, accessTokenID string) (domain.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.AccessTokenID == accessTokenID {
			return rec, nil
		}
	}
	return domain.AuthToken{}, domain.ErrNotFound
}

func (r *fakeTokenRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuthToken
	for _, rec := range r.rows {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTokenRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.rows {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeTokenRepo) RotateByRefreshHash(ctx context.Context, refreshHash string, fn func(current domain.AuthToken) (ports.TokenRotation, error)) (domain.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.rows {
		if rec.RefreshTokenHash != refreshHash || rec.Revoked {
			continue
		}
		rotation, err := fn(rec)
		if err != nil {
			return domain.AuthToken{}, err
		}
		rec.AccessTokenID = rotation.AccessTokenID
		rec.RefreshTokenHash = rotation.RefreshTokenHash
		rec.AccessExpiresAt = rotation.AccessExpiresAt
		rec.RefreshExpiresAt = rotation.RefreshExpiresAt
		rec.DeviceName = rotation.DeviceName
		rec.IPAddress = rotation.IPAddress
		rec.UserAgent = rotation.UserAgent
		rec.LastUsedAt = &rotation.LastUsedAt
		rec.UpdatedAt = rotation.LastUsedAt
		r.rows[id] = rec
		return rec, nil
	}
	return domain.AuthToken{}, domain.ErrNotFound
}

func (r *fakeTokenRepo) RevokeByAccessTokenID(ctx context.Context, accessTokenID string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.rows {
		if rec.AccessTokenID == accessTokenID && !rec.Revoked {
			r.rows[id] = revoke(rec, revokedAt)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeTokenRepo) RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.rows {
		if rec.UserID == userID && !rec.Revoked {
			r.rows[id] = revoke(rec, revokedAt)
			n++
		}
	}
	return n, nil
}

func (r *fakeTokenRepo) TouchLastUsed(ctx context.Context, accessTokenID string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.rows {
		if rec.AccessTokenID == accessTokenID {
			rec.LastUsedAt = &usedAt
			r.rows[id] = rec
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeTokenRepo) byID(id int64) (domain.AuthToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	return rec, ok
}

func revoke(rec domain.AuthToken, at time.Time) domain.AuthToken {
	rec.Revoked = true
	rec.AccessExpiresAt = at
	rec.RefreshExpiresAt = at
	rec.UpdatedAt = at
	return rec
}

type fakeLoyaltyStore struct {
	mu        sync.Mutex
	seq       int64
	customers map[uuid.UUID]domain.Customer
	ledger    map[uuid.UUID][]domain.LoyaltyTransaction
}

func (s *fakeLoyaltyStore) GetByID(ctx context.Context, customerID uuid.UUID) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return domain.Customer{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *fakeLoyaltyStore) Append(ctx context.Context, customerID uuid.UUID, fn func(c domain.Customer, latest *domain.LoyaltyTransaction) (domain.LoyaltyTransaction, error)) (domain.LoyaltyTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[customerID]
	if !ok {
		return domain.LoyaltyTransaction{}, domain.ErrNotFound
	}

	var latest *domain.LoyaltyTransaction
	if txs := s.ledger[customerID]; len(txs) > 0 {
		prev := txs[len(txs)-1]
		latest = &prev
	}

	next, err := fn(customer, latest)
	if err != nil {
		return domain.LoyaltyTransaction{}, err
	}
	s.seq++
	next.ID = s.seq
	s.ledger[customerID] = append(s.ledger[customerID], next)

	customer.LoyaltyPoints = next.PointsBalance
	customer.TotalSpent = next.SpentBalance
	customer.TotalPurchases = next.PurchasesBalance
	customer.UpdatedAt = next.CreatedAt
	if next.TouchesLastPurchase() {
		at := next.CreatedAt
		customer.LastPurchaseAt = &at
	}
	s.customers[customerID] = customer
	return next, nil
}

func (s *fakeLoyaltyStore) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.LoyaltyTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.ledger[customerID]
	out := make([]domain.LoyaltyTransaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (o *fakeOutbox) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *fakeOutbox) ListUnpublished(ctx context.Context, limit, maxRetries int) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (o *fakeOutbox) MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error {
	return nil
}

func (o *fakeOutbox) MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	return nil
}

func (o *fakeOutbox) eventTypes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]string, 0, len(o.events))
	for _, ev := range o.events {
		types = append(types, ev.EventType)
	}
	return types
}

type fakeVerifier struct {
	mu     sync.Mutex
	claims ports.IdentityClaims
	err    error
}

func (v *fakeVerifier) Verify(ctx context.Context, identityToken string) (ports.IdentityClaims, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return ports.IdentityClaims{}, v.err
	}
	return v.claims, nil
}

func (v *fakeVerifier) set(claims ports.IdentityClaims, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.claims = claims
	v.err = err
}

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (l *fakeLimiter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key], nil
}
