package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the loyalty aggregate. Its balance fields must always equal the
// `*_balance` columns of its most recent loyalty transaction; when no
// transaction exists they act as the seed values for the first one.
type Customer struct {
	CustomerID     uuid.UUID
	TenantID       uuid.UUID
	Name           string
	Email          string
	LoyaltyPoints  int64
	TotalSpent     float64
	TotalPurchases int64
	LastPurchaseAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LoyaltyTransaction is one immutable ledger row. Rows are never updated or
// deleted; ordering is creation time with id as the tie-break so insertion
// order survives coarse timestamp resolution.
type LoyaltyTransaction struct {
	ID               int64
	CustomerID       uuid.UUID
	Type             LoyaltyTransactionType
	PointsDelta      int64
	PointsBalance    int64
	SpentDelta       float64
	SpentBalance     float64
	PurchasesDelta   int64
	PurchasesBalance int64
	Reason           string
	Meta             map[string]any
	CreatedAt        time.Time
}
