package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type LoyaltyTransactionType string

const (
	LoyaltyEarned   LoyaltyTransactionType = "earned"
	LoyaltyRedeemed LoyaltyTransactionType = "redeemed"
	LoyaltyAdjusted LoyaltyTransactionType = "adjusted"
)

// LoyaltyEvent carries the caller-supplied deltas for one ledger append.
// Deltas are requests, not outcomes: sign normalization and clamping decide
// what actually lands on the row.
type LoyaltyEvent struct {
	Type           LoyaltyTransactionType
	PointsDelta    int64
	SpentDelta     float64
	PurchasesDelta int64
	Reason         string
	Meta           map[string]any
}

// LoyaltyBalances is a snapshot of the three running balances.
type LoyaltyBalances struct {
	Points    int64
	Spent     float64
	Purchases int64
}

// StartingBalances seeds the next transaction from the latest ledger row, or
// from the customer aggregate when the ledger is still empty.
func StartingBalances(c Customer, latest *LoyaltyTransaction) LoyaltyBalances {
	if latest == nil {
		return LoyaltyBalances{
			Points:    c.LoyaltyPoints,
			Spent:     c.TotalSpent,
			Purchases: c.TotalPurchases,
		}
	}
	return LoyaltyBalances{
		Points:    latest.PointsBalance,
		Spent:     latest.SpentBalance,
		Purchases: latest.PurchasesBalance,
	}
}

// NormalizePointsDelta forces the delta's sign by transaction type: earned
// always adds, redeemed always subtracts, adjusted passes through. The
// caller-supplied sign is deliberately ignored for earned/redeemed.
func NormalizePointsDelta(txType LoyaltyTransactionType, delta int64) (int64, error) {
	switch txType {
	case LoyaltyEarned:
		return absInt64(delta), nil
	case LoyaltyRedeemed:
		return -absInt64(delta), nil
	case LoyaltyAdjusted:
		return delta, nil
	default:
		return 0, fmt.Errorf("%w: unknown loyalty transaction type %q", ErrInvalidInput, txType)
	}
}

// BuildLoyaltyTransaction applies sign normalization and the floor-at-zero
// clamp to every delta, then computes the resulting balances. Over-redemption
// is capped to the available balance rather than rejected; the stored delta
// is the clamped one. This never fails for amount reasons, only for an
// unknown type.
func BuildLoyaltyTransaction(customerID uuid.UUID, start LoyaltyBalances, ev LoyaltyEvent, now time.Time) (LoyaltyTransaction, error) {
	pointsDelta, err := NormalizePointsDelta(ev.Type, ev.PointsDelta)
	if err != nil {
		return LoyaltyTransaction{}, err
	}

	pointsDelta = clampInt64(start.Points, pointsDelta)
	spentDelta := clampFloat(start.Spent, RoundCurrency(ev.SpentDelta, 2))
	purchasesDelta := clampInt64(start.Purchases, ev.PurchasesDelta)

	return LoyaltyTransaction{
		CustomerID:       customerID,
		Type:             ev.Type,
		PointsDelta:      pointsDelta,
		PointsBalance:    start.Points + pointsDelta,
		SpentDelta:       spentDelta,
		SpentBalance:     RoundCurrency(start.Spent+spentDelta, 2),
		PurchasesDelta:   purchasesDelta,
		PurchasesBalance: start.Purchases + purchasesDelta,
		Reason:           ev.Reason,
		Meta:             ev.Meta,
		CreatedAt:        now,
	}, nil
}

// TouchesLastPurchase reports whether the transaction should move the
// customer's last-purchase timestamp: an earn or adjustment that carries a
// positive spend or purchase-count delta looks like a real purchase; pure
// redemptions and corrections do not.
func (t LoyaltyTransaction) TouchesLastPurchase() bool {
	if t.Type != LoyaltyEarned && t.Type != LoyaltyAdjusted {
		return false
	}
	return t.SpentDelta > 0 || t.PurchasesDelta > 0
}

// ResultingBalances is the snapshot the owning customer must be updated to.
func (t LoyaltyTransaction) ResultingBalances() LoyaltyBalances {
	return LoyaltyBalances{
		Points:    t.PointsBalance,
		Spent:     t.SpentBalance,
		Purchases: t.PurchasesBalance,
	}
}

// StartingPoints derives the pre-transaction points balance, used to verify
// chain consistency across consecutive rows.
func (t LoyaltyTransaction) StartingPoints() int64 {
	return t.PointsBalance - t.PointsDelta
}

// RoundCurrency rounds a monetary amount to the given number of places.
func RoundCurrency(value float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// clampInt64 shrinks a negative delta so start+delta never goes below zero.
func clampInt64(start, delta int64) int64 {
	if start+delta < 0 {
		return -start
	}
	return delta
}

func clampFloat(start, delta float64) float64 {
	if start+delta < 0 {
		return -start
	}
	return delta
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
