package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizePointsDelta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		txType LoyaltyTransactionType
		delta  int64
		want   int64
	}{
		{"earned positive", LoyaltyEarned, 50, 50},
		{"earned negative forced positive", LoyaltyEarned, -50, 50},
		{"redeemed positive forced negative", LoyaltyRedeemed, 30, -30},
		{"redeemed negative stays negative", LoyaltyRedeemed, -30, -30},
		{"adjusted positive passthrough", LoyaltyAdjusted, 10, 10},
		{"adjusted negative passthrough", LoyaltyAdjusted, -10, -10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePointsDelta(tc.txType, tc.delta)
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("normalize %s %d: got %d, want %d", tc.txType, tc.delta, got, tc.want)
			}
		})
	}

	if _, err := NormalizePointsDelta("bogus", 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestBuildLoyaltyTransactionClampsEachBalanceIndependently(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	customerID := uuid.New()
	start := LoyaltyBalances{Points: 100, Spent: 10.00, Purchases: 1}

	tx, err := BuildLoyaltyTransaction(customerID, start, LoyaltyEvent{
		Type:           LoyaltyRedeemed,
		PointsDelta:    500,
		SpentDelta:     -25.00,
		PurchasesDelta: -4,
	}, now)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if tx.PointsDelta != -100 || tx.PointsBalance != 0 {
		t.Fatalf("points over-redemption not clamped: delta=%d balance=%d", tx.PointsDelta, tx.PointsBalance)
	}
	if tx.SpentDelta != -10.00 || tx.SpentBalance != 0 {
		t.Fatalf("spent not clamped to floor: delta=%v balance=%v", tx.SpentDelta, tx.SpentBalance)
	}
	if tx.PurchasesDelta != -1 || tx.PurchasesBalance != 0 {
		t.Fatalf("purchases not clamped to floor: delta=%d balance=%d", tx.PurchasesDelta, tx.PurchasesBalance)
	}
}

func TestBuildLoyaltyTransactionPartialClamp(t *testing.T) {
	t.Parallel()

	start := LoyaltyBalances{Points: 40, Spent: 100.00, Purchases: 5}
	tx, err := BuildLoyaltyTransaction(uuid.New(), start, LoyaltyEvent{
		Type:        LoyaltyRedeemed,
		PointsDelta: -25,
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	// Within balance, nothing to clamp.
	if tx.PointsDelta != -25 || tx.PointsBalance != 15 {
		t.Fatalf("unexpected clamp: delta=%d balance=%d", tx.PointsDelta, tx.PointsBalance)
	}
	if tx.SpentBalance != 100.00 || tx.PurchasesBalance != 5 {
		t.Fatalf("untouched balances changed: spent=%v purchases=%d", tx.SpentBalance, tx.PurchasesBalance)
	}
}

func TestBuildLoyaltyTransactionChain(t *testing.T) {
	t.Parallel()

	customerID := uuid.New()
	now := time.Now().UTC()
	customer := Customer{CustomerID: customerID, LoyaltyPoints: 0, TotalSpent: 0, TotalPurchases: 0}

	events := []LoyaltyEvent{
		{Type: LoyaltyEarned, PointsDelta: 100, SpentDelta: 49.99, PurchasesDelta: 1},
		{Type: LoyaltyRedeemed, PointsDelta: 40},
		{Type: LoyaltyAdjusted, PointsDelta: -1000},
	}

	var latest *LoyaltyTransaction
	for i, ev := range events {
		start := StartingBalances(customer, latest)
		tx, err := BuildLoyaltyTransaction(customerID, start, ev, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("build %d failed: %v", i, err)
		}
		if tx.StartingPoints() != start.Points {
			t.Fatalf("tx %d does not chain: starting=%d want %d", i, tx.StartingPoints(), start.Points)
		}
		latest = &tx
	}

	if latest.PointsBalance != 0 {
		t.Fatalf("final balance after over-adjustment should clamp to 0, got %d", latest.PointsBalance)
	}
	if latest.PointsDelta != -60 {
		t.Fatalf("adjustment should be clamped to available 60, got %d", latest.PointsDelta)
	}
}

func TestTouchesLastPurchase(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		tx   LoyaltyTransaction
		want bool
	}{
		{"earned with spend", LoyaltyTransaction{Type: LoyaltyEarned, SpentDelta: 12.50}, true},
		{"earned with purchase count", LoyaltyTransaction{Type: LoyaltyEarned, PurchasesDelta: 1}, true},
		{"earned points only", LoyaltyTransaction{Type: LoyaltyEarned}, false},
		{"redeemed with spend", LoyaltyTransaction{Type: LoyaltyRedeemed, SpentDelta: 10}, false},
		{"adjusted with spend", LoyaltyTransaction{Type: LoyaltyAdjusted, SpentDelta: 5}, true},
		{"adjusted negative spend", LoyaltyTransaction{Type: LoyaltyAdjusted, SpentDelta: -5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tx.TouchesLastPurchase(); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoundCurrency(t *testing.T) {
	t.Parallel()

	if got := RoundCurrency(10.006, 2); got != 10.01 {
		t.Fatalf("got %v, want 10.01", got)
	}
	if got := RoundCurrency(10.004, 2); got != 10.00 {
		t.Fatalf("got %v, want 10.00", got)
	}
	if got := RoundCurrency(-3.556, 2); got != -3.56 {
		t.Fatalf("got %v, want -3.56", got)
	}
	if got := RoundCurrency(7.1, 0); got != 7 {
		t.Fatalf("got %v, want 7", got)
	}
}

func TestResolvePermissions(t *testing.T) {
	t.Parallel()

	got := ResolvePermissions(
		[]string{"loyalty.record", "inventory.read", ""},
		[]string{"inventory.read", "reports.view"},
	)
	want := []string{"inventory.read", "loyalty.record", "reports.view"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
