package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
)

func TestRecordLoyaltyNormalizesSigns(t *testing.T) {
	f := newFixture()
	customerID := f.seedCustomer(0, 0, 0)

	earned, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:        "earned",
		PointsDelta: -120,
		Reason:      "purchase",
	})
	if err != nil {
		t.Fatalf("earn failed: %v", err)
	}
	if earned.PointsDelta != 120 || earned.PointsBalance != 120 {
		t.Fatalf("earn delta/balance = %d/%d, want 120/120", earned.PointsDelta, earned.PointsBalance)
	}

	redeemed, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:        "Redeemed",
		PointsDelta: 50,
	})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redeemed.PointsDelta != -50 || redeemed.PointsBalance != 70 {
		t.Fatalf("redeem delta/balance = %d/%d, want -50/70", redeemed.PointsDelta, redeemed.PointsBalance)
	}

	customer, err := f.service.GetCustomer(context.Background(), customerID)
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if customer.LoyaltyPoints != 70 {
		t.Fatalf("mirrored points = %d, want 70", customer.LoyaltyPoints)
	}
}

func TestRecordLoyaltyOverRedemptionIsCappedSilently(t *testing.T) {
	f := newFixture()
	customerID := f.seedCustomer(100, 40.00, 3)

	tx, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:        "redeemed",
		PointsDelta: 500,
	})
	if err != nil {
		t.Fatalf("over-redemption must cap, not fail: %v", err)
	}
	if tx.PointsDelta != -100 || tx.PointsBalance != 0 {
		t.Fatalf("capped delta/balance = %d/%d, want -100/0", tx.PointsDelta, tx.PointsBalance)
	}

	customer, _ := f.service.GetCustomer(context.Background(), customerID)
	if customer.LoyaltyPoints != 0 {
		t.Fatalf("mirrored points = %d, want 0", customer.LoyaltyPoints)
	}
	if customer.TotalSpent != 40.00 || customer.TotalPurchases != 3 {
		t.Fatalf("untouched balances changed: spent %v purchases %d", customer.TotalSpent, customer.TotalPurchases)
	}
}

func TestRecordLoyaltyLastPurchaseStamp(t *testing.T) {
	f := newFixture()
	customerID := f.seedCustomer(100, 40.00, 3)

	// A pure redemption never looks like a purchase, even with spend attached.
	if _, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:        "redeemed",
		PointsDelta: 10,
		SpentDelta:  5.00,
	}); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	customer, _ := f.service.GetCustomer(context.Background(), customerID)
	if customer.LastPurchaseAt != nil {
		t.Fatalf("redemption stamped last_purchase_at: %v", customer.LastPurchaseAt)
	}

	f.clock.Advance(time.Minute)
	if _, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:           "earned",
		PointsDelta:    25,
		SpentDelta:     19.99,
		PurchasesDelta: 1,
	}); err != nil {
		t.Fatalf("earn failed: %v", err)
	}
	customer, _ = f.service.GetCustomer(context.Background(), customerID)
	if customer.LastPurchaseAt == nil || !customer.LastPurchaseAt.Equal(f.clock.Now()) {
		t.Fatalf("earn with spend did not stamp last_purchase_at: %v", customer.LastPurchaseAt)
	}

	// A negative adjustment is a correction, not a purchase.
	stamped := *customer.LastPurchaseAt
	f.clock.Advance(time.Minute)
	if _, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:           "adjusted",
		PointsDelta:    -5,
		SpentDelta:     -2.00,
		PurchasesDelta: -1,
	}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	customer, _ = f.service.GetCustomer(context.Background(), customerID)
	if customer.LastPurchaseAt == nil || !customer.LastPurchaseAt.Equal(stamped) {
		t.Fatalf("correction moved last_purchase_at: %v, want %v", customer.LastPurchaseAt, stamped)
	}
}

func TestRecordLoyaltyChainsOffLatestEntry(t *testing.T) {
	f := newFixture()
	customerID := f.seedCustomer(0, 0, 0)

	steps := []struct {
		req         RecordLoyaltyRequest
		wantDelta   int64
		wantBalance int64
	}{
		{RecordLoyaltyRequest{Type: "earned", PointsDelta: 100, SpentDelta: 50.00, PurchasesDelta: 1}, 100, 100},
		{RecordLoyaltyRequest{Type: "redeemed", PointsDelta: 40}, -40, 60},
		{RecordLoyaltyRequest{Type: "adjusted", PointsDelta: -1000}, -60, 0},
	}
	for i, step := range steps {
		f.clock.Advance(time.Second)
		tx, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, step.req)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if tx.PointsDelta != step.wantDelta || tx.PointsBalance != step.wantBalance {
			t.Fatalf("step %d delta/balance = %d/%d, want %d/%d",
				i, tx.PointsDelta, tx.PointsBalance, step.wantDelta, step.wantBalance)
		}
	}

	txs, err := f.service.ListLoyaltyTransactions(context.Background(), customerID, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("ledger entries = %d, want 3", len(txs))
	}
	// Newest first, and each entry starts where the next-older one ended.
	if txs[0].Type != domain.LoyaltyAdjusted || txs[2].Type != domain.LoyaltyEarned {
		t.Fatalf("ledger out of order: %s, %s, %s", txs[0].Type, txs[1].Type, txs[2].Type)
	}
	for i := 0; i < len(txs)-1; i++ {
		if txs[i].StartingPoints() != txs[i+1].PointsBalance {
			t.Fatalf("entry %d starts at %d, previous balance was %d",
				i, txs[i].StartingPoints(), txs[i+1].PointsBalance)
		}
	}

	recorded := 0
	for _, eventType := range f.outbox.eventTypes() {
		if eventType == EventLoyaltyTxRecorded {
			recorded++
		}
	}
	if recorded != 3 {
		t.Fatalf("recorded events = %d, want 3", recorded)
	}
}

func TestRecordLoyaltyRejectsUnknownType(t *testing.T) {
	f := newFixture()
	customerID := f.seedCustomer(10, 0, 0)

	_, err := f.service.RecordLoyaltyTransaction(context.Background(), customerID, RecordLoyaltyRequest{
		Type:        "refunded",
		PointsDelta: 10,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	txs, _ := f.service.ListLoyaltyTransactions(context.Background(), customerID, 0, 0)
	if len(txs) != 0 {
		t.Fatalf("rejected transaction reached the ledger: %d entries", len(txs))
	}
}

func TestLoyaltyUnknownCustomer(t *testing.T) {
	f := newFixture()
	missing := uuid.New()

	if _, err := f.service.RecordLoyaltyTransaction(context.Background(), missing, RecordLoyaltyRequest{Type: "earned", PointsDelta: 5}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("record: got %v, want ErrNotFound", err)
	}
	if _, err := f.service.ListLoyaltyTransactions(context.Background(), missing, 0, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("list: got %v, want ErrNotFound", err)
	}
	if _, err := f.service.GetCustomer(context.Background(), missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get: got %v, want ErrNotFound", err)
	}
}
