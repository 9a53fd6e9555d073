package postgres

import (
	"encoding/json"

	"github.com/stockwise/backend-core/internal/domain"
)

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func toDomainAuthToken(rec authTokenModel) domain.AuthToken {
	return domain.AuthToken{
		ID:               rec.ID,
		UserID:           rec.UserID,
		DeviceName:       rec.DeviceName,
		AccessTokenID:    rec.AccessTokenID,
		RefreshTokenHash: rec.RefreshTokenHash,
		AccessExpiresAt:  rec.AccessExpiresAt,
		RefreshExpiresAt: rec.RefreshExpiresAt,
		Revoked:          rec.Revoked,
		LastUsedAt:       rec.LastUsedAt,
		IPAddress:        stringOrEmpty(rec.IPAddress),
		UserAgent:        rec.UserAgent,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func toDomainCustomer(rec customerModel) domain.Customer {
	return domain.Customer{
		CustomerID:     rec.CustomerID,
		TenantID:       rec.TenantID,
		Name:           rec.Name,
		Email:          rec.Email,
		LoyaltyPoints:  rec.LoyaltyPoints,
		TotalSpent:     rec.TotalSpent,
		TotalPurchases: rec.TotalPurchases,
		LastPurchaseAt: rec.LastPurchaseAt,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func toDomainLoyaltyTransaction(rec loyaltyTransactionModel) domain.LoyaltyTransaction {
	tx := domain.LoyaltyTransaction{
		ID:               rec.ID,
		CustomerID:       rec.CustomerID,
		Type:             domain.LoyaltyTransactionType(rec.Type),
		PointsDelta:      rec.PointsDelta,
		PointsBalance:    rec.PointsBalance,
		SpentDelta:       rec.SpentDelta,
		SpentBalance:     rec.SpentBalance,
		PurchasesDelta:   rec.PurchasesDelta,
		PurchasesBalance: rec.PurchasesBalance,
		Reason:           rec.Reason,
		CreatedAt:        rec.CreatedAt,
	}
	if rec.Meta != nil {
		var meta map[string]any
		if err := json.Unmarshal([]byte(*rec.Meta), &meta); err == nil {
			tx.Meta = meta
		}
	}
	return tx
}

func toLoyaltyTransactionModel(tx domain.LoyaltyTransaction) loyaltyTransactionModel {
	rec := loyaltyTransactionModel{
		CustomerID:       tx.CustomerID,
		Type:             string(tx.Type),
		PointsDelta:      tx.PointsDelta,
		PointsBalance:    tx.PointsBalance,
		SpentDelta:       tx.SpentDelta,
		SpentBalance:     tx.SpentBalance,
		PurchasesDelta:   tx.PurchasesDelta,
		PurchasesBalance: tx.PurchasesBalance,
		Reason:           tx.Reason,
		CreatedAt:        tx.CreatedAt,
	}
	if len(tx.Meta) > 0 {
		if raw, err := json.Marshal(tx.Meta); err == nil {
			s := string(raw)
			rec.Meta = &s
		}
	}
	return rec
}
