package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *customerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, customerID uuid.UUID) (domain.Customer, error) {
	var rec customerModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Customer{}, domain.ErrNotFound
		}
		return domain.Customer{}, err
	}
	return toDomainCustomer(rec), nil
}

type loyaltyLedger struct {
	db *gorm.DB
}

func NewLoyaltyLedger(db *gorm.DB) *loyaltyLedger {
	return &loyaltyLedger{db: db}
}

// Append locks the customer row FOR UPDATE, reads the latest ledger entry,
// runs fn, inserts its row and reconciles the customer aggregate against the
// row's resulting balances, all in one transaction. Only the customer row is
// locked, so appends for different customers proceed in parallel.
func (l *loyaltyLedger) Append(ctx context.Context, customerID uuid.UUID, fn func(c domain.Customer, latest *domain.LoyaltyTransaction) (domain.LoyaltyTransaction, error)) (domain.LoyaltyTransaction, error) {
	var inserted loyaltyTransactionModel
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer customerModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ?", customerID).
			Take(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		var latest *domain.LoyaltyTransaction
		var latestRec loyaltyTransactionModel
		err := tx.Where("customer_id = ?", customerID).
			Order("created_at DESC").
			Order("id DESC").
			Take(&latestRec).Error
		switch {
		case err == nil:
			prev := toDomainLoyaltyTransaction(latestRec)
			latest = &prev
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First entry chains off the customer aggregate.
		default:
			return err
		}

		next, err := fn(toDomainCustomer(customer), latest)
		if err != nil {
			return err
		}

		inserted = toLoyaltyTransactionModel(next)
		if err := tx.Create(&inserted).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"loyalty_points":  next.PointsBalance,
			"total_spent":     next.SpentBalance,
			"total_purchases": next.PurchasesBalance,
			"updated_at":      time.Now().UTC(),
		}
		if next.TouchesLastPurchase() {
			updates["last_purchase_at"] = next.CreatedAt
		}
		return tx.Model(&customerModel{}).
			Where("customer_id = ?", customerID).
			Updates(updates).Error
	})
	if err != nil {
		return domain.LoyaltyTransaction{}, err
	}
	return toDomainLoyaltyTransaction(inserted), nil
}

func (l *loyaltyLedger) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.LoyaltyTransaction, error) {
	var rows []loyaltyTransactionModel
	query := l.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.LoyaltyTransaction, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainLoyaltyTransaction(item))
	}
	return result, nil
}
