package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/application"
	"github.com/stockwise/backend-core/internal/domain"
)

type loyaltyTransactionBody struct {
	Type           string         `json:"type"`
	PointsDelta    int64          `json:"points_delta"`
	SpentDelta     float64        `json:"total_spent_delta"`
	PurchasesDelta int64          `json:"purchases_delta"`
	Reason         string         `json:"reason"`
	Meta           map[string]any `json:"meta"`
}

func customerIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "customer_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid customer id", domain.ErrInvalidInput)
	}
	return id, nil
}

func (h *Handler) recordLoyaltyTransaction(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromPath(r)
	if err != nil {
		writeMappedError(r.Context(), w, "record_loyalty_transaction", err)
		return
	}
	var body loyaltyTransactionBody
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "record_loyalty_transaction", err)
		return
	}

	tx, err := h.service.RecordLoyaltyTransaction(r.Context(), customerID, application.RecordLoyaltyRequest{
		Type:           body.Type,
		PointsDelta:    body.PointsDelta,
		SpentDelta:     body.SpentDelta,
		PurchasesDelta: body.PurchasesDelta,
		Reason:         body.Reason,
		Meta:           body.Meta,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "record_loyalty_transaction", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toLoyaltyTransactionResponse(tx))
}

func (h *Handler) listLoyaltyTransactions(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromPath(r)
	if err != nil {
		writeMappedError(r.Context(), w, "list_loyalty_transactions", err)
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	txs, err := h.service.ListLoyaltyTransactions(r.Context(), customerID, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_loyalty_transactions", err)
		return
	}
	items := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toLoyaltyTransactionResponse(tx))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"transactions": items})
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromPath(r)
	if err != nil {
		writeMappedError(r.Context(), w, "get_customer", err)
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_customer", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"customer_id":      customer.CustomerID,
		"tenant_id":        customer.TenantID,
		"name":             customer.Name,
		"email":            customer.Email,
		"loyalty_points":   customer.LoyaltyPoints,
		"total_spent":      customer.TotalSpent,
		"total_purchases":  customer.TotalPurchases,
		"last_purchase_at": customer.LastPurchaseAt,
	})
}

func toLoyaltyTransactionResponse(tx domain.LoyaltyTransaction) map[string]any {
	return map[string]any{
		"id":                tx.ID,
		"customer_id":       tx.CustomerID,
		"type":              string(tx.Type),
		"points_delta":      tx.PointsDelta,
		"points_balance":    tx.PointsBalance,
		"spent_delta":       tx.SpentDelta,
		"spent_balance":     tx.SpentBalance,
		"purchases_delta":   tx.PurchasesDelta,
		"purchases_balance": tx.PurchasesBalance,
		"reason":            tx.Reason,
		"meta":              tx.Meta,
		"created_at":        tx.CreatedAt,
	}
}
