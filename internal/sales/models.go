// Package sales is the order vertical. Placing an order touches three audited
// entities in one request (product stock, the order itself, customer loyalty),
// so its records are the main consumers of correlation grouping.
package sales

import (
	"time"

	"retailcore/internal/audit"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// OrderLine is one product position on an order.
type OrderLine struct {
	ProductID      int64 `json:"product_id"`
	Qty            int   `json:"qty"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

// Order is a customer purchase.
type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Status     Status      `json:"status"`
	TotalCents int64       `json:"total_cents"`
	Lines      []OrderLine `json:"lines"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AuditEntityName implements audit.Auditable.
func (o *Order) AuditEntityName() string { return "Order" }

// AuditEntityID implements audit.Auditable.
func (o *Order) AuditEntityID() int64 { return o.ID }

// AuditSnapshot captures the order's observable state. Lines reference
// products by id only; the product's own history lives on its own records.
func (o *Order) AuditSnapshot() audit.Snapshot {
	lines := make([]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, map[string]any{
			"product_id":       l.ProductID,
			"qty":              l.Qty,
			"unit_price_cents": l.UnitPriceCents,
		})
	}
	return audit.Snapshot{
		"customer_id": o.CustomerID,
		"status":      string(o.Status),
		"total_cents": o.TotalCents,
		"lines":       lines,
	}
}

// AuditSensitiveFields implements audit.Auditable.
func (o *Order) AuditSensitiveFields() []string { return nil }
