// Package inventory is the product catalog vertical. Products are audited
// entities with no sensitive fields; price and stock changes are the most
// common records in the trail.
package inventory

import (
	"time"

	"retailcore/internal/audit"
)

// Product is a sellable catalog item.
type Product struct {
	ID             int64     `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	StockQty       int       `json:"stock_qty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AuditEntityName implements audit.Auditable.
func (p *Product) AuditEntityName() string { return "Product" }

// AuditEntityID implements audit.Auditable.
func (p *Product) AuditEntityID() int64 { return p.ID }

// AuditSnapshot captures the product's observable state.
func (p *Product) AuditSnapshot() audit.Snapshot {
	return audit.Snapshot{
		"sku":              p.SKU,
		"name":             p.Name,
		"description":      p.Description,
		"unit_price_cents": p.UnitPriceCents,
		"stock_qty":        p.StockQty,
		"active":           p.Active,
	}
}

// AuditSensitiveFields implements audit.Auditable. Catalog data is public.
func (p *Product) AuditSensitiveFields() []string { return nil }
