// Package customer is the customer vertical: profile records for the
// storefront's registered customers. Customers are audited entities; the PIN
// hash is the canonical sensitive field and never reaches the audit trail
// unmasked.
package customer

import (
	"time"

	"retailcore/internal/audit"
)

// Customer is a registered storefront customer.
type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PinHash       string    `json:"-"`
	LoyaltyPoints int       `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuditEntityName implements audit.Auditable.
func (c *Customer) AuditEntityName() string { return "Customer" }

// AuditEntityID implements audit.Auditable.
func (c *Customer) AuditEntityID() int64 { return c.ID }

// AuditSnapshot captures the customer's observable state. Scalar fields only;
// orders and other relations are separate audited entities.
func (c *Customer) AuditSnapshot() audit.Snapshot {
	return audit.Snapshot{
		"name":           c.Name,
		"email":          c.Email,
		"phone":          c.Phone,
		"pin_hash":       c.PinHash,
		"loyalty_points": c.LoyaltyPoints,
	}
}

// AuditSensitiveFields implements audit.Auditable.
func (c *Customer) AuditSensitiveFields() []string { return []string{"pin_hash"} }
