package invoicing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// User is a portal account. A supplier user owns at most one SupplierProfile.
type User struct {
	shared.BaseEntity
	Email string
	Name  string
}

// Subsidiary is the receiving legal entity
type Subsidiary struct {
	shared.BaseEntity
	RFC          string
	BusinessName string
}

// SupplierProfile holds the issuing party's fiscal identity
type SupplierProfile struct {
	shared.BaseEntity
	UserID       uuid.UUID
	RFC          string
	CompanyName  string
	SubsidiaryID uuid.UUID
	Subsidiary   *Subsidiary
}

// PurchaseOrder is imported from the ERP and referenced by receptions
type PurchaseOrder struct {
	shared.BaseEntity
	Folio          string
	Date           time.Time
	SubsidiaryName string
	VendorName     string
	VendorErpID    string
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
}

// SameLegalName compares two legal names after Unicode NFC normalization
// and surrounding whitespace removal. No case folding is applied.
func SameLegalName(a, b string) bool {
	return norm.NFC.String(strings.TrimSpace(a)) == norm.NFC.String(strings.TrimSpace(b))
}

// SameTaxID compares two RFCs ignoring surrounding whitespace and case
func SameTaxID(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
