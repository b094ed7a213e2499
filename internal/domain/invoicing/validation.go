package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount tolerances. Intake compares raw document amounts; the worker re-checks
// already-committed totals and allows a looser delta.
var (
	IntakeTolerance = decimal.RequireFromString("0.01")
	WorkerTolerance = decimal.RequireFromString("0.5")
)

// Validated field names
const (
	FieldIssuerTaxID   = "issuerTaxId"
	FieldReceiverTaxID = "receiverTaxId"
	FieldIssuerName    = "issuerName"
	FieldReceiverName  = "receiverName"
	FieldSubtotal      = "subtotal"
	FieldTotal         = "total"
)

// Mismatch is one failed cross-validation rule
type Mismatch struct {
	Field    string `json:"field"`
	Document string `json:"document_value"`
	Expected string `json:"expected_value"`
	Delta    string `json:"delta,omitempty"`
}

func (m Mismatch) String() string {
	if m.Delta != "" {
		return fmt.Sprintf("%s: document value %s differs from reception value %s (delta %s)",
			m.Field, m.Document, m.Expected, m.Delta)
	}
	return fmt.Sprintf("%s: document value %q does not match expected %q", m.Field, m.Document, m.Expected)
}

// Reference is the data a document must agree with
type Reference struct {
	Supplier   *SupplierProfile
	Subsidiary *Subsidiary
	Reception  *Reception
}

// CrossValidate runs every rule and returns all mismatches in rule order.
// An empty result means the document is consistent with the reference.
func CrossValidate(doc *Document, ref Reference, tolerance decimal.Decimal) []Mismatch {
	var (
		supplierRFC, supplierName     string
		subsidiaryRFC, subsidiaryName string
	)
	if ref.Supplier != nil {
		supplierRFC = ref.Supplier.RFC
		supplierName = ref.Supplier.CompanyName
	}
	if ref.Subsidiary != nil {
		subsidiaryRFC = ref.Subsidiary.RFC
		subsidiaryName = ref.Subsidiary.BusinessName
	}

	var out []Mismatch
	if !SameTaxID(doc.IssuerTaxID, supplierRFC) {
		out = append(out, Mismatch{Field: FieldIssuerTaxID, Document: doc.IssuerTaxID, Expected: supplierRFC})
	}
	if !SameTaxID(doc.ReceiverTaxID, subsidiaryRFC) {
		out = append(out, Mismatch{Field: FieldReceiverTaxID, Document: doc.ReceiverTaxID, Expected: subsidiaryRFC})
	}
	if !SameLegalName(doc.IssuerName, supplierName) {
		out = append(out, Mismatch{Field: FieldIssuerName, Document: doc.IssuerName, Expected: supplierName})
	}
	if !SameLegalName(doc.ReceiverName, subsidiaryName) {
		out = append(out, Mismatch{Field: FieldReceiverName, Document: doc.ReceiverName, Expected: subsidiaryName})
	}
	out = append(out, CheckAmounts(doc.Subtotal, doc.Total, ref.Reception, tolerance)...)
	return out
}

// CheckAmounts compares subtotal and total against the reception's recomputed totals
func CheckAmounts(subtotal, total decimal.Decimal, reception *Reception, tolerance decimal.Decimal) []Mismatch {
	expectedSubtotal, expectedTotal := decimal.Zero, decimal.Zero
	if reception != nil {
		expectedSubtotal, expectedTotal = reception.Totals()
	}

	var out []Mismatch
	if m, ok := compareAmount(FieldSubtotal, subtotal, expectedSubtotal, tolerance); !ok {
		out = append(out, m)
	}
	if m, ok := compareAmount(FieldTotal, total, expectedTotal, tolerance); !ok {
		out = append(out, m)
	}
	return out
}

// ValidateDocument wraps CrossValidate into an error carrying every mismatch
func ValidateDocument(doc *Document, ref Reference, tolerance decimal.Decimal) error {
	if mismatches := CrossValidate(doc, ref, tolerance); len(mismatches) > 0 {
		return &MismatchError{Mismatches: mismatches}
	}
	return nil
}

func compareAmount(field string, got, want, tolerance decimal.Decimal) (Mismatch, bool) {
	delta := got.Sub(want).Abs()
	if delta.LessThanOrEqual(tolerance) {
		return Mismatch{}, true
	}
	return Mismatch{
		Field:    field,
		Document: got.StringFixed(2),
		Expected: want.StringFixed(2),
		Delta:    delta.StringFixed(2),
	}, false
}
