package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VATRate is the fixed value-added tax applied to every reception article
var VATRate = decimal.RequireFromString("0.16")

// Article is a reception line item. Amounts are derived from quantity and unit price.
type Article struct {
	ID        uuid.UUID
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// NewArticle creates an article with its computed amounts
func NewArticle(name string, quantity, unitPrice decimal.Decimal) (Article, error) {
	if name == "" {
		return Article{}, missingField("articleName")
	}
	if !quantity.IsPositive() {
		return Article{}, shared.ErrInvalidInput.WithMessage("Article quantity must be positive")
	}
	if unitPrice.IsNegative() || unitPrice.IsZero() {
		return Article{}, shared.ErrInvalidInput.WithMessage("Article unit price must be positive")
	}
	a := Article{
		ID:        uuid.New(),
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	a.Recompute()
	return a, nil
}

// Recompute derives subtotal, tax and total. Stored values are never trusted.
func (a *Article) Recompute() {
	a.Subtotal = a.Quantity.Mul(a.UnitPrice)
	a.Tax = a.Subtotal.Mul(VATRate)
	a.Total = a.Subtotal.Add(a.Tax)
}

// Reception records goods received against a purchase order
type Reception struct {
	shared.BaseEntity
	PurchaseOrderID uuid.UUID
	Folio           string
	Date            time.Time
	Articles        []Article
}

// NewReception creates a reception. At least one article is required.
func NewReception(purchaseOrderID uuid.UUID, folio string, date time.Time, articles []Article) (*Reception, error) {
	if purchaseOrderID == uuid.Nil {
		return nil, missingField("purchaseOrderId")
	}
	if folio == "" {
		return nil, missingField("folio")
	}
	if date.IsZero() {
		return nil, missingField("date")
	}
	if len(articles) == 0 {
		return nil, missingField("articles")
	}
	return &Reception{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: purchaseOrderID,
		Folio:           folio,
		Date:            date,
		Articles:        articles,
	}, nil
}

// Totals sums the recomputed article amounts
func (r *Reception) Totals() (subtotal, total decimal.Decimal) {
	subtotal = decimal.Zero
	total = decimal.Zero
	for i := range r.Articles {
		a := r.Articles[i]
		a.Recompute()
		subtotal = subtotal.Add(a.Subtotal)
		total = total.Add(a.Total)
	}
	return subtotal, total
}
