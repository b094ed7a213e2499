package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var _ invoicingapp.PurchaseOrderSource = (*PurchaseOrderSource)(nil)

// PurchaseOrderQuery selects the header line of every purchase order
const PurchaseOrderQuery = `SELECT
	tranid AS folio,
	trandate AS trandate,
	BUILTIN.DF(subsidiary) AS subsidiary,
	BUILTIN.DF(entity) AS vendor,
	subtotal,
	total,
	entity AS vendorid
FROM transaction
WHERE type = 'PurchOrd' AND mainline = 'T'`

// trandate comes back in the account's date preference
var tranDateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	time.RFC3339,
}

type purchaseOrderRow struct {
	Folio      string          `json:"folio"`
	TranDate   string          `json:"trandate"`
	Subsidiary string          `json:"subsidiary"`
	Vendor     string          `json:"vendor"`
	Subtotal   json.RawMessage `json:"subtotal"`
	Total      json.RawMessage `json:"total"`
	VendorID   json.RawMessage `json:"vendorid"`
}

// PurchaseOrderSource reads purchase orders with a bulk query
type PurchaseOrderSource struct {
	client *Client
}

// NewPurchaseOrderSource creates a source backed by client
func NewPurchaseOrderSource(client *Client) *PurchaseOrderSource {
	return &PurchaseOrderSource{client: client}
}

// FetchPurchaseOrders runs PurchaseOrderQuery and maps each row
func (s *PurchaseOrderSource) FetchPurchaseOrders(ctx context.Context) ([]invoicing.PurchaseOrder, error) {
	items, err := s.client.Query(ctx, PurchaseOrderQuery)
	if err != nil {
		return nil, err
	}

	orders := make([]invoicing.PurchaseOrder, 0, len(items))
	for i, item := range items {
		var row purchaseOrderRow
		if err := json.Unmarshal(item, &row); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidResponse, i, err)
		}
		po, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidResponse, i, err)
		}
		orders = append(orders, po)
	}
	return orders, nil
}

func (r purchaseOrderRow) toDomain() (invoicing.PurchaseOrder, error) {
	if r.Folio == "" {
		return invoicing.PurchaseOrder{}, fmt.Errorf("missing folio")
	}
	date, err := parseTranDate(r.TranDate)
	if err != nil {
		return invoicing.PurchaseOrder{}, err
	}
	subtotal, err := jsonDecimal(r.Subtotal)
	if err != nil {
		return invoicing.PurchaseOrder{}, fmt.Errorf("subtotal: %w", err)
	}
	total, err := jsonDecimal(r.Total)
	if err != nil {
		return invoicing.PurchaseOrder{}, fmt.Errorf("total: %w", err)
	}
	return invoicing.PurchaseOrder{
		BaseEntity:     shared.NewBaseEntity(),
		Folio:          r.Folio,
		Date:           date,
		SubsidiaryName: r.Subsidiary,
		VendorName:     r.Vendor,
		VendorErpID:    jsonScalar(r.VendorID),
		Subtotal:       subtotal,
		Total:          total,
	}, nil
}

func parseTranDate(raw string) (time.Time, error) {
	for _, layout := range tranDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized trandate %q", raw)
}

// jsonDecimal accepts numbers and numeric strings; null and empty are zero
func jsonDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	s := jsonScalar(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func jsonScalar(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
