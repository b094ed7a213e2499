package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
)

var _ invoicingapp.VendorBillGateway = (*VendorBillGateway)(nil)

// VendorBillGateway submits vendor bills through a deployed ERP script
type VendorBillGateway struct {
	client   *Client
	scriptID string
	deployID string
}

// NewVendorBillGateway binds the client to the vendor bill script deployment
func NewVendorBillGateway(client *Client, scriptID, deployID string) *VendorBillGateway {
	return &VendorBillGateway{client: client, scriptID: scriptID, deployID: deployID}
}

// SubmitVendorBill posts the bill. A structured rejection comes back as a
// result with Success false; transport and HTTP failures come back as errors.
func (g *VendorBillGateway) SubmitVendorBill(ctx context.Context, bill invoicingapp.VendorBill) (*invoicingapp.VendorBillResult, error) {
	raw, err := g.client.InvokeAction(ctx, g.scriptID, g.deployID, http.MethodPost, bill)
	if err != nil {
		return nil, err
	}

	var result invoicingapp.VendorBillResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	result.Raw = string(raw)
	return &result, nil
}
