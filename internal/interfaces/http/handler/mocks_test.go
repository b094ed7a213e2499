package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/auth"
	"github.com/portal/backend/internal/interfaces/http/dto"
	"github.com/portal/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Repository mocks
// ============================================================================

type mockInvoiceRepo struct{ mock.Mock }

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *invoicing.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByFolio(ctx context.Context, folio string) (*invoicing.Invoice, error) {
	args := m.Called(ctx, folio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoicing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *mockInvoiceRepo) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status invoicing.SyncStatus, syncError *string) error {
	return m.Called(ctx, id, status, syncError).Error(0)
}

func (m *mockInvoiceRepo) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

type mockReceptionRepo struct{ mock.Mock }

func (m *mockReceptionRepo) Create(ctx context.Context, r *invoicing.Reception) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReceptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Reception, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Reception), args.Error(1)
}

type mockSupplierRepo struct{ mock.Mock }

func (m *mockSupplierRepo) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*invoicing.SupplierProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.SupplierProfile), args.Error(1)
}

type mockPurchaseOrderRepo struct{ mock.Mock }

func (m *mockPurchaseOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.PurchaseOrder), args.Error(1)
}

func (m *mockPurchaseOrderRepo) UpsertByFolio(ctx context.Context, orders []invoicing.PurchaseOrder) (int, int, error) {
	args := m.Called(ctx, orders)
	return args.Int(0), args.Int(1), args.Error(2)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, msg invoicing.QueueMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockPurchaseOrderSource struct{ mock.Mock }

func (m *mockPurchaseOrderSource) FetchPurchaseOrders(ctx context.Context) ([]invoicing.PurchaseOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.PurchaseOrder), args.Error(1)
}

// ============================================================================
// Helpers
// ============================================================================

const testFolio = "5A3B1C2D-0000-4E5F-8A9B-112233445566"

var fixedDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cfdiXML() []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital"
  Version="4.0" Fecha="2024-03-01T09:30:00" SubTotal="100.00" Total="116.00" Moneda="MXN">
  <cfdi:Emisor Rfc="AAA010101AAA" Nombre="Proveedora del Norte"/>
  <cfdi:Receptor Rfc="BBB020202BBB" Nombre="Industrias Receptoras"/>
  <cfdi:Complemento><tfd:TimbreFiscalDigital UUID="%s"/></cfdi:Complemento>
</cfdi:Comprobante>`, testFolio))
}

// withClaims authenticates every request routed through r as the given user
func withClaims(r *gin.Engine, userID uuid.UUID, role string) {
	r.Use(func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: userID.String(), Role: role})
		c.Next()
	})
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func pendingInvoice(userID uuid.UUID) *invoicing.Invoice {
	return &invoicing.Invoice{
		BaseEntity:  shared.NewBaseEntity(),
		Folio:       testFolio,
		XMLKey:      "invoices/u/r/1-factura.xml",
		PDFKey:      "invoices/u/r/1-factura.pdf",
		SyncStatus:  invoicing.SyncStatusPending,
		UserID:      userID,
		ReceptionID: uuid.New(),
	}
}
