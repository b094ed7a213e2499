package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// ============================================================================
// Mocks
// ============================================================================

// MockInvoiceRepository is a mock implementation of invoicing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByFolio(ctx context.Context, folio string) (*invoicing.Invoice, error) {
	args := m.Called(ctx, folio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoicing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status invoicing.SyncStatus, syncError *string) error {
	args := m.Called(ctx, id, status, syncError)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

// MockReceptionRepository is a mock implementation of invoicing.ReceptionRepository
type MockReceptionRepository struct {
	mock.Mock
}

func (m *MockReceptionRepository) Create(ctx context.Context, r *invoicing.Reception) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReceptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Reception, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Reception), args.Error(1)
}

// MockSupplierRepository is a mock implementation of invoicing.SupplierRepository
type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*invoicing.SupplierProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.SupplierProfile), args.Error(1)
}

// MockPurchaseOrderRepository is a mock implementation of invoicing.PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) UpsertByFolio(ctx context.Context, orders []invoicing.PurchaseOrder) (int, int, error) {
	args := m.Called(ctx, orders)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Put(ctx context.Context, file File, folder string) (string, error) {
	args := m.Called(ctx, file, folder)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Presign(ctx context.Context, key string, ttl time.Duration) string {
	args := m.Called(ctx, key, ttl)
	return args.String(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockPublisher is a mock implementation of MessagePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg invoicing.QueueMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockVendorBillGateway is a mock implementation of VendorBillGateway
type MockVendorBillGateway struct {
	mock.Mock
}

func (m *MockVendorBillGateway) SubmitVendorBill(ctx context.Context, bill VendorBill) (*VendorBillResult, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VendorBillResult), args.Error(1)
}

// MockPurchaseOrderSource is a mock implementation of PurchaseOrderSource
type MockPurchaseOrderSource struct {
	mock.Mock
}

func (m *MockPurchaseOrderSource) FetchPurchaseOrders(ctx context.Context) ([]invoicing.PurchaseOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.PurchaseOrder), args.Error(1)
}

// MockPipelineRecorder is a mock implementation of PipelineRecorder
type MockPipelineRecorder struct {
	mock.Mock
}

func (m *MockPipelineRecorder) InvoiceSubmitted(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockPipelineRecorder) SyncOutcome(ctx context.Context, outcome string) {
	m.Called(ctx, outcome)
}

func (m *MockPipelineRecorder) StuckInvoices(ctx context.Context, n int) {
	m.Called(ctx, n)
}

// ============================================================================
// Fixtures
// ============================================================================

const (
	testFolio       = "5A3B1C2D-0000-4E5F-8A9B-112233445566"
	testSupplierRFC = "AAA010101AAA"
	testSupplier    = "Proveedora del Norte"
	testReceiverRFC = "BBB020202BBB"
	testReceiver    = "Industrias Receptoras"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cfdiXML(subtotal, total string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital"
  Version="4.0" Fecha="2024-03-01T09:30:00" SubTotal="%s" Total="%s" Moneda="MXN">
  <cfdi:Emisor Rfc="%s" Nombre="%s"/>
  <cfdi:Receptor Rfc="%s" Nombre="%s"/>
  <cfdi:Complemento><tfd:TimbreFiscalDigital UUID="%s"/></cfdi:Complemento>
</cfdi:Comprobante>`, subtotal, total, testSupplierRFC, testSupplier, testReceiverRFC, testReceiver, testFolio))
}

func testProfile(userID uuid.UUID) *invoicing.SupplierProfile {
	sub := &invoicing.Subsidiary{
		BaseEntity:   shared.NewBaseEntity(),
		RFC:          testReceiverRFC,
		BusinessName: testReceiver,
	}
	return &invoicing.SupplierProfile{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		RFC:          testSupplierRFC,
		CompanyName:  testSupplier,
		SubsidiaryID: sub.ID,
		Subsidiary:   sub,
	}
}

// testReception builds a reception with one article of the given unit price
func testReception(unitPrice string) *invoicing.Reception {
	article, err := invoicing.NewArticle("Tornillo hexagonal", dec("1"), dec(unitPrice))
	if err != nil {
		panic(err)
	}
	r, err := invoicing.NewReception(uuid.New(), "REC-001", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), []invoicing.Article{article})
	if err != nil {
		panic(err)
	}
	return r
}

func testInvoice(userID, receptionID uuid.UUID, subtotal, total string) *invoicing.Invoice {
	inv := &invoicing.Invoice{
		BaseEntity:  shared.NewBaseEntity(),
		Folio:       testFolio,
		IssueDate:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Subtotal:    dec(subtotal),
		Total:       dec(total),
		XMLKey:      "invoices/u/r/1-factura.xml",
		PDFKey:      "invoices/u/r/1-factura.pdf",
		SyncStatus:  invoicing.SyncStatusPending,
		UserID:      userID,
		ReceptionID: receptionID,
	}
	return inv
}
