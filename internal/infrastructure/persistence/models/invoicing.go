package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// ReceptionModel records goods received against a purchase order
type ReceptionModel struct {
	BaseModel
	PurchaseOrderID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Folio           string                  `gorm:"type:varchar(64);not null;uniqueIndex"`
	Date            time.Time               `gorm:"not null"`
	Articles        []ReceptionArticleModel `gorm:"foreignKey:ReceptionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ReceptionModel) TableName() string {
	return "receptions"
}

// ToDomain converts the persistence model to a domain Reception
func (m *ReceptionModel) ToDomain() *invoicing.Reception {
	articles := make([]invoicing.Article, len(m.Articles))
	for i := range m.Articles {
		articles[i] = m.Articles[i].ToDomain()
	}
	return &invoicing.Reception{
		BaseEntity:      m.BaseModel.ToDomain(),
		PurchaseOrderID: m.PurchaseOrderID,
		Folio:           m.Folio,
		Date:            m.Date,
		Articles:        articles,
	}
}

// FromDomain populates the persistence model from a domain Reception
func (m *ReceptionModel) FromDomain(r *invoicing.Reception) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.PurchaseOrderID = r.PurchaseOrderID
	m.Folio = r.Folio
	m.Date = r.Date
	m.Articles = make([]ReceptionArticleModel, len(r.Articles))
	for i, a := range r.Articles {
		m.Articles[i] = ReceptionArticleModel{
			ID:          a.ID,
			ReceptionID: r.ID,
			Position:    i,
			Name:        a.Name,
			Quantity:    a.Quantity,
			UnitPrice:   a.UnitPrice,
			Subtotal:    a.Subtotal,
			Tax:         a.Tax,
			Total:       a.Total,
		}
	}
}

// ReceptionArticleModel is a reception line item. Position keeps article order.
type ReceptionArticleModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReceptionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	Name        string          `gorm:"type:varchar(300);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ReceptionArticleModel) TableName() string {
	return "reception_articles"
}

// ToDomain converts the persistence model to a domain Article
func (m *ReceptionArticleModel) ToDomain() invoicing.Article {
	return invoicing.Article{
		ID:        m.ID,
		Name:      m.Name,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Subtotal:  m.Subtotal,
		Tax:       m.Tax,
		Total:     m.Total,
	}
}

// InvoiceModel is the persistence model for Invoice. Folio is globally unique.
type InvoiceModel struct {
	BaseModel
	Folio       string               `gorm:"type:varchar(64);not null;uniqueIndex"`
	IssueDate   time.Time            `gorm:"not null"`
	Subtotal    decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Total       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	XMLKey      string               `gorm:"column:xml_key;type:varchar(512);not null"`
	PDFKey      string               `gorm:"column:pdf_key;type:varchar(512);not null"`
	SyncStatus  invoicing.SyncStatus `gorm:"type:varchar(20);not null;default:'PENDING_SYNC';index"`
	SyncError   *string              `gorm:"type:varchar(255)"`
	UserID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	ReceptionID uuid.UUID            `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	return &invoicing.Invoice{
		BaseEntity:  m.BaseModel.ToDomain(),
		Folio:       m.Folio,
		IssueDate:   m.IssueDate,
		Subtotal:    m.Subtotal,
		Total:       m.Total,
		XMLKey:      m.XMLKey,
		PDFKey:      m.PDFKey,
		SyncStatus:  m.SyncStatus,
		SyncError:   m.SyncError,
		UserID:      m.UserID,
		ReceptionID: m.ReceptionID,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.Folio = inv.Folio
	m.IssueDate = inv.IssueDate
	m.Subtotal = inv.Subtotal
	m.Total = inv.Total
	m.XMLKey = inv.XMLKey
	m.PDFKey = inv.PDFKey
	m.SyncStatus = inv.SyncStatus
	m.SyncError = inv.SyncError
	m.UserID = inv.UserID
	m.ReceptionID = inv.ReceptionID
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// AllModels lists every table model in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&UserModel{},
		&SubsidiaryModel{},
		&SupplierProfileModel{},
		&PurchaseOrderModel{},
		&ReceptionModel{},
		&ReceptionArticleModel{},
		&InvoiceModel{},
	}
}
