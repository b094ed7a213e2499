package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// UserModel is a portal account row. Credentials live with the identity provider.
type UserModel struct {
	BaseModel
	Email string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name  string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *invoicing.User {
	return &invoicing.User{BaseEntity: m.BaseModel.ToDomain(), Email: m.Email, Name: m.Name}
}

// SubsidiaryModel is the receiving legal entity
type SubsidiaryModel struct {
	BaseModel
	RFC          string `gorm:"column:rfc;type:varchar(13);not null;uniqueIndex"`
	BusinessName string `gorm:"type:varchar(300);not null"`
}

// TableName returns the table name for GORM
func (SubsidiaryModel) TableName() string {
	return "subsidiaries"
}

// ToDomain converts the persistence model to a domain Subsidiary
func (m *SubsidiaryModel) ToDomain() *invoicing.Subsidiary {
	return &invoicing.Subsidiary{BaseEntity: m.BaseModel.ToDomain(), RFC: m.RFC, BusinessName: m.BusinessName}
}

// FromDomain populates the persistence model from a domain Subsidiary
func (m *SubsidiaryModel) FromDomain(s *invoicing.Subsidiary) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.RFC = s.RFC
	m.BusinessName = s.BusinessName
}

// SupplierProfileModel holds the supplier's fiscal identity
type SupplierProfileModel struct {
	BaseModel
	UserID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	RFC          string           `gorm:"column:rfc;type:varchar(13);not null"`
	CompanyName  string           `gorm:"type:varchar(300);not null"`
	SubsidiaryID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Subsidiary   *SubsidiaryModel `gorm:"foreignKey:SubsidiaryID"`
}

// TableName returns the table name for GORM
func (SupplierProfileModel) TableName() string {
	return "supplier_profiles"
}

// ToDomain converts the persistence model to a domain SupplierProfile.
// The subsidiary is included when it was preloaded.
func (m *SupplierProfileModel) ToDomain() *invoicing.SupplierProfile {
	p := &invoicing.SupplierProfile{
		BaseEntity:   m.BaseModel.ToDomain(),
		UserID:       m.UserID,
		RFC:          m.RFC,
		CompanyName:  m.CompanyName,
		SubsidiaryID: m.SubsidiaryID,
	}
	if m.Subsidiary != nil {
		p.Subsidiary = m.Subsidiary.ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain SupplierProfile
func (m *SupplierProfileModel) FromDomain(p *invoicing.SupplierProfile) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.UserID = p.UserID
	m.RFC = p.RFC
	m.CompanyName = p.CompanyName
	m.SubsidiaryID = p.SubsidiaryID
}

// PurchaseOrderModel is a purchase order imported from the ERP
type PurchaseOrderModel struct {
	BaseModel
	Folio          string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Date           time.Time       `gorm:"not null"`
	SubsidiaryName string          `gorm:"type:varchar(300)"`
	VendorName     string          `gorm:"type:varchar(300)"`
	VendorErpID    string          `gorm:"column:vendor_erp_id;type:varchar(64)"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *invoicing.PurchaseOrder {
	return &invoicing.PurchaseOrder{
		BaseEntity:     m.BaseModel.ToDomain(),
		Folio:          m.Folio,
		Date:           m.Date,
		SubsidiaryName: m.SubsidiaryName,
		VendorName:     m.VendorName,
		VendorErpID:    m.VendorErpID,
		Subtotal:       m.Subtotal,
		Total:          m.Total,
	}
}

// FromDomain populates the persistence model from a domain PurchaseOrder
func (m *PurchaseOrderModel) FromDomain(po *invoicing.PurchaseOrder) {
	m.FromDomainBaseEntity(po.BaseEntity)
	m.Folio = po.Folio
	m.Date = po.Date
	m.SubsidiaryName = po.SubsidiaryName
	m.VendorName = po.VendorName
	m.VendorErpID = po.VendorErpID
	m.Subtotal = po.Subtotal
	m.Total = po.Total
}
