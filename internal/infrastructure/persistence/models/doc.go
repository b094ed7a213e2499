// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// entity with ToDomain and FromDomain.
//
// Structure:
//   - base.go: BaseModel shared by every table
//   - party.go: users, subsidiaries, supplier profiles and purchase orders
//   - invoicing.go: receptions, reception articles and invoices
package models
