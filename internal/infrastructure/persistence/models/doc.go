// Package models contains GORM persistence models that map to database tables.
// Domain types carry no ORM tags; each model converts to and from its domain
// counterpart with ToDomain and FromDomain.
//
//   - base.go: shared columns
//   - account.go: accounts and employees
//   - subscription.go: subscriptions and their daily orders
//   - freeze_record.go: the weekly freeze audit log
//   - ledger_entry.go: the append-only balance ledger
package models
