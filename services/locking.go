package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds a row lock inside a transaction. SQLite has no FOR UPDATE
// syntax; its single-writer lock serializes the transactions instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
