package scope

import "gorm.io/gorm"

// OldestFirst orders by creation time with the primary key as tie-break.
func OldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}
