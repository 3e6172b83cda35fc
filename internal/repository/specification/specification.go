package specification

import "gorm.io/gorm"

// Specification narrows a concept query.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// All applies every specification in order. An empty All leaves the query as is.
type All []Specification

func (a All) Apply(db *gorm.DB) *gorm.DB {
	for _, spec := range a {
		if spec != nil {
			db = spec.Apply(db)
		}
	}
	return db
}
