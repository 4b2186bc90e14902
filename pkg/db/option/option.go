package option

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption narrows a read. Options are applied in the order given.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Equal filters rows where column = value.
func Equal(column string, value any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	})
}

// Gte filters rows where column >= value.
func Gte(column string, value any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Gte{Column: clause.Column{Name: column}, Value: value})
	})
}

// Lte filters rows where column <= value.
func Lte(column string, value any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Lte{Column: clause.Column{Name: column}, Value: value})
	})
}

func OrderBy(column string, dir Direction) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   dir == Desc,
		})
	})
}

// Limit caps the number of rows; n <= 0 means no limit.
func Limit(n int) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if n <= 0 {
			return db
		}
		return db.Limit(n)
	})
}
