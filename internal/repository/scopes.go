package repository

import (
	"strings"

	"gorm.io/gorm"
)

// inClass restricts a query to one class; zero leaves it unscoped.
func inClass(classID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if classID == 0 {
			return db
		}
		return db.Where("class_id = ?", classID)
	}
}

// paginate applies 1-based page offsets; a non-positive size returns everything.
func paginate(page, size int) func(*gorm.DB) *gorm.DB {
	if page <= 0 {
		page = 1
	}
	return func(db *gorm.DB) *gorm.DB {
		if size <= 0 {
			return db
		}
		return db.Offset((page - 1) * size).Limit(size)
	}
}

// matching does a case-insensitive substring search over the given columns.
func matching(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	needle := strings.ToLower(strings.TrimSpace(term))
	return func(db *gorm.DB) *gorm.DB {
		if needle == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + needle + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]interface{}, 0, len(columns))
		for _, column := range columns {
			clauses = append(clauses, "LOWER("+column+") LIKE ?")
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// countAndFind runs the count on a cloned session before listing with extra scopes.
func countAndFind[T any](query *gorm.DB, order string, scopes ...func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []T
	if err := query.Scopes(scopes...).Order(order).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
