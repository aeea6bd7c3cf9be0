package service

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/bookmarks/internal/db"
)

// ListImports returns a page of a user's imports, newest first
func ListImports(ctx context.Context, dbConn *gorm.DB, userID uint, page, size int) ([]db.Import, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	query := dbConn.WithContext(ctx).Model(&db.Import{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	imports := make([]db.Import, 0, size)
	err := query.
		Order("created_at desc").
		Limit(size).
		Offset((page - 1) * size).
		Find(&imports).Error
	if err != nil {
		return nil, 0, err
	}
	return imports, total, nil
}

// GetImportByIDAndUser retrieves an import with its error rows ordered by row number
func GetImportByIDAndUser(ctx context.Context, dbConn *gorm.DB, id string, userID uint) (*db.Import, error) {
	var imp db.Import
	err := dbConn.WithContext(ctx).
		Preload("Errors", func(tx *gorm.DB) *gorm.DB {
			// row_number is reserved in MySQL 8, so it goes through the quoting clause.
			return tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "row_number"}}).Order("id asc")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&imp).Error
	if err != nil {
		return nil, err
	}
	return &imp, nil
}
