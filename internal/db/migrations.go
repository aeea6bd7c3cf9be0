package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/logger"
)

// Migrate creates or updates the schema
func Migrate(db *gorm.DB, log logger.Logger) error {
	if err := db.SetupJoinTable(&Link{}, "Tags", &LinkTag{}); err != nil {
		return fmt.Errorf("setup link_tags join table: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Link{}, &Tag{}, &LinkTag{}, &Import{}, &ImportError{}); err != nil {
		return err
	}

	for _, stmt := range keyCollationStatements(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("set key column collation: %w", err)
		}
	}

	return backfillKeys(db, log)
}

// keyCollationStatements switches the lookup key columns to a binary
// collation on MySQL, where the connection default would treat accented and
// unaccented keys as equal. SQLite compares bytes already.
func keyCollationStatements(dialect string) []string {
	if dialect != DriverMySQL {
		return nil
	}
	return []string{
		"ALTER TABLE links MODIFY url_key VARCHAR(700) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL",
		"ALTER TABLE tags MODIFY name_key VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL",
	}
}

// backfillKeys fills url_key and name_key for rows written before the key
// columns existed.
func backfillKeys(db *gorm.DB, log logger.Logger) error {
	links := db.Model(&Link{}).Where("url_key = '' OR url_key IS NULL").Update("url_key", gorm.Expr("LOWER(url)"))
	if links.Error != nil {
		return links.Error
	}

	tags := db.Model(&Tag{}).Where("name_key = '' OR name_key IS NULL").Update("name_key", gorm.Expr("LOWER(name)"))
	if tags.Error != nil {
		return tags.Error
	}

	if links.RowsAffected > 0 || tags.RowsAffected > 0 {
		log.Info("Backfilled lookup keys",
			logger.Int64("links", links.RowsAffected),
			logger.Int64("tags", tags.RowsAffected),
		)
	}
	return nil
}
