package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/importer"
)

const errorInsertBatchSize = 500

// ImportStore implements importer.Store on top of gorm
type ImportStore struct {
	db *gorm.DB
}

var _ importer.Store = (*ImportStore)(nil)

// NewImportStore creates a store bound to dbConn
func NewImportStore(dbConn *gorm.DB) *ImportStore {
	return &ImportStore{db: dbConn}
}

func (s *ImportStore) ExistingURLKeys(ctx context.Context, userID uint, keys []string) ([]string, error) {
	var found []string
	err := s.db.WithContext(ctx).
		Model(&db.Link{}).
		Where("user_id = ? AND url_key IN ?", userID, keys).
		Pluck("url_key", &found).Error
	return found, err
}

func (s *ImportStore) FindTags(ctx context.Context, userID uint, nameKeys []string) ([]db.Tag, error) {
	var tags []db.Tag
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name_key IN ?", userID, nameKeys).
		Find(&tags).Error
	return tags, err
}

// CreateTags inserts tags and ignores (user_id, name_key) conflicts.
func (s *ImportStore) CreateTags(ctx context.Context, tags []db.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tags).Error
}

func (s *ImportStore) CreateImport(ctx context.Context, imp *db.Import) error {
	return s.db.WithContext(ctx).Create(imp).Error
}

// FinishImport writes the final status and counters of an import.
func (s *ImportStore) FinishImport(ctx context.Context, imp *db.Import) error {
	return s.db.WithContext(ctx).
		Model(imp).
		Where("user_id = ?", imp.UserID).
		Select("status", "imported_rows", "duplicate_rows", "failed_rows").
		Updates(imp).Error
}

func (s *ImportStore) RecordImportErrors(ctx context.Context, errs []db.ImportError) error {
	if len(errs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(&errs, errorInsertBatchSize).Error
}

// InsertLinks inserts links in one transaction. Either all rows are stored
// or none are.
func (s *ImportStore) InsertLinks(ctx context.Context, links []db.Link) error {
	if len(links) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&links).Error
	})
	if err != nil {
		for i := range links {
			links[i].ID = 0
		}
	}
	return translateError(err)
}

func (s *ImportStore) InsertLink(ctx context.Context, link *db.Link) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error
	return translateError(err)
}

// LinkTags stores link/tag pairs and ignores pairs that already exist.
func (s *ImportStore) LinkTags(ctx context.Context, pairs []db.LinkTag) error {
	if len(pairs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pairs).Error
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return importer.ErrDuplicate
	}
	return err
}
