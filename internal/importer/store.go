package importer

import (
	"context"
	"errors"

	"github.com/sykell/bookmarks/internal/db"
)

var (
	// ErrInvalidRequest marks malformed preview or commit input.
	ErrInvalidRequest = errors.New("invalid import request")
	// ErrDuplicate is returned by a Store when a uniqueness constraint rejects a row.
	ErrDuplicate = errors.New("duplicate record")
)

// URLLookup finds which URL keys a user already has.
type URLLookup interface {
	ExistingURLKeys(ctx context.Context, userID uint, keys []string) ([]string, error)
}

// TagStore reads and creates a user's tags.
type TagStore interface {
	FindTags(ctx context.Context, userID uint, nameKeys []string) ([]db.Tag, error)
	// CreateTags inserts tags, skipping rows that already exist.
	CreateTags(ctx context.Context, tags []db.Tag) error
}

// Store is everything the import path needs from storage. Every method is
// scoped by user id at the query level.
type Store interface {
	URLLookup
	TagStore

	CreateImport(ctx context.Context, imp *db.Import) error
	FinishImport(ctx context.Context, imp *db.Import) error
	RecordImportErrors(ctx context.Context, errs []db.ImportError) error

	// InsertLinks inserts all links atomically and sets their IDs.
	InsertLinks(ctx context.Context, links []db.Link) error
	// InsertLink inserts one link; ErrDuplicate on a (user, url_key) conflict.
	InsertLink(ctx context.Context, link *db.Link) error
	LinkTags(ctx context.Context, pairs []db.LinkTag) error
}

// LinkNotifier is told about freshly imported links whose title is still the URL.
type LinkNotifier interface {
	NotifyNewLink(id uint) error
}
