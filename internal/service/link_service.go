package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/importer"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	defaultLinkSort = "created_at desc"
)

var allowedLinkSorts = map[string]bool{
	"created_at desc": true,
	"created_at asc":  true,
	"updated_at desc": true,
	"updated_at asc":  true,
	"title asc":       true,
	"title desc":      true,
}

// LinkFilter narrows a link listing
type LinkFilter struct {
	Page   int
	Size   int
	Search string
	Tag    string
	Sort   string
}

// Normalize clamps paging values and replaces unknown sorts with the default.
func (f LinkFilter) Normalize() LinkFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > MaxPageSize {
		f.Size = DefaultPageSize
	}
	f.Sort = strings.ToLower(strings.TrimSpace(f.Sort))
	if !allowedLinkSorts[f.Sort] {
		f.Sort = defaultLinkSort
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Tag = strings.TrimSpace(f.Tag)
	return f
}

// ListLinks returns one page of a user's links with their tags, and the total
// number of links matching the filter.
func ListLinks(ctx context.Context, dbConn *gorm.DB, userID uint, filter LinkFilter) ([]db.Link, int64, error) {
	filter = filter.Normalize()

	query := dbConn.WithContext(ctx).Model(&db.Link{}).Where("links.user_id = ?", userID)

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("links.url LIKE ? OR links.title LIKE ?", like, like)
	}

	if filter.Tag != "" {
		tagged := dbConn.Table("link_tags").
			Select("link_tags.link_id").
			Joins("JOIN tags ON tags.id = link_tags.tag_id").
			Where("tags.user_id = ? AND tags.name_key = ?", userID, importer.TagKey(filter.Tag))
		query = query.Where("links.id IN (?)", tagged)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	links := make([]db.Link, 0, filter.Size)
	offset := (filter.Page - 1) * filter.Size
	err := query.
		Preload("Tags").
		Order("links." + filter.Sort).
		Order("links.id").
		Limit(filter.Size).
		Offset(offset).
		Find(&links).Error
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// GetLinkByIDAndUser retrieves a link by ID for a specific user
func GetLinkByIDAndUser(ctx context.Context, dbConn *gorm.DB, id uint, userID uint) (*db.Link, error) {
	var link db.Link
	err := dbConn.WithContext(ctx).
		Preload("Tags").
		Where("id = ? AND user_id = ?", id, userID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinkByID retrieves a link by ID
func GetLinkByID(ctx context.Context, dbConn *gorm.DB, id uint) (*db.Link, error) {
	var link db.Link
	if err := dbConn.WithContext(ctx).First(&link, id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// UpdateDefaultTitle replaces a link title only while it still equals the
// link's URL, so a title edited in the meantime is never overwritten.
func UpdateDefaultTitle(ctx context.Context, dbConn *gorm.DB, id uint, title string) (bool, error) {
	result := dbConn.WithContext(ctx).
		Model(&db.Link{}).
		Where("id = ? AND title = url", id).
		Update("title", title)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
