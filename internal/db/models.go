package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// Import error codes
const (
	ErrorCodeDuplicateURL = "duplicate_url"
	ErrorCodeInsertFailed = "insert_failed"
)

// User represents an authenticated user
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	Password  string    `gorm:"not null;size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a saved bookmark. URLKey is the lowercased canonical URL and is
// unique per user; canonical URLs never exceed its width.
type Link struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_links_user_url_key,priority:1" json:"user_id"`
	URL       string    `gorm:"not null;size:2048" json:"url"`
	URLKey    string    `gorm:"not null;size:700;uniqueIndex:idx_links_user_url_key,priority:2" json:"-"`
	Title     string    `gorm:"not null;size:1024" json:"title"`
	Comment   *string   `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []Tag     `gorm:"many2many:link_tags;" json:"tags,omitempty"`
}

// Tag is a user scoped label. NameKey is the lowercased name.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_tags_user_name_key,priority:1" json:"user_id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	NameKey   string    `gorm:"not null;size:100;uniqueIndex:idx_tags_user_name_key,priority:2" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkTag is the join row between links and tags
type LinkTag struct {
	LinkID uint `gorm:"primaryKey"`
	TagID  uint `gorm:"primaryKey"`
}

// Import tracks one bulk import commit
type Import struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	Source        string        `gorm:"size:120" json:"source"`
	Status        ImportStatus  `gorm:"size:20;not null;default:'pending'" json:"status"`
	TotalRows     int           `json:"total_rows"`
	ImportedRows  int           `json:"imported_rows"`
	DuplicateRows int           `json:"duplicate_rows"`
	FailedRows    int           `json:"failed_rows"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Errors        []ImportError `gorm:"foreignKey:ImportID" json:"errors,omitempty"`
}

// BeforeCreate assigns a UUID when none is set
func (i *Import) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ImportError is an append-only record of a row that was not imported
type ImportError struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ImportID     string    `gorm:"not null;size:36;index" json:"import_id"`
	RowNumber    int       `json:"row_number"`
	URL          string    `gorm:"size:2048" json:"url"`
	ErrorCode    string    `gorm:"size:50" json:"error_code"`
	ErrorDetails string    `gorm:"type:text" json:"error_details"` // JSON: {"message":"..."}
	CreatedAt    time.Time `json:"created_at"`
}
