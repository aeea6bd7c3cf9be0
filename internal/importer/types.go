package importer

import (
	"strings"
	"time"

	"github.com/sykell/bookmarks/internal/db"
)

// RawRow is one spreadsheet row keyed by column name. A nil value means the
// cell was present but null.
type RawRow struct {
	RowNumber int                `json:"row_number" validate:"min=1"`
	Values    map[string]*string `json:"values"`
}

// Value returns the trimmed cell for column. It reports false when the column
// name is blank, the column is missing, the cell is null or only whitespace.
func (r RawRow) Value(column string) (string, bool) {
	name := strings.TrimSpace(column)
	if name == "" {
		return "", false
	}
	raw, ok := r.Values[name]
	if !ok || raw == nil {
		return "", false
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// FieldMapping maps target fields to spreadsheet column names. Empty means unmapped.
type FieldMapping struct {
	URL       string `json:"url" validate:"required"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Tags      string `json:"tags,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// PreparedRow is a validated row in canonical form
type PreparedRow struct {
	RowNumber int        `json:"row_number"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Comment   *string    `json:"comment"`
	Tags      []string   `json:"tags"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RowError describes why a row could not be normalized
type RowError struct {
	RowNumber int    `json:"row_number"`
	Column    string `json:"column,omitempty"`
	Message   string `json:"message"`
}

type DuplicateReason string

const (
	ReasonExisting  DuplicateReason = "existing"
	ReasonDuplicate DuplicateReason = "duplicate"
)

type DuplicateRow struct {
	RowNumber int             `json:"row_number"`
	URL       string          `json:"url"`
	Reason    DuplicateReason `json:"reason"`
}

type PreviewRequest struct {
	Rows    []RawRow     `json:"rows" validate:"required,min=1,dive"`
	Mapping FieldMapping `json:"mapping"`
}

type PreviewRows struct {
	Ready      []PreparedRow  `json:"ready"`
	Duplicates []DuplicateRow `json:"duplicates"`
	Errors     []RowError     `json:"errors"`
}

type PreviewSummary struct {
	Total      int `json:"total"`
	Ready      int `json:"ready"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

type PreviewResult struct {
	Rows    PreviewRows    `json:"rows"`
	Summary PreviewSummary `json:"summary"`
}

// CommitRow is a row accepted by the user after preview
type CommitRow struct {
	RowNumber int        `json:"row_number" validate:"min=1"`
	URL       string     `json:"url" validate:"required,url"`
	Title     string     `json:"title" validate:"required"`
	Comment   *string    `json:"comment"`
	Tags      []string   `json:"tags" validate:"dive,required,max=100"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type CommitRequest struct {
	Rows   []CommitRow `json:"rows" validate:"required,min=1,dive"`
	Source string      `json:"source,omitempty" validate:"omitempty,max=120"`
}

type CommitSummary struct {
	Total      int             `json:"total"`
	Imported   int             `json:"imported"`
	Duplicates int             `json:"duplicates"`
	Failed     int             `json:"failed"`
	Status     db.ImportStatus `json:"status"`
}

type CommitResult struct {
	ImportID string        `json:"import_id"`
	Summary  CommitSummary `json:"summary"`
}
