package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
	"github.com/sykell/bookmarks/internal/sheet"
)

type runner struct {
	db       *gorm.DB
	importer *importer.Service
	log      logger.Logger
	out      io.Writer
	format   string
}

// commitReport is what the commit subcommand prints.
type commitReport struct {
	File    string                  `json:"file"`
	Preview importer.PreviewSummary `json:"preview"`
	Skipped []importer.RowError     `json:"skipped,omitempty"`
	Result  *importer.CommitResult  `json:"result,omitempty"`
}

func (r *runner) preview(ctx context.Context, opts *options, path string) error {
	userID, err := r.userID(ctx, opts.username)
	if err != nil {
		return err
	}
	parsed, _, err := loadFile(path)
	if err != nil {
		return err
	}

	result, err := r.importer.Preview(ctx, userID, importer.PreviewRequest{
		Rows:    parsed.Rows,
		Mapping: mappingFor(parsed.Headers, opts.columns),
	})
	if err != nil {
		return err
	}
	return r.writePreview(result)
}

func (r *runner) commit(ctx context.Context, opts *options, path string) error {
	userID, err := r.userID(ctx, opts.username)
	if err != nil {
		return err
	}
	parsed, format, err := loadFile(path)
	if err != nil {
		return err
	}

	preview, err := r.importer.Preview(ctx, userID, importer.PreviewRequest{
		Rows:    parsed.Rows,
		Mapping: mappingFor(parsed.Headers, opts.columns),
	})
	if err != nil {
		return err
	}

	report := commitReport{
		File:    path,
		Preview: preview.Summary,
		Skipped: preview.Rows.Errors,
	}

	rows := commitRows(preview.Rows.Ready)
	if len(rows) == 0 {
		r.log.Info("No rows ready to import", logger.String("file", path))
		return r.writeCommit(report)
	}

	source := opts.source
	if source == "" {
		source = sheet.SourceLabel(format, path)
	}

	result, err := r.importer.Commit(ctx, userID, importer.CommitRequest{Rows: rows, Source: source})
	if err != nil {
		return err
	}
	report.Result = result
	return r.writeCommit(report)
}

func (r *runner) userID(ctx context.Context, username string) (uint, error) {
	user, err := service.GetUserByUsername(ctx, r.db, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("user %q not found", username)
		}
		return 0, fmt.Errorf("look up user: %w", err)
	}
	return user.ID, nil
}

func (r *runner) close() error {
	_ = r.log.Sync()
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func loadFile(path string) (*sheet.Sheet, sheet.Format, error) {
	format, err := sheet.DetectFormat(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	parsed, err := sheet.Parse(f, path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return parsed, format, nil
}

// mappingFor suggests a mapping from the headers and lets explicit column
// flags replace individual fields.
func mappingFor(headers []string, columns importer.FieldMapping) importer.FieldMapping {
	mapping := importer.SuggestMapping(headers)
	if columns.URL != "" {
		mapping.URL = columns.URL
	}
	if columns.Title != "" {
		mapping.Title = columns.Title
	}
	if columns.Comment != "" {
		mapping.Comment = columns.Comment
	}
	if columns.Tags != "" {
		mapping.Tags = columns.Tags
	}
	if columns.CreatedAt != "" {
		mapping.CreatedAt = columns.CreatedAt
	}
	return mapping
}

func commitRows(ready []importer.PreparedRow) []importer.CommitRow {
	rows := make([]importer.CommitRow, 0, len(ready))
	for _, p := range ready {
		rows = append(rows, importer.CommitRow{
			RowNumber: p.RowNumber,
			URL:       p.URL,
			Title:     p.Title,
			Comment:   p.Comment,
			Tags:      p.Tags,
			CreatedAt: p.CreatedAt,
		})
	}
	return rows
}
