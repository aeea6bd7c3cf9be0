package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/logger"
)

const (
	msgURLExists    = "URL already exists"
	msgInsertFailed = "failed to save link"
)

type commitCounts struct {
	attempted  int
	imported   int
	duplicates int
	failed     int
}

// Commit writes accepted rows for a user. Existing duplicates are re-checked
// against current storage, tags are reconciled once for the batch and links
// are inserted in batches. Row and batch failures are recorded on the import
// and never abort the commit; only storage failures before the first insert
// are returned as errors.
func (s *Service) Commit(ctx context.Context, userID uint, req CommitRequest) (*CommitResult, error) {
	if err := s.validateRequest(req, len(req.Rows)); err != nil {
		return nil, err
	}
	rows, err := prepareCommitRows(req.Rows)
	if err != nil {
		return nil, err
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = s.defaultSource
	}

	imp := &db.Import{
		UserID:    userID,
		Source:    source,
		Status:    db.ImportPending,
		TotalRows: len(rows),
	}
	if err := s.store.CreateImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("create import: %w", err)
	}
	log := s.log.With(logger.String("import_id", imp.ID), logger.Uint("user_id", userID))

	unique, repeated := PartitionByURL(rows)
	existing, err := MatchExisting(ctx, s.store, userID, urlsOf(unique))
	if err != nil {
		s.abandon(ctx, log, imp)
		return nil, err
	}

	duplicates := repeated
	fresh := make([]PreparedRow, 0, len(unique))
	for _, row := range unique {
		if _, ok := existing[URLKey(row.URL)]; ok {
			duplicates = append(duplicates, row)
			continue
		}
		fresh = append(fresh, row)
	}
	s.recordErrors(ctx, log, imp.ID, duplicates, db.ErrorCodeDuplicateURL, msgURLExists)

	tagIDs, err := ReconcileTags(ctx, s.store, userID, collectTagNames(fresh))
	if err != nil {
		log.Warn("Tag reconciliation failed, importing links without tags", logger.Error(err))
		tagIDs = map[string]uint{}
	}

	counts := commitCounts{duplicates: len(duplicates)}
	for start := 0; start < len(fresh); start += s.batchSize {
		end := min(start+s.batchSize, len(fresh))
		counts.attempted += end - start
		s.insertBatch(ctx, log, imp.ID, userID, fresh[start:end], tagIDs, &counts)
	}

	status := db.ImportCompleted
	if counts.imported == 0 && counts.attempted > 0 {
		status = db.ImportFailed
	}

	imp.Status = status
	imp.ImportedRows = counts.imported
	imp.DuplicateRows = counts.duplicates
	imp.FailedRows = counts.failed
	if err := s.store.FinishImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("finish import: %w", err)
	}

	log.Info("Import committed",
		logger.String("status", string(status)),
		logger.Int("total", len(rows)),
		logger.Int("imported", counts.imported),
		logger.Int("duplicates", counts.duplicates),
		logger.Int("failed", counts.failed),
	)

	return &CommitResult{
		ImportID: imp.ID,
		Summary: CommitSummary{
			Total:      len(rows),
			Imported:   counts.imported,
			Duplicates: counts.duplicates,
			Failed:     counts.failed,
			Status:     status,
		},
	}, nil
}

// insertBatch inserts one batch atomically. When the batch is rejected the
// rows are retried one by one so a single bad row only fails itself.
func (s *Service) insertBatch(
	ctx context.Context,
	log logger.Logger,
	importID string,
	userID uint,
	batch []PreparedRow,
	tagIDs map[string]uint,
	counts *commitCounts,
) {
	links := make([]db.Link, len(batch))
	for i, row := range batch {
		links[i] = newLink(userID, row)
	}

	batchErr := s.store.InsertLinks(ctx, links)
	if batchErr == nil {
		counts.imported += len(links)
		s.afterInsert(ctx, log, batch, links, tagIDs)
		return
	}
	log.Warn("Batch insert failed, retrying rows individually",
		logger.Int("rows", len(batch)),
		logger.Error(batchErr),
	)

	var (
		insertedRows  []PreparedRow
		insertedLinks []db.Link
		duplicateRows []PreparedRow
		failedRows    []PreparedRow
	)
	for i, row := range batch {
		link := newLink(userID, row)
		err := s.store.InsertLink(ctx, &link)
		switch {
		case err == nil:
			insertedRows = append(insertedRows, batch[i])
			insertedLinks = append(insertedLinks, link)
		case errors.Is(err, ErrDuplicate):
			duplicateRows = append(duplicateRows, row)
		default:
			log.Debug("Row insert failed", logger.Int("row_number", row.RowNumber), logger.Error(err))
			failedRows = append(failedRows, row)
		}
	}

	counts.imported += len(insertedLinks)
	counts.duplicates += len(duplicateRows)
	counts.failed += len(failedRows)

	s.recordErrors(ctx, log, importID, duplicateRows, db.ErrorCodeDuplicateURL, msgURLExists)
	s.recordErrors(ctx, log, importID, failedRows, db.ErrorCodeInsertFailed, msgInsertFailed)
	s.afterInsert(ctx, log, insertedRows, insertedLinks, tagIDs)
}

// afterInsert links tags and queues title enrichment. rows[i] produced links[i].
func (s *Service) afterInsert(ctx context.Context, log logger.Logger, rows []PreparedRow, links []db.Link, tagIDs map[string]uint) {
	if len(links) == 0 {
		return
	}

	var pairs []db.LinkTag
	for i, link := range links {
		seen := make(map[uint]struct{})
		for _, tag := range rows[i].Tags {
			tagID, ok := tagIDs[TagKey(tag)]
			if !ok {
				continue
			}
			if _, dup := seen[tagID]; dup {
				continue
			}
			seen[tagID] = struct{}{}
			pairs = append(pairs, db.LinkTag{LinkID: link.ID, TagID: tagID})
		}
	}
	if len(pairs) > 0 {
		if err := s.store.LinkTags(ctx, pairs); err != nil {
			log.Warn("Failed to link tags to imported links", logger.Int("pairs", len(pairs)), logger.Error(err))
		}
	}

	if s.notifier == nil {
		return
	}
	for _, link := range links {
		if link.Title != link.URL {
			continue
		}
		if err := s.notifier.NotifyNewLink(link.ID); err != nil {
			log.Debug("Title enrichment not queued", logger.Uint("link_id", link.ID), logger.Error(err))
		}
	}
}

func (s *Service) recordErrors(ctx context.Context, log logger.Logger, importID string, rows []PreparedRow, code, message string) {
	if len(rows) == 0 {
		return
	}

	details, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		details = []byte(`{}`)
	}

	records := make([]db.ImportError, len(rows))
	for i, row := range rows {
		records[i] = db.ImportError{
			ImportID:     importID,
			RowNumber:    row.RowNumber,
			URL:          row.URL,
			ErrorCode:    code,
			ErrorDetails: string(details),
		}
	}
	if err := s.store.RecordImportErrors(ctx, records); err != nil {
		log.Warn("Failed to record import errors",
			logger.String("error_code", code),
			logger.Int("rows", len(records)),
			logger.Error(err),
		)
	}
}

// abandon marks an import failed after a fatal error so it does not stay pending.
func (s *Service) abandon(ctx context.Context, log logger.Logger, imp *db.Import) {
	imp.Status = db.ImportFailed
	if err := s.store.FinishImport(ctx, imp); err != nil {
		log.Error("Failed to mark abandoned import as failed", logger.Error(err))
	}
}

// prepareCommitRows re-normalizes client supplied rows.
func prepareCommitRows(rows []CommitRow) ([]PreparedRow, error) {
	prepared := make([]PreparedRow, 0, len(rows))
	for _, row := range rows {
		canonical, ok := NormalizeURL(row.URL)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: %s", ErrInvalidRequest, row.RowNumber, msgInvalidURL)
		}
		title := strings.TrimSpace(row.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: row %d: title is required", ErrInvalidRequest, row.RowNumber)
		}

		var comment *string
		if row.Comment != nil {
			if trimmed := strings.TrimSpace(*row.Comment); trimmed != "" {
				comment = &trimmed
			}
		}

		tags := make([]string, 0, len(row.Tags))
		for _, tag := range row.Tags {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}

		var createdAt *time.Time
		if row.CreatedAt != nil {
			utc := row.CreatedAt.UTC()
			createdAt = &utc
		}

		prepared = append(prepared, PreparedRow{
			RowNumber: row.RowNumber,
			URL:       canonical,
			Title:     title,
			Comment:   comment,
			Tags:      tags,
			CreatedAt: createdAt,
		})
	}
	return prepared, nil
}

func newLink(userID uint, row PreparedRow) db.Link {
	link := db.Link{
		UserID:  userID,
		URL:     row.URL,
		URLKey:  URLKey(row.URL),
		Title:   row.Title,
		Comment: row.Comment,
	}
	if row.CreatedAt != nil {
		link.CreatedAt = *row.CreatedAt
	}
	return link
}
