package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sykell/bookmarks/internal/logger"
)

// Preview classifies every row as ready, duplicate or error without writing
// anything.
func (s *Service) Preview(ctx context.Context, userID uint, req PreviewRequest) (*PreviewResult, error) {
	if err := s.validateRequest(req, len(req.Rows)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Mapping.URL) == "" {
		return nil, fmt.Errorf("%w: url column is required", ErrInvalidRequest)
	}

	prepared, rowErrors := prepareRows(req.Rows, req.Mapping)

	unique, repeated := PartitionByURL(prepared)
	duplicates := make([]DuplicateRow, 0, len(repeated))
	for _, row := range repeated {
		duplicates = append(duplicates, DuplicateRow{
			RowNumber: row.RowNumber,
			URL:       row.URL,
			Reason:    ReasonDuplicate,
		})
	}

	existing, err := MatchExisting(ctx, s.store, userID, urlsOf(unique))
	if err != nil {
		return nil, err
	}

	ready := make([]PreparedRow, 0, len(unique))
	for _, row := range unique {
		if _, ok := existing[URLKey(row.URL)]; ok {
			duplicates = append(duplicates, DuplicateRow{
				RowNumber: row.RowNumber,
				URL:       row.URL,
				Reason:    ReasonExisting,
			})
			continue
		}
		ready = append(ready, row)
	}

	result := &PreviewResult{
		Rows: PreviewRows{
			Ready:      ready,
			Duplicates: duplicates,
			Errors:     rowErrors,
		},
		Summary: PreviewSummary{
			Total:      len(req.Rows),
			Ready:      len(ready),
			Duplicates: len(duplicates),
			Errors:     len(rowErrors),
		},
	}

	s.log.Debug("Built import preview",
		logger.Uint("user_id", userID),
		logger.Int("total", result.Summary.Total),
		logger.Int("ready", result.Summary.Ready),
		logger.Int("duplicates", result.Summary.Duplicates),
		logger.Int("errors", result.Summary.Errors),
	)
	return result, nil
}
