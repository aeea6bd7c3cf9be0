// Package importer implements bulk bookmark import: row normalization,
// duplicate detection, preview classification and the commit path.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sykell/bookmarks/internal/logger"
)

const (
	DefaultBatchSize = 500
	DefaultMaxRows   = 5000
	DefaultSource    = "csv"
)

// Options configures a Service. Zero values fall back to the defaults.
type Options struct {
	BatchSize     int
	MaxRows       int
	DefaultSource string
	Notifier      LinkNotifier
}

// Service runs import previews and commits against a Store.
type Service struct {
	store         Store
	log           logger.Logger
	notifier      LinkNotifier
	batchSize     int
	maxRows       int
	defaultSource string
	validate      *validator.Validate
}

// NewService creates a new import service
func NewService(store Store, log logger.Logger, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if strings.TrimSpace(opts.DefaultSource) == "" {
		opts.DefaultSource = DefaultSource
	}

	return &Service{
		store:         store,
		log:           log.With(logger.String("component", "importer")),
		notifier:      opts.Notifier,
		batchSize:     opts.BatchSize,
		maxRows:       opts.MaxRows,
		defaultSource: opts.DefaultSource,
		validate:      validator.New(),
	}
}

func (s *Service) validateRequest(req any, rows int) error {
	if rows > s.maxRows {
		return fmt.Errorf("%w: %d rows exceeds the limit of %d", ErrInvalidRequest, rows, s.maxRows)
	}
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
