package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sykell/bookmarks/internal/config"
	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
)

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	username   string
	source     string
	format     string
	columns    importer.FieldMapping
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	var r *runner

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Import bookmarks from CSV or XLSX files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			if err := opts.validate(); err != nil {
				return err
			}
			built, err := newRunner(opts, cmd)
			if err != nil {
				return err
			}
			r = built
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if r != nil {
				return r.close()
			}
			return nil
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flags.StringVarP(&opts.username, "user", "u", "", "owner of the imported links (required)")
	flags.StringVar(&opts.source, "source", "", `import source label (default "<format>:<file name>")`)
	flags.StringVarP(&opts.format, "output", "o", outputJSON, "output format: json or table")
	flags.StringVar(&opts.columns.URL, "url-column", "", "column holding the URL")
	flags.StringVar(&opts.columns.Title, "title-column", "", "column holding the title")
	flags.StringVar(&opts.columns.Comment, "comment-column", "", "column holding the comment")
	flags.StringVar(&opts.columns.Tags, "tags-column", "", "column holding comma separated tags")
	flags.StringVar(&opts.columns.CreatedAt, "created-at-column", "", "column holding the creation date")

	root.AddCommand(
		&cobra.Command{
			Use:   "preview <file>",
			Short: "Classify rows into ready, duplicate and invalid without writing",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.preview(cmd.Context(), opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "commit <file>",
			Short: "Import every row the preview marks as ready",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.commit(cmd.Context(), opts, args[0])
			},
		},
	)

	return root
}

func (o *options) validate() error {
	o.username = strings.TrimSpace(o.username)
	if o.username == "" {
		return errors.New("--user is required")
	}
	switch o.format {
	case outputJSON, outputTable:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}
}

// newRunner loads configuration and opens the database. Title enrichment is
// left to the HTTP service.
func newRunner(opts *options, cmd *cobra.Command) (*runner, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Debug: cfg.Logging.Debug})
	if err != nil {
		return nil, err
	}

	conn, err := db.InitDB(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	svc := importer.NewService(service.NewImportStore(conn), log, importer.Options{
		BatchSize:     cfg.Import.BatchSize,
		MaxRows:       cfg.Import.MaxRows,
		DefaultSource: cfg.Import.DefaultSource,
	})

	return &runner{
		db:       conn,
		importer: svc,
		log:      log,
		out:      cmd.OutOrStdout(),
		format:   opts.format,
	}, nil
}
