package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/logger"
)

func newTestService(store Store, opts Options) *Service {
	return NewService(store, logger.NewNop(), opts)
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	mapping := FieldMapping{URL: "url", Title: "title", Tags: "tags", CreatedAt: "created_at"}

	t.Run("intra-batch duplicates", func(t *testing.T) {
		svc := newTestService(newFakeStore(), Options{})

		result, err := svc.Preview(ctx, 1, PreviewRequest{
			Rows: []RawRow{
				rawRow(2, map[string]string{"url": "https://a.com"}),
				rawRow(3, map[string]string{"url": "https://a.com/"}),
			},
			Mapping: mapping,
		})
		require.NoError(t, err)

		assert.Equal(t, PreviewSummary{Total: 2, Ready: 1, Duplicates: 1, Errors: 0}, result.Summary)
		require.Len(t, result.Rows.Duplicates, 1)
		assert.Equal(t, DuplicateRow{RowNumber: 3, URL: "https://a.com/", Reason: ReasonDuplicate}, result.Rows.Duplicates[0])
		assert.Equal(t, 2, result.Rows.Ready[0].RowNumber)
	})

	t.Run("invalid url", func(t *testing.T) {
		svc := newTestService(newFakeStore(), Options{})

		result, err := svc.Preview(ctx, 1, PreviewRequest{
			Rows:    []RawRow{rawRow(2, map[string]string{"url": "not a url"})},
			Mapping: mapping,
		})
		require.NoError(t, err)

		assert.Equal(t, PreviewSummary{Total: 1, Errors: 1}, result.Summary)
		assert.Contains(t, result.Rows.Errors[0].Message, "invalid URL")
		assert.Empty(t, result.Rows.Ready)
	})

	t.Run("existing link", func(t *testing.T) {
		store := newFakeStore()
		store.seedLink(1, "https://example.com/")
		svc := newTestService(store, Options{})

		result, err := svc.Preview(ctx, 1, PreviewRequest{
			Rows:    []RawRow{rawRow(2, map[string]string{"url": "https://example.com"})},
			Mapping: mapping,
		})
		require.NoError(t, err)

		assert.Equal(t, PreviewSummary{Total: 1, Duplicates: 1}, result.Summary)
		assert.Equal(t, ReasonExisting, result.Rows.Duplicates[0].Reason)
	})

	t.Run("other users links are not duplicates", func(t *testing.T) {
		store := newFakeStore()
		store.seedLink(2, "https://example.com/")
		svc := newTestService(store, Options{})

		result, err := svc.Preview(ctx, 1, PreviewRequest{
			Rows:    []RawRow{rawRow(2, map[string]string{"url": "https://example.com"})},
			Mapping: mapping,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Summary.Ready)
	})

	t.Run("every row lands in exactly one bucket", func(t *testing.T) {
		store := newFakeStore()
		store.seedLink(1, "https://known.com/")
		svc := newTestService(store, Options{})

		rows := []RawRow{
			rawRow(2, map[string]string{"url": "https://a.com", "tags": "x,y"}),
			rawRow(3, map[string]string{"url": "https://known.com"}),
			rawRow(4, map[string]string{"url": "bad"}),
			rawRow(5, map[string]string{"url": "https://a.com", "created_at": "2024-01-05"}),
			rawRow(6, map[string]string{"url": "https://b.com", "created_at": "nope"}),
			rawRow(7, map[string]string{"url": "https://b.com"}),
		}

		result, err := svc.Preview(ctx, 1, PreviewRequest{Rows: rows, Mapping: mapping})
		require.NoError(t, err)

		s := result.Summary
		assert.Equal(t, len(rows), s.Ready+s.Duplicates+s.Errors)
		assert.Equal(t, PreviewSummary{Total: 6, Ready: 2, Duplicates: 2, Errors: 2}, s)
		assert.Equal(t, 1, store.lookupCalls)
	})

	t.Run("lookup failure is returned", func(t *testing.T) {
		store := newFakeStore()
		store.lookupErr = errStoreDown
		svc := newTestService(store, Options{})

		_, err := svc.Preview(ctx, 1, PreviewRequest{
			Rows:    []RawRow{rawRow(2, map[string]string{"url": "https://a.com"})},
			Mapping: mapping,
		})
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("all rows invalid skips lookup", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, Options{})

		_, err := svc.Preview(ctx, 1, PreviewRequest{
			Rows:    []RawRow{rawRow(2, map[string]string{"url": "bad"})},
			Mapping: mapping,
		})
		require.NoError(t, err)
		assert.Zero(t, store.lookupCalls)
	})
}

func TestPreviewRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeStore(), Options{MaxRows: 2})
	row := rawRow(2, map[string]string{"url": "https://a.com"})

	tests := []struct {
		name string
		req  PreviewRequest
	}{
		{"no rows", PreviewRequest{Mapping: FieldMapping{URL: "url"}}},
		{"no url mapping", PreviewRequest{Rows: []RawRow{row}}},
		{"blank url mapping", PreviewRequest{Rows: []RawRow{row}, Mapping: FieldMapping{URL: "  "}}},
		{"bad row number", PreviewRequest{Rows: []RawRow{{RowNumber: 0}}, Mapping: FieldMapping{URL: "url"}}},
		{"too many rows", PreviewRequest{Rows: []RawRow{row, row, row}, Mapping: FieldMapping{URL: "url"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Preview(ctx, 1, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestPreviewReadyRowsCommitCleanly(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, Options{})

	result, err := svc.Preview(ctx, 1, PreviewRequest{
		Rows: []RawRow{
			rawRow(2, map[string]string{"url": "https://a.com", "tags": "go"}),
			rawRow(3, map[string]string{"url": "https://b.com", "tags": strings.Repeat("x", MaxTagLength+1)}),
			rawRow(4, map[string]string{"url": "https://c.com/" + strings.Repeat("p", MaxURLLength)}),
		},
		Mapping: FieldMapping{URL: "url", Tags: "tags"},
	})
	require.NoError(t, err)
	assert.Equal(t, PreviewSummary{Total: 3, Ready: 1, Errors: 2}, result.Summary)

	rows := make([]CommitRow, 0, len(result.Rows.Ready))
	for _, r := range result.Rows.Ready {
		rows = append(rows, CommitRow{RowNumber: r.RowNumber, URL: r.URL, Title: r.Title, Comment: r.Comment, Tags: r.Tags, CreatedAt: r.CreatedAt})
	}

	committed, err := svc.Commit(ctx, 1, CommitRequest{Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, CommitSummary{Total: 1, Imported: 1, Status: db.ImportCompleted}, committed.Summary)
}
