package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileTags(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing tags once per key", func(t *testing.T) {
		store := newFakeStore()

		ids, err := ReconcileTags(ctx, store, 1, []string{"news", "Tech", " tech ", "NEWS"})
		require.NoError(t, err)

		assert.Len(t, ids, 2)
		assert.Contains(t, ids, "news")
		assert.Contains(t, ids, "tech")
		assert.NotEqual(t, ids["news"], ids["tech"])

		tags := store.tagsFor(1)
		require.Len(t, tags, 2)
		assert.Equal(t, "news", tags[0].Name)
		assert.Equal(t, "Tech", tags[1].Name)
		assert.Equal(t, "tech", tags[1].NameKey)
	})

	t.Run("reuses existing tags", func(t *testing.T) {
		store := newFakeStore()
		existing := store.seedTag(1, "Design")

		ids, err := ReconcileTags(ctx, store, 1, []string{"design"})
		require.NoError(t, err)
		assert.Equal(t, map[string]uint{"design": existing}, ids)
		assert.Zero(t, store.createTags)
	})

	t.Run("does not share tags across users", func(t *testing.T) {
		store := newFakeStore()
		other := store.seedTag(2, "design")

		ids, err := ReconcileTags(ctx, store, 1, []string{"design"})
		require.NoError(t, err)
		assert.NotEqual(t, other, ids["design"])
		assert.Len(t, store.tagsFor(1), 1)
	})

	t.Run("no names means no queries", func(t *testing.T) {
		store := newFakeStore()
		store.findTagsErr = errStoreDown

		ids, err := ReconcileTags(ctx, store, 1, []string{" ", ""})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		store := newFakeStore()
		store.findTagsErr = errStoreDown

		_, err := ReconcileTags(ctx, store, 1, []string{"go"})
		assert.ErrorIs(t, err, errStoreDown)
	})
}
