package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sykell/bookmarks/internal/db"
)

// ReconcileTags resolves tag names to ids for a user, creating the missing
// ones. The result is keyed by TagKey, so "Design" and "design" share an id.
func ReconcileTags(ctx context.Context, store TagStore, userID uint, names []string) (map[string]uint, error) {
	ids := make(map[string]uint)

	keys, display := uniqueTagNames(names)
	if len(keys) == 0 {
		return ids, nil
	}

	existing, err := store.FindTags(ctx, userID, keys)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	for _, tag := range existing {
		ids[TagKey(tag.Name)] = tag.ID
	}

	var missing []db.Tag
	var missingKeys []string
	for _, key := range keys {
		if _, ok := ids[key]; ok {
			continue
		}
		missingKeys = append(missingKeys, key)
		missing = append(missing, db.Tag{
			UserID:  userID,
			Name:    display[key],
			NameKey: key,
		})
	}
	if len(missing) == 0 {
		return ids, nil
	}

	// A concurrent import may create the same names; conflicts are skipped
	// and the rows re-read.
	if err := store.CreateTags(ctx, missing); err != nil {
		return nil, fmt.Errorf("create tags: %w", err)
	}
	created, err := store.FindTags(ctx, userID, missingKeys)
	if err != nil {
		return nil, fmt.Errorf("reload tags: %w", err)
	}
	for _, tag := range created {
		ids[TagKey(tag.Name)] = tag.ID
	}

	return ids, nil
}

// uniqueTagNames returns tag keys in first-seen order and the first spelling of each.
func uniqueTagNames(names []string) ([]string, map[string]string) {
	keys := make([]string, 0, len(names))
	display := make(map[string]string, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		key := TagKey(trimmed)
		if key == "" {
			continue
		}
		if _, ok := display[key]; ok {
			continue
		}
		display[key] = trimmed
		keys = append(keys, key)
	}
	return keys, display
}

func collectTagNames(rows []PreparedRow) []string {
	var names []string
	for _, row := range rows {
		names = append(names, row.Tags...)
	}
	return names
}
