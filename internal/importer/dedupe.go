package importer

import (
	"context"
	"fmt"
)

// PartitionByURL walks rows left to right. The first row for each URL key is
// unique; later rows with the same key are duplicates. Order is preserved.
func PartitionByURL(rows []PreparedRow) (unique, duplicates []PreparedRow) {
	seen := make(map[string]struct{}, len(rows))
	unique = make([]PreparedRow, 0, len(rows))
	duplicates = make([]PreparedRow, 0)

	for _, row := range rows {
		key := URLKey(row.URL)
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, row)
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, row)
	}
	return unique, duplicates
}

// MatchExisting returns the URL keys among urls that the user already stored.
// All urls go to the store in a single lookup; an empty list never queries.
func MatchExisting(ctx context.Context, lookup URLLookup, userID uint, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})

	keys := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		key := URLKey(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return existing, nil
	}

	found, err := lookup.ExistingURLKeys(ctx, userID, keys)
	if err != nil {
		return nil, fmt.Errorf("check existing links: %w", err)
	}
	for _, key := range found {
		existing[URLKey(key)] = struct{}{}
	}
	return existing, nil
}

func urlsOf(rows []PreparedRow) []string {
	urls := make([]string, len(rows))
	for i, row := range rows {
		urls[i] = row.URL
	}
	return urls
}
