package importer

import "strings"

var columnAliases = map[string][]string{
	"url":        {"url", "link", "href", "address"},
	"title":      {"title", "name", "label"},
	"comment":    {"comment", "comments", "description", "notes", "note"},
	"tags":       {"tags", "tag", "labels", "categories"},
	"created_at": {"created_at", "created", "date", "added_at", "added", "timestamp"},
}

// SuggestMapping guesses a FieldMapping from spreadsheet headers by common
// column names. When no URL-like header exists the first column is used.
func SuggestMapping(headers []string) FieldMapping {
	index := make(map[string]string, len(headers))
	for _, header := range headers {
		trimmed := strings.TrimSpace(header)
		if trimmed == "" {
			continue
		}
		key := strings.ReplaceAll(strings.ToLower(trimmed), " ", "_")
		if _, ok := index[key]; !ok {
			index[key] = trimmed
		}
	}

	pick := func(field string) string {
		for _, alias := range columnAliases[field] {
			if header, ok := index[alias]; ok {
				return header
			}
		}
		return ""
	}

	mapping := FieldMapping{
		URL:       pick("url"),
		Title:     pick("title"),
		Comment:   pick("comment"),
		Tags:      pick("tags"),
		CreatedAt: pick("created_at"),
	}
	if mapping.URL == "" {
		for _, header := range headers {
			if trimmed := strings.TrimSpace(header); trimmed != "" {
				mapping.URL = trimmed
				break
			}
		}
	}
	return mapping
}
