package importer

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
)

// Column widths of links.url_key and tags.name_key.
const (
	MaxURLLength = 700
	MaxTagLength = 100
)

const (
	msgInvalidURL  = "invalid URL"
	msgInvalidDate = "invalid date"
	msgTagTooLong  = "tag is longer than 100 characters"

	tagSeparators = ",;|"
)

// NormalizeURL returns the canonical form of an absolute http(s) URL: scheme
// and host lowercased, default port dropped, empty path replaced by "/".
// Path, query and fragment are kept as written. URLs longer than
// MaxURLLength are rejected.
func NormalizeURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Opaque != "" || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Host)
	switch port := u.Port(); {
	case port == "":
		host = strings.TrimSuffix(host, ":")
	case u.Scheme == "http" && port == "80", u.Scheme == "https" && port == "443":
		host = strings.TrimSuffix(host, ":"+port)
	}
	u.Host = host
	if u.Hostname() == "" {
		return "", false
	}

	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	canonical := u.String()
	if utf8.RuneCountInString(canonical) > MaxURLLength {
		return "", false
	}
	return canonical, true
}

// URLKey is the equality key for canonical URLs.
func URLKey(canonical string) string {
	return strings.ToLower(strings.TrimSpace(canonical))
}

// TagKey is the equality key for tag names.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseTags splits a cell on , ; or | and drops blank pieces. Order and
// repeats are kept.
func ParseTags(value string) []string {
	pieces := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(tagSeparators, r)
	})

	tags := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if tag := strings.TrimSpace(piece); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeDate parses a free-form date. Values without a zone are read as UTC.
func NormalizeDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// PrepareRow converts a raw row into a PreparedRow. The URL is checked first,
// then tag lengths, then the date, so a row yields at most one error.
func PrepareRow(row RawRow, mapping FieldMapping) (PreparedRow, *RowError) {
	rawURL, _ := row.Value(mapping.URL)
	canonical, ok := NormalizeURL(rawURL)
	if !ok {
		return PreparedRow{}, &RowError{
			RowNumber: row.RowNumber,
			Column:    strings.TrimSpace(mapping.URL),
			Message:   msgInvalidURL,
		}
	}

	prepared := PreparedRow{
		RowNumber: row.RowNumber,
		URL:       canonical,
		Title:     canonical,
		Tags:      []string{},
	}

	if title, ok := row.Value(mapping.Title); ok {
		prepared.Title = title
	}
	if comment, ok := row.Value(mapping.Comment); ok {
		prepared.Comment = &comment
	}
	if tags, ok := row.Value(mapping.Tags); ok {
		prepared.Tags = ParseTags(tags)
		for _, tag := range prepared.Tags {
			if utf8.RuneCountInString(tag) > MaxTagLength {
				return PreparedRow{}, &RowError{
					RowNumber: row.RowNumber,
					Column:    strings.TrimSpace(mapping.Tags),
					Message:   msgTagTooLong,
				}
			}
		}
	}

	if rawDate, ok := row.Value(mapping.CreatedAt); ok {
		createdAt, valid := NormalizeDate(rawDate)
		if !valid {
			return PreparedRow{}, &RowError{
				RowNumber: row.RowNumber,
				Column:    strings.TrimSpace(mapping.CreatedAt),
				Message:   msgInvalidDate,
			}
		}
		prepared.CreatedAt = &createdAt
	}

	return prepared, nil
}

func prepareRows(rows []RawRow, mapping FieldMapping) ([]PreparedRow, []RowError) {
	prepared := make([]PreparedRow, 0, len(rows))
	errs := make([]RowError, 0)

	for _, row := range rows {
		result, rowErr := PrepareRow(row, mapping)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		prepared = append(prepared, result)
	}
	return prepared, errs
}
