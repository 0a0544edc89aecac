package entity

import (
	"regexp"
	"strings"
)

// StockRecord is one deduplicated stock row produced by ingestion. The short
// JSON keys match the historical persisted shape, so legacy tab payloads
// unmarshal without conversion. Records are immutable after ingestion.
type StockRecord struct {
	Code     string   `json:"c"`
	Name     string   `json:"n,omitempty"`
	Price    string   `json:"p,omitempty"`
	Concept  string   `json:"i,omitempty"`
	Agencies []string `json:"a,omitempty"`
}

// ConceptTags returns the concept string split into individual tags. Concept
// is stored raw and split on demand; this is the one place the separator
// rules live.
func (s StockRecord) ConceptTags() []string {
	return SplitTags(s.Concept)
}

var (
	codePattern          = regexp.MustCompile(`(\d{6})`)
	favoriteInputPattern = regexp.MustCompile(`(?i)^(?:sz|sh|bj)?(\d{6})$`)
	tagSeparatorPattern  = regexp.MustCompile(`;|；`)
)

// ExtractCode pulls the first 6-digit numeric substring out of a raw cell
// value. Returns false when the cell carries no usable code, which is how
// blank and footer rows in heterogeneous exports are skipped.
func ExtractCode(raw string) (string, bool) {
	m := codePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeFavoriteInput validates a user-entered stock code, tolerating an
// sz/sh/bj prefix in any case, and returns the bare 6-digit code.
func NormalizeFavoriteInput(raw string) (string, bool) {
	m := favoriteInputPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SplitTags splits a multi-value cell on ASCII or fullwidth semicolons,
// trimming whitespace and dropping empty parts. Both the ingestion merge and
// the filter/facet paths go through here so the separator is defined once.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := tagSeparatorPattern.Split(raw, -1)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
