package categorization

import "strings"

// CategoryUnknown absorbs sections and labels that fit no taxonomy entry.
const CategoryUnknown = "unknown"

// taxonomy is the closed category set for section labels. Labels outside
// it collapse to CategoryUnknown, they are never dropped.
var taxonomy = []string{
	"rules",
	"lore",
	"characters",
	"items",
	"spells",
	"adventures",
	"tables",
	CategoryUnknown,
}

// Taxonomy returns the closed category set in canonical order.
func Taxonomy() []string {
	out := make([]string, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// Normalize lowercases and trims a label category, reporting whether the
// result is a taxonomy member.
func Normalize(category string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(category))
	for _, entry := range taxonomy {
		if normalized == entry {
			return normalized, true
		}
	}
	return normalized, false
}
