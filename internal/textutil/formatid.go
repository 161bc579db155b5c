package textutil

import (
	"fmt"
	"strings"
)

// categoryCodes maps each known rental category to its two-letter product
// code. The same table is consulted at index time and at read time; adding
// a category here without reindexing makes ID search miss existing items.
var categoryCodes = map[string]string{
	"Áo Dài":      "AD",
	"Áo Cưới":     "AC",
	"Vest":        "VE",
	"Váy Cưới":    "VC",
	"Đầm Dạ Hội":  "DH",
	"Áo Khỏa":     "AK",
	"Trang Phục":  "TP",
	"Phụ Kiện":    "PK",
	"Giày":        "GI",
	"Áo Bà Ba":    "BB",
	"Đồ Truyền Thống": "TT",
}

// CategoryCode returns the two-letter code for a category. Unknown
// categories derive a code from the first letter of each word with
// diacritics stripped, uppercased and truncated to two characters. A
// single-word category yields a one-letter code; that is accepted rather
// than padded.
func CategoryCode(category string) string {
	if code, ok := categoryCodes[category]; ok {
		return code
	}

	var initials strings.Builder
	for _, word := range strings.Fields(category) {
		runes := []rune(word)
		if len(runes) == 0 {
			continue
		}
		initials.WriteRune(runes[0])
	}

	code := strings.ToUpper(Normalize(initials.String()))
	if len(code) > 2 {
		code = code[:2]
	}
	return code
}

// FormatID derives the human-readable product code for an item, e.g.
// ("Áo Dài", 123) -> "AD-000123". Deterministic for a given category and
// counter so the index-time and read-time derivations always agree.
func FormatID(category string, counter int) string {
	return fmt.Sprintf("%s-%06d", CategoryCode(category), counter)
}

// KnownCategories lists the categories present in the static code table.
func KnownCategories() []string {
	categories := make([]string, 0, len(categoryCodes))
	for category := range categoryCodes {
		categories = append(categories, category)
	}
	return categories
}
