package textutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatIDKnownCategories(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]{2}-\d{6}$`)

	for _, category := range KnownCategories() {
		id := FormatID(category, 123)
		assert.Regexp(t, pattern, id, "formatted id for category %q", category)
	}
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		name     string
		category string
		counter  int
		expected string
	}{
		{
			name:     "ao dai",
			category: "Áo Dài",
			counter:  831,
			expected: "AD-000831",
		},
		{
			name:     "vest",
			category: "Vest",
			counter:  1,
			expected: "VE-000001",
		},
		{
			name:     "dam da hoi uses table code",
			category: "Đầm Dạ Hội",
			counter:  42,
			expected: "DH-000042",
		},
		{
			name:     "unknown two-word category derives initials",
			category: "Khăn Đóng",
			counter:  7,
			expected: "KD-000007",
		},
		{
			name:     "unknown three-word category truncates to two letters",
			category: "Nón Lá Huế",
			counter:  5,
			expected: "NL-000005",
		},
		{
			name:     "unknown single-word category yields one letter",
			category: "Guốc",
			counter:  9,
			expected: "G-000009",
		},
		{
			name:     "unknown category with đ folds to d",
			category: "Đèn Lồng",
			counter:  3,
			expected: "DL-000003",
		},
		{
			name:     "large counter not truncated",
			category: "Vest",
			counter:  1234567,
			expected: "VE-1234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatID(tt.category, tt.counter))
		})
	}
}

func TestFormatIDDeterministic(t *testing.T) {
	first := FormatID("Trang Phục Dân Tộc", 55)
	second := FormatID("Trang Phục Dân Tộc", 55)
	assert.Equal(t, first, second)
}
