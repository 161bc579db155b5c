package textutil

import (
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

	// Vietnamese and English filler words that carry no search signal.
	stopwords = map[string]struct{}{
		"cho": {}, "thue": {}, "thuê": {}, "muon": {}, "muốn": {}, "tim": {}, "tìm": {},
		"cai": {}, "cái": {}, "chiec": {}, "chiếc": {}, "mot": {}, "một": {}, "cua": {}, "của": {},
		"va": {}, "và": {}, "la": {}, "là": {}, "co": {}, "có": {}, "khong": {}, "không": {},
		"a": {}, "an": {}, "and": {}, "the": {}, "for": {}, "with": {}, "need": {},
		"want": {}, "looking": {}, "rent": {}, "please": {},
	}
)

// ExtractMeaningfulTokens tokenizes text, removes stopwords, and
// deduplicates tokens while preserving order.
func ExtractMeaningfulTokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lower := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lower, -1)

	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) == 1 && !TokenHasDigit(token) {
			continue
		}
		if _, isStopword := stopwords[token]; isStopword {
			continue
		}
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}

// TokenHasDigit reports whether the token contains at least one numeric digit.
func TokenHasDigit(token string) bool {
	for _, r := range token {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// ContainsFold reports whether s contains substr ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// WordCount counts whitespace-separated words in the query text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
