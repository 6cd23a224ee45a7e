package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoResultCount = errors.New("no result count on page")

	cashPattern  = regexp.MustCompile(`\$|dollar|usd`)
	digitPattern = regexp.MustCompile(`\d[\d,.\s]*`)
)

// ParseResultCount reads the total number of search results from the
// counter text, e.g. "1,234" or "57 results".
func ParseResultCount(text string) (int, error) {
	match := digitPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoResultCount, text)
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid result count %q: %w", text, err)
	}
	return n, nil
}

// searchText is the lower-cased "title description" the metrics run on.
func searchText(title, description string) string {
	return strings.ToLower(title) + " " + strings.ToLower(description)
}

// PhraseCount counts non-overlapping, case-insensitive occurrences of phrase
// in the title and description.
func PhraseCount(title, description, phrase string) int {
	if phrase == "" {
		return 0
	}
	return strings.Count(searchText(title, description), strings.ToLower(phrase))
}

// MentionsCash reports whether the title or description mentions money:
// "$", "dollar" or "usd", case-insensitively.
func MentionsCash(title, description string) bool {
	return cashPattern.MatchString(searchText(title, description))
}
