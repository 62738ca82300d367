package search

import "strings"

// Stop words to filter out when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "our": true, "we": true, "your": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}*#_`"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// MatchedTerms returns the distinct query words, stop words excluded, that
// appear verbatim in document, in query order.
func MatchedTerms(document, query string) []string {
	docWords := make(map[string]bool)
	for _, word := range tokenizeAndFilter(document) {
		docWords[word] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, word := range tokenizeAndFilter(query) {
		if docWords[word] && !seen[word] {
			seen[word] = true
			matched = append(matched, word)
		}
	}
	return matched
}

// normalizeQuery collapses whitespace so trivially different spellings of
// one query share a cache entry.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
