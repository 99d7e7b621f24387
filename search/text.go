package search

import (
	"strings"
	"unicode"
)

// Stop words to filter out when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "or": true, "what": true, "how": true,
}

// keywords returns the distinct lowercased words of text, without
// surrounding punctuation and stop words.
func keywords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if cleaned != "" && !stopWords[cleaned] {
			words[cleaned] = struct{}{}
		}
	}
	return words
}

// containsAllQueryWords reports whether every keyword of query appears in chunk.
func containsAllQueryWords(chunk, query string) bool {
	queryWords := keywords(query)
	if len(queryWords) == 0 {
		return false
	}

	chunkWords := keywords(chunk)
	for w := range queryWords {
		if _, ok := chunkWords[w]; !ok {
			return false
		}
	}
	return true
}
