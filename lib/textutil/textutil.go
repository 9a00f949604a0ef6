package textutil

import (
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/width"
)

// MatchThreshold is the minimum Jaro-Winkler similarity for two normalized
// names to be considered the same.
const MatchThreshold = 0.85

// NormalizeName folds full-width characters, lowercases and drops every
// whitespace character, including the ideographic space.
func NormalizeName(name string) string {
	name = width.Fold.String(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), "")
}

// MatchName reports whether query names the same thing as name, either as a
// substring or by similarity.
func MatchName(name, query string) bool {
	name = NormalizeName(name)
	query = NormalizeName(query)
	if query == "" {
		return false
	}
	if strings.Contains(name, query) {
		return true
	}
	return matchr.JaroWinkler(name, query, false) >= MatchThreshold
}
