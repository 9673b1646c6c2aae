// Package match scores how closely two object names agree, ignoring case,
// accents, punctuation and word order.
package match

import (
	"sort"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Exact is the score of two non-empty names that normalize identically.
const Exact = 100

var folder = cases.Fold()

// Normalize folds s to lower case, strips diacritics, replaces everything
// that is not a letter or digit with a space and sorts the resulting tokens.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := folder.String(stripped)

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio returns a similarity score in [0, 100] between a and b
// after normalization. A name that normalizes to nothing scores 0 against
// everything, itself included.
func TokenSortRatio(a, b string) int {
	return fuzzy.TokenSortRatio(Normalize(a), Normalize(b))
}

// Candidate is a scored entry of a candidate list.
type Candidate struct {
	Index int
	Name  string
	Score int
}

// Best returns the index and score of the candidate closest to query. Ties
// go to the lowest index. It returns -1 and 0 when candidates is empty.
func Best(query string, candidates []string) (int, int) {
	q := Normalize(query)
	best, bestScore := -1, -1
	for i, c := range candidates {
		s := fuzzy.TokenSortRatio(q, Normalize(c))
		if s > bestScore {
			best, bestScore = i, s
			if s == Exact {
				break
			}
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

// Top returns at most n candidates ordered by descending score, ties in
// input order.
func Top(query string, candidates []string, n int) []Candidate {
	q := Normalize(query)
	scored := make([]Candidate, len(candidates))
	for i, c := range candidates {
		scored[i] = Candidate{Index: i, Name: c, Score: fuzzy.TokenSortRatio(q, Normalize(c))}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if n >= 0 && n < len(scored) {
		scored = scored[:n]
	}
	return scored
}
