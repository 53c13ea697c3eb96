// Package names provides the pure string-similarity primitives the fighter
// matcher and the reconciliation scorer are built on. Nothing here touches
// storage.
package names

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var jaroWinkler = metrics.NewJaroWinkler()

// Normalize lowercases, trims, and collapses internal whitespace.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), " ")
}

// DeriveFullName joins the name parts, tolerating single-name fighters.
func DeriveFullName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

// Equal reports case-insensitive equality after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b) && Normalize(a) != ""
}

// JaroWinklerSimilarity is a case-insensitive Jaro-Winkler score in [0,1].
func JaroWinklerSimilarity(a, b string) float64 {
	return strutil.Similarity(Normalize(a), Normalize(b), jaroWinkler)
}

// CharacterJaccard compares the rune sets of both strings. It is tolerant of
// transpositions and duplicated letters, which makes it useful for
// transliterated names.
func CharacterJaccard(a, b string) float64 {
	setA := runeSet(Normalize(a))
	setB := runeSet(Normalize(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// TokenSortRatio compares whitespace tokens independent of word order, so
// "Jones Jon" still matches "Jon Jones".
func TokenSortRatio(a, b string) float64 {
	return strutil.Similarity(sortedTokens(a), sortedTokens(b), jaroWinkler)
}

// Similarity is the composite fuzzy score in [0,1]: the best of
// Jaro-Winkler, character Jaccard, token-sort, and substring containment.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	best := strutil.Similarity(na, nb, jaroWinkler)
	if score := CharacterJaccard(na, nb); score > best {
		best = score
	}
	if score := TokenSortRatio(na, nb); score > best {
		best = score
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		if containmentScore > best {
			best = containmentScore
		}
	}
	return best
}

// containmentScore is the floor awarded when one normalized name contains
// the other, e.g. "gustafsson" inside "alexander gustafsson".
const containmentScore = 0.8

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if r == ' ' {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

func sortedTokens(s string) string {
	tokens := strings.Fields(Normalize(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
