package alerr

import (
	"fmt"
	"strings"
)

// maxSuggestDistance bounds the edit distance of a suggestion.
const maxSuggestDistance = 3

// levenshteinDistance computes the edit distance between two strings,
// counting runes.
func levenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 || len(b) == 0 {
		return max(len(a), len(b))
	}

	// Two rows instead of the full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// FindClosestMatch returns the option closest to input, ignoring case, if it
// is within an edit distance of 3. The first option wins ties.
func FindClosestMatch(input string, options []string) (string, bool) {
	needle := strings.ToLower(input)
	best, bestDist := "", maxSuggestDistance+1
	for _, opt := range options {
		if d := levenshteinDistance(needle, strings.ToLower(opt)); d < bestDist {
			best, bestDist = opt, d
		}
	}
	return best, bestDist <= maxSuggestDistance
}

// SuggestSimilar returns "did you mean 'X'?" for the closest option, or "".
func SuggestSimilar(input string, options []string) string {
	if match, ok := FindClosestMatch(input, options); ok {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return ""
}
