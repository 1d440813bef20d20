package textnorm

import "strings"

// FuzzyThreshold is the exclusive lower bound for a fuzzy catalog match
const FuzzyThreshold = 0.6

// Similarity returns LCS(a,b) / max(len(a), len(b)) over lowercase runes.
// It is symmetric, deterministic and in [0,1]; two empty strings score 1.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return float64(lcsLength(ra, rb)) / float64(longest)
}

// lcsLength computes the longest common subsequence with two rolling rows
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
