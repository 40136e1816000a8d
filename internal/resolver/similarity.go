package resolver

import "strings"

// similarChars counts matching characters between a and b: the longest
// common substring, plus recursively the matches in the prefixes and the
// suffixes around it.
func similarChars(a, b string) int {
	posA, posB, max := longestCommon(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	sum += similarChars(a[:posA], b[:posB])
	sum += similarChars(a[posA+max:], b[posB+max:])
	return sum
}

func longestCommon(a, b string) (posA, posB, max int) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > max {
				posA, posB, max = i, j, k
			}
		}
	}
	return posA, posB, max
}

// percent scores the character overlap of a and b on a 0-100 scale.
func percent(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	return float64(similarChars(a, b)) * 200.0 / float64(len(a)+len(b))
}

// Similarity is the bidirectional string similarity score on a 0-200
// scale: the sum of the overlap percentage computed in both argument
// orders. 200 means a perfect match in both directions.
func Similarity(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	return percent(a, b) + percent(b, a)
}
