package storage

import (
	"math"
	"regexp"
	"sort"
)

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when either is a
// zero vector. Both must have the same length.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topMatches sorts matches by descending score and keeps at most limit of them.
func topMatches(matches []Match, limit int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdentifier reports whether name can be used unquoted as a table or class name.
func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
