package vectorstore

import (
	"math"
	"sort"

	"docqa/internal/domain"
)

// Storage persists one vector per file and supports similarity search.
type Storage = domain.VectorStore

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 5

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector
// or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts matches by descending score (ties by file name) and truncates to k.
func TopK(matches []domain.Match, k int) []domain.Match {
	if k <= 0 {
		k = DefaultTopK
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].FileName < matches[j].FileName
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
