package memory

import (
	"math"
	"sort"
	"time"
)

// DefaultHalfLife is the age at which a memory's weight halves.
const DefaultHalfLife = 7 * 24 * time.Hour

// DecayWeight returns the exponential decay weight for a record of the given
// age. Weight is 1.0 at age zero and halves every halfLife. Non-positive ages
// clamp to 1.0 and a non-positive halfLife disables decay.
func DecayWeight(age, halfLife time.Duration) float64 {
	if age <= 0 || halfLife <= 0 {
		return 1.0
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// rankBySimilarity scores records against a query and returns them ordered by
// decayed similarity, highest first. Records below MinSimilarity are dropped
// before decay is applied.
func rankBySimilarity(records []Record, q SimilarityQuery, halfLife time.Duration) []ScoredRecord {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	scored := make([]ScoredRecord, 0, len(records))
	for _, rec := range records {
		sim := CosineSimilarity(q.Embedding, rec.Embedding)
		if sim < q.MinSimilarity {
			continue
		}
		scored = append(scored, ScoredRecord{
			Record:     rec,
			Similarity: sim,
			Score:      sim * DecayWeight(now.Sub(rec.CreatedAt), halfLife),
		})
	}
	sortScoredDesc(scored)
	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	return scored
}

// sortScoredDesc orders by decayed score, highest first; equal scores
// tie-break by recency, newest first.
func sortScoredDesc(scored []ScoredRecord) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.CreatedAt.After(scored[j].Record.CreatedAt)
	})
}

// CosineSimilarity computes the cosine similarity of two vectors. Mismatched
// lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
