package internal

import (
	"fmt"
	"math"
)

// Metric selects how vector similarity is measured for a collection.
type Metric string

const (
	// MetricCosine scores by cosine similarity; higher is better.
	MetricCosine Metric = "cosine"
	// MetricL2 scores by Euclidean distance; lower is better.
	MetricL2 Metric = "l2"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricL2:
		return Metric(s), nil
	case "":
		return MetricCosine, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Score computes the similarity between query and candidate in the
// metric's natural units (cosine similarity, or L2 distance).
func (m Metric) Score(query, candidate []float32) (float64, error) {
	switch m {
	case MetricL2:
		return L2Distance(query, candidate)
	default:
		return CosineSimilarity(query, candidate)
	}
}

// Rank converts a natural-unit score into a uniform better-first rank
// (higher rank = better match), so result ordering never branches on
// the metric.
func (m Metric) Rank(score float64) float64 {
	if m == MetricL2 {
		return -score
	}
	return score
}

// WithinThreshold reports whether a natural-unit score passes the
// caller's threshold: a minimum similarity for cosine, a maximum
// distance for L2.
func (m Metric) WithinThreshold(score, threshold float64) bool {
	if m == MetricL2 {
		return score <= threshold
	}
	return score >= threshold
}

// CosineSimilarity returns the normalized dot product of a and b. It
// errors on length mismatch or when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("cosine similarity on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("cosine similarity with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// l2Normalize scales v to unit length in place and returns it. A
// zero-magnitude vector is returned unchanged.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * norm)
	}
	return v
}
