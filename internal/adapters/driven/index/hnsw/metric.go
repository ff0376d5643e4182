package hnsw

import "math"

// Metric selects the similarity measure the index is built for. It must
// match the metric the embedding model was calibrated for; a mismatch
// silently degrades relevance rather than failing, which is why the
// metric is fixed at construction and never a per-query choice.
type Metric string

const (
	// MetricCosine ranks by cosine similarity. Vectors are normalized
	// to unit length on the way in, turning cosine into a plain dot
	// product.
	MetricCosine Metric = "cosine"

	// MetricDot ranks by raw dot product, for models trained on
	// inner-product similarity.
	MetricDot Metric = "dot"
)

// Valid reports whether m names a supported metric.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricDot
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize scales v to unit length in place. The zero vector is left
// untouched.
func normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	mag := float32(math.Sqrt(float64(sum)))
	for i := range v {
		v[i] /= mag
	}
}

// distance converts similarity into the "lower is closer" form the
// graph search orders by. For cosine over unit vectors this is 1-dot,
// for dot product it is the negated product.
func (m Metric) distance(a, b []float32) float32 {
	switch m {
	case MetricDot:
		return -dot(a, b)
	default:
		return 1 - dot(a, b)
	}
}

// similarity converts a graph distance back into the caller-facing
// score.
func (m Metric) similarity(d float32) float64 {
	switch m {
	case MetricDot:
		return float64(-d)
	default:
		return float64(1 - d)
	}
}
