package store

import (
	"fmt"
	"math"
)

// Metric is the distance function a collection ranks by. Lower is closer.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricL2:
		return Metric(s), nil
	case "":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unknown distance metric: %s", s)
	}
}

// Distance computes the metric between two vectors of equal length.
func (m Metric) Distance(a, b []float32) float64 {
	if m == MetricL2 {
		return l2Distance(a, b)
	}
	return cosineDistance(a, b)
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// pgOperator is the pgvector operator for the metric.
func (m Metric) pgOperator() string {
	if m == MetricL2 {
		return "<->"
	}
	return "<=>"
}

func (m Metric) pgOpsClass() string {
	if m == MetricL2 {
		return "vector_l2_ops"
	}
	return "vector_cosine_ops"
}
