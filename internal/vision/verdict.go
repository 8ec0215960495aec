package vision

import (
	"fmt"
	"math"

	"lechuga_bot_backend/platform/apperr"
)

// classLabels maps classifier output indexes to canonical disease labels.
// The order is fixed by the trained model.
var classLabels = []string{"Botrytis", "Healthy", "Xanthomonas"}

const distributionTolerance = 1e-3

// Verdict is the structured result of classifying a confirmed plant photo.
type Verdict struct {
	Label        string
	Confidence   float64
	Distribution map[string]float64
}

// NewVerdict normalizes a raw classifier output vector into a Verdict.
// Logit vectors (values that do not form a distribution) are softmaxed
// before label selection.
func NewVerdict(raw []float64) (Verdict, error) {
	if len(raw) != len(classLabels) {
		return Verdict{}, apperr.Capability(fmt.Sprintf("classifier returned %d scores, want %d", len(raw), len(classLabels)))
	}

	probs := raw
	if !isDistribution(raw) {
		probs = softmax(raw)
	}

	dist := make(map[string]float64, len(classLabels))
	best := 0
	for i, p := range probs {
		dist[classLabels[i]] = p
		if p > probs[best] {
			best = i
		}
	}

	return Verdict{
		Label:        classLabels[best],
		Confidence:   probs[best],
		Distribution: dist,
	}, nil
}

func isDistribution(v []float64) bool {
	sum := 0.0
	for _, p := range v {
		if p < 0 {
			return false
		}
		sum += p
	}
	return math.Abs(sum-1) <= distributionTolerance
}

func softmax(v []float64) []float64 {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}

	out := make([]float64, len(v))
	sum := 0.0
	for i, x := range v {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
