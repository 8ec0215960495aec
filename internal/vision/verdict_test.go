package vision

import (
	"math"
	"testing"

	"lechuga_bot_backend/platform/apperr"
)

func TestNewVerdictPicksArgmaxFromDistribution(t *testing.T) {
	v, err := NewVerdict([]float64{0.7, 0.2, 0.1})
	if err != nil {
		t.Fatalf("NewVerdict: %v", err)
	}
	if v.Label != "Botrytis" {
		t.Fatalf("expected Botrytis, got %q", v.Label)
	}
	if v.Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %v", v.Confidence)
	}
	if v.Distribution["Healthy"] != 0.2 || v.Distribution["Xanthomonas"] != 0.1 {
		t.Fatalf("unexpected distribution: %+v", v.Distribution)
	}
}

func TestNewVerdictSoftmaxesLogits(t *testing.T) {
	v, err := NewVerdict([]float64{-1.2, 4.5, 0.3})
	if err != nil {
		t.Fatalf("NewVerdict: %v", err)
	}
	if v.Label != "Healthy" {
		t.Fatalf("expected Healthy, got %q", v.Label)
	}

	sum := 0.0
	for _, p := range v.Distribution {
		if p < 0 || p > 1 {
			t.Fatalf("softmax produced out-of-range probability %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("softmax probabilities sum to %v", sum)
	}
	if v.Confidence <= 0.9 {
		t.Fatalf("expected dominant logit to dominate, got %v", v.Confidence)
	}
}

func TestNewVerdictNegativeValuesAreTreatedAsLogits(t *testing.T) {
	v, err := NewVerdict([]float64{-0.5, 0.5, 1.0})
	if err != nil {
		t.Fatalf("NewVerdict: %v", err)
	}
	if v.Label != "Xanthomonas" {
		t.Fatalf("expected Xanthomonas, got %q", v.Label)
	}
}

func TestNewVerdictRejectsWrongVectorLength(t *testing.T) {
	_, err := NewVerdict([]float64{0.5, 0.5})
	if err == nil {
		t.Fatal("expected error for short score vector")
	}
	if !apperr.Is(err, apperr.KindCapability) {
		t.Fatalf("expected a capability error, got %v", err)
	}
}
