package tabular

import (
	"context"

	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/platform/apperr"
)

// Verdict is the structured result of classifying a completed survey.
type Verdict struct {
	Label        string
	Confidence   float64
	Distribution map[string]float64
}

// Adapter turns recorded survey answers into a model feature vector and
// normalizes the model output into the shared label taxonomy.
type Adapter struct {
	client   *Client
	taxonomy *labels.Taxonomy
}

// NewAdapter creates a tabular classification adapter.
func NewAdapter(client *Client, taxonomy *labels.Taxonomy) *Adapter {
	return &Adapter{client: client, taxonomy: taxonomy}
}

// Predict builds the feature vector from answers and runs the model.
// Answers are keyed by 1-indexed question position matching the model's
// feature order; a missing answer is a negative, never an error.
func (a *Adapter) Predict(ctx context.Context, answers map[int]string) (Verdict, error) {
	meta, err := a.client.Metadata(ctx)
	if err != nil {
		return Verdict{}, err
	}
	if len(meta.Features) == 0 || len(meta.Classes) == 0 {
		return Verdict{}, apperr.Capability("tabular model metadata incomplete").WithOp("tabular.Predict")
	}

	features := make([]int, len(meta.Features))
	for i := range meta.Features {
		if labels.IsAffirmative(answers[i+1]) {
			features[i] = 1
		}
	}

	probs, err := a.client.PredictProba(ctx, features)
	if err != nil {
		return Verdict{}, err
	}
	if len(probs) != len(meta.Classes) {
		return Verdict{}, apperr.Capability("tabular model returned mismatched class probabilities").WithOp("tabular.Predict")
	}

	dist := make(map[string]float64, len(meta.Classes))
	best := 0
	for i, class := range meta.Classes {
		dist[a.taxonomy.Canonical(class)] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	return Verdict{
		Label:        a.taxonomy.Canonical(meta.Classes[best]),
		Confidence:   probs[best],
		Distribution: dist,
	}, nil
}
