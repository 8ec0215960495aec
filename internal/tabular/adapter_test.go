package tabular

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/platform/apperr"
)

type classifierConfig struct {
	tabularURL string
}

func (c classifierConfig) GetImageClassifierURL() string { return "" }
func (c classifierConfig) GetTabularModelURL() string    { return c.tabularURL }

func newModelServer(t *testing.T, meta ModelMetadata, probs []float64, gotFeatures *[]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/metadata", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(meta)
	})
	mux.HandleFunc("/predict_proba", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Features []int `json:"features"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode predict request: %v", err)
		}
		*gotFeatures = req.Features
		_ = json.NewEncoder(w).Encode(map[string][]float64{"probabilities": probs})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAdapterBuildsFeatureVectorFromAnswers(t *testing.T) {
	meta := ModelMetadata{
		Features: []string{"f1", "f2", "f3", "f4"},
		Classes:  []string{"0", "1", "2"},
	}
	var got []int
	srv := newModelServer(t, meta, []float64{0.1, 0.8, 0.1}, &got)

	adapter := NewAdapter(NewClient(classifierConfig{tabularURL: srv.URL}), labels.NewTaxonomy())
	answers := map[int]string{
		1: "Sí",
		2: "No",
		4: "si",
		// question 3 was skipped and has no recorded answer
	}

	verdict, err := adapter.Predict(context.Background(), answers)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if want := []int{1, 0, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("feature vector = %v, want %v", got, want)
	}
	if verdict.Label != labels.Healthy {
		t.Fatalf("expected class code 1 to canonicalize to Healthy, got %q", verdict.Label)
	}
	if verdict.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", verdict.Confidence)
	}
	if verdict.Distribution[labels.Botrytis] != 0.1 || verdict.Distribution[labels.Xanthomonas] != 0.1 {
		t.Fatalf("unexpected distribution: %+v", verdict.Distribution)
	}
}

func TestAdapterCanonicalizesNamedClasses(t *testing.T) {
	meta := ModelMetadata{
		Features: []string{"f1"},
		Classes:  []string{"botritis", "sana", "xantomonas"},
	}
	var got []int
	srv := newModelServer(t, meta, []float64{0.6, 0.3, 0.1}, &got)

	adapter := NewAdapter(NewClient(classifierConfig{tabularURL: srv.URL}), labels.NewTaxonomy())
	verdict, err := adapter.Predict(context.Background(), map[int]string{1: "sí"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if verdict.Label != labels.Botrytis {
		t.Fatalf("expected Botrytis, got %q", verdict.Label)
	}
}

func TestAdapterRejectsIncompleteMetadata(t *testing.T) {
	var got []int
	srv := newModelServer(t, ModelMetadata{}, nil, &got)

	adapter := NewAdapter(NewClient(classifierConfig{tabularURL: srv.URL}), labels.NewTaxonomy())
	_, err := adapter.Predict(context.Background(), map[int]string{1: "sí"})
	if err == nil {
		t.Fatal("expected error for empty metadata")
	}
	if !apperr.Is(err, apperr.KindCapability) {
		t.Fatalf("expected a capability error, got %v", err)
	}
}

func TestAdapterRejectsMismatchedProbabilities(t *testing.T) {
	meta := ModelMetadata{Features: []string{"f1"}, Classes: []string{"0", "1", "2"}}
	var got []int
	srv := newModelServer(t, meta, []float64{0.5, 0.5}, &got)

	adapter := NewAdapter(NewClient(classifierConfig{tabularURL: srv.URL}), labels.NewTaxonomy())
	if _, err := adapter.Predict(context.Background(), map[int]string{1: "sí"}); err == nil {
		t.Fatal("expected error for mismatched probability vector")
	}
}

func TestAdapterUnconfiguredModelIsCapabilityError(t *testing.T) {
	adapter := NewAdapter(NewClient(classifierConfig{}), labels.NewTaxonomy())
	_, err := adapter.Predict(context.Background(), nil)
	if !apperr.Is(err, apperr.KindCapability) {
		t.Fatalf("expected a capability error, got %v", err)
	}
}
