// Package tabular wraps the survey-answer classifier: an external inference
// service exposing the trained model's feature ordering and class
// probabilities.
package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lechuga_bot_backend/platform/apperr"
	"lechuga_bot_backend/platform/config"
)

// Client talks to the tabular model inference service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the tabular model service.
func NewClient(cfg config.ClassifierConfig) *Client {
	return &Client{
		baseURL: cfg.GetTabularModelURL(),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ModelMetadata describes the deployed model: the ordered feature names the
// vector must follow and the class ordering of the probability output.
type ModelMetadata struct {
	Features []string `json:"features"`
	Classes  []string `json:"classes"`
}

// Metadata fetches the deployed model's feature and class ordering.
func (c *Client) Metadata(ctx context.Context) (ModelMetadata, error) {
	if c.baseURL == "" {
		return ModelMetadata{}, apperr.Capability("tabular model not configured").WithOp("tabular.Metadata")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/metadata", nil)
	if err != nil {
		return ModelMetadata{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ModelMetadata{}, apperr.Wrap(apperr.KindCapability, "tabular model unreachable", err).WithOp("tabular.Metadata")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return ModelMetadata{}, apperr.Capability(fmt.Sprintf("tabular metadata returned %d", resp.StatusCode)).WithOp("tabular.Metadata")
	}

	var meta ModelMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return ModelMetadata{}, apperr.Wrap(apperr.KindCapability, "malformed metadata response", err).WithOp("tabular.Metadata")
	}
	return meta, nil
}

type predictRequest struct {
	Features []int `json:"features"`
}

type predictResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// PredictProba submits a feature vector and returns per-class probabilities
// in the ordering reported by Metadata.
func (c *Client) PredictProba(ctx context.Context, features []int) ([]float64, error) {
	if c.baseURL == "" {
		return nil, apperr.Capability("tabular model not configured").WithOp("tabular.PredictProba")
	}

	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict_proba", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCapability, "tabular model unreachable", err).WithOp("tabular.PredictProba")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Capability(fmt.Sprintf("tabular predict returned %d", resp.StatusCode)).WithOp("tabular.PredictProba")
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindCapability, "malformed predict response", err).WithOp("tabular.PredictProba")
	}
	return parsed.Probabilities, nil
}
