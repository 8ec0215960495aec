package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"lechuga_bot_backend/platform/apperr"
	"lechuga_bot_backend/platform/config"
)

// Classifier is an HTTP client for the CNN image inference service.
type Classifier struct {
	baseURL string
	http    *http.Client
}

// NewClassifier creates a client for the image classifier service.
func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{
		baseURL: cfg.GetImageClassifierURL(),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type predictResponse struct {
	Scores []float64 `json:"scores"`
}

// Classify uploads the image at path and returns a normalized verdict.
func (c *Classifier) Classify(ctx context.Context, imagePath string) (Verdict, error) {
	if c.baseURL == "" {
		return Verdict{}, apperr.Capability("image classifier not configured").WithOp("vision.Classify")
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return Verdict{}, apperr.Wrap(apperr.KindInput, "image not readable", err).WithOp("vision.Classify")
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return Verdict{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return Verdict{}, fmt.Errorf("read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Verdict{}, apperr.Wrap(apperr.KindCapability, "image classifier unreachable", err).WithOp("vision.Classify")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, apperr.Capability(fmt.Sprintf("image classifier returned %d", resp.StatusCode)).WithOp("vision.Classify")
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Verdict{}, apperr.Wrap(apperr.KindCapability, "malformed classifier response", err).WithOp("vision.Classify")
	}

	return NewVerdict(parsed.Scores)
}
