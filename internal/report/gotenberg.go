package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// GotenbergClient turns rendered report HTML into a PDF through a Gotenberg
// instance's chromium route.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGotenbergClient builds a client for the given base URL. Non-empty
// credentials are sent as HTTP Basic Auth on every request.
func NewGotenbergClient(baseURL, username, password string) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// A4 portrait with half-inch margins; backgrounds kept so the report header
// band prints.
var pageFields = map[string]string{
	"paperWidth":      "8.27",
	"paperHeight":     "11.7",
	"marginTop":       "0.5",
	"marginBottom":    "0.5",
	"marginLeft":      "0.5",
	"marginRight":     "0.5",
	"printBackground": "true",
}

// ConvertHTML submits the report page as index.html and returns PDF bytes.
func (g *GotenbergClient) ConvertHTML(ctx context.Context, indexHTML []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	for k, v := range pageFields {
		if err := form.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="files"; filename="index.html"`)
	header.Set("Content-Type", "text/html")
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	if _, err := part.Write(indexHTML); err != nil {
		return nil, fmt.Errorf("write html part: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if g.username != "" && g.password != "" {
		req.SetBasicAuth(g.username, g.password)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg convert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gotenberg convert returned %d: %s", resp.StatusCode, string(errBody))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read converted pdf: %w", err)
	}
	return pdf, nil
}
