package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// Generator renders diagnosis reports. With Gotenberg configured the report
// is a PDF; otherwise the HTML document itself is delivered.
type Generator struct {
	gotenberg      *GotenbergClient
	reportsDir     string
	archiveBaseURL string
	log            *logger.Logger
}

// NewGenerator creates a report generator. gotenberg may be nil.
func NewGenerator(gotenberg *GotenbergClient, cfg config.DiagnosisConfig, log *logger.Logger) *Generator {
	return &Generator{
		gotenberg:      gotenberg,
		reportsDir:     cfg.GetReportsDir(),
		archiveBaseURL: cfg.GetArchivePublicURL(),
		log:            log,
	}
}

// Render produces the report document and returns its path.
func (g *Generator) Render(ctx context.Context, payload Payload) (string, error) {
	ext := "html"
	if g.gotenberg != nil {
		ext = "pdf"
	}
	filename := fmt.Sprintf("diagnostico_%s.%s", payload.AttemptID, ext)

	qrPNG, err := qrcode.Encode(qrTarget(g.archiveBaseURL, payload.UserID, payload.AttemptID, filename), qrcode.Medium, 256)
	if err != nil {
		// A missing QR code is cosmetic.
		g.log.Warn("qr code generation failed", "attempt_id", payload.AttemptID, "error", err)
		qrPNG = nil
	}

	html, err := renderHTML(payload, qrPNG)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	path := filepath.Join(g.reportsDir, filename)

	if g.gotenberg == nil {
		if err := os.WriteFile(path, html, 0o644); err != nil {
			return "", fmt.Errorf("write report html: %w", err)
		}
		return path, nil
	}

	pdf, err := g.gotenberg.ConvertHTML(ctx, html)
	if err != nil {
		return "", fmt.Errorf("convert report to pdf: %w", err)
	}

	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("write report pdf: %w", err)
	}
	return path, nil
}

// qrTarget is what the report QR encodes: the archived copy's URL when the
// archive has a public base, otherwise a stable attempt URI. The URL path
// mirrors the archive object key, reports/{userID}/{filename}.
func qrTarget(archiveBaseURL string, userID int64, attemptID uuid.UUID, filename string) string {
	if archiveBaseURL == "" {
		return "lechuga-bot:attempt:" + attemptID.String()
	}
	return fmt.Sprintf("%s/reports/%d/%s", strings.TrimRight(archiveBaseURL, "/"), userID, filename)
}
