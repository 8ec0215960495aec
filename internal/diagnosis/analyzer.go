package diagnosis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/internal/vision"
	"lechuga_bot_backend/platform/logger"
)

// Analyzer runs the image side of an attempt: EXIF normalization, the
// subject gate, and the CNN classifier.
type Analyzer struct {
	gate       *vision.Gate
	classifier *vision.Classifier
	taxonomy   *labels.Taxonomy
	log        *logger.Logger
}

// NewAnalyzer creates the image analysis pipeline.
func NewAnalyzer(gate *vision.Gate, classifier *vision.Classifier, taxonomy *labels.Taxonomy, log *logger.Logger) *Analyzer {
	return &Analyzer{gate: gate, classifier: classifier, taxonomy: taxonomy, log: log}
}

// Analyze gates and classifies the image at path. Gate rejections come back
// as an ImageAnalysis with a rejection message, not an error.
func (a *Analyzer) Analyze(ctx context.Context, imagePath string) (ImageAnalysis, error) {
	if err := vision.NormalizeOrientation(imagePath); err != nil {
		a.log.Warn("exif normalization failed", "path", imagePath, "error", err)
	}

	gateResult, err := a.gate.Check(ctx, imagePath)
	if err != nil {
		return ImageAnalysis{}, err
	}
	switch gateResult {
	case vision.GateNotSubject:
		return ImageAnalysis{Rejection: msgNotSubject}, nil
	case vision.GateNotReal:
		return ImageAnalysis{Rejection: msgNotReal}, nil
	}

	verdict, err := a.classifier.Classify(ctx, imagePath)
	if err != nil {
		return ImageAnalysis{}, err
	}

	label := a.taxonomy.Canonical(verdict.Label)
	return ImageAnalysis{Verdict: &ImageVerdict{
		RawText:      formatVerdictText(label, verdict),
		Label:        label,
		Distribution: verdict.Distribution,
	}}, nil
}

func formatVerdictText(label string, verdict vision.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📷 Análisis de imagen: %s (%.0f%%)\n", label, verdict.Confidence*100)

	names := make([]string, 0, len(verdict.Distribution))
	for name := range verdict.Distribution {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %.1f%%\n", name, verdict.Distribution[name]*100)
	}
	b.WriteString("\nAhora respóndeme unas preguntas para confirmar el diagnóstico.")
	return b.String()
}
