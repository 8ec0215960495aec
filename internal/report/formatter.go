package report

import (
	"context"
	"fmt"
	"strings"

	"lechuga_bot_backend/platform/logger"
)

// TextGenerator produces text from a prompt. Satisfied by the Gemini client.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Formatter writes the chat caption that accompanies a report: a short
// treatment summary, phrased by an LLM when one is available.
type Formatter struct {
	gen TextGenerator
	log *logger.Logger
}

// NewFormatter creates a treatment formatter. gen may be nil.
func NewFormatter(gen TextGenerator, log *logger.Logger) *Formatter {
	return &Formatter{gen: gen, log: log}
}

// Format returns the caption text. LLM failures fall back to a plain local
// rendering; this method never errors.
func (f *Formatter) Format(ctx context.Context, label string, treatments []TreatmentEntry) string {
	fallback := f.plain(label, treatments)
	if f.gen == nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Eres un asistente agrícola. Resume en un mensaje corto y amable para un agricultor (máximo 4 frases, sin markdown) el diagnóstico %q de su lechuga y estos tratamientos:\n%s",
		label, fallback,
	)
	text, err := f.gen.GenerateText(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		f.log.Warn("treatment caption generation failed, using fallback", "error", err)
		return fallback
	}
	return text
}

func (f *Formatter) plain(label string, treatments []TreatmentEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnóstico: %s\n\nTratamientos recomendados:\n", label)
	for _, t := range treatments {
		fmt.Fprintf(&b, "• %s: %s\n", t.Title, t.Description)
	}
	return b.String()
}
