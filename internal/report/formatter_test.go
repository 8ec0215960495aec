package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lechuga_bot_backend/platform/logger"
)

type fakeGen struct {
	text string
	err  error
}

func (g fakeGen) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.text, g.err
}

var sampleTreatments = []TreatmentEntry{
	{Title: "Fungicida", Description: "Aplicar cada 7 días"},
	{Title: "Ventilación", Description: "Mejorar el flujo de aire"},
}

func TestFormatWithoutGeneratorUsesPlainRendering(t *testing.T) {
	f := NewFormatter(nil, logger.New("test"))

	got := f.Format(context.Background(), "Botrytis", sampleTreatments)
	if !strings.Contains(got, "Diagnóstico: Botrytis") {
		t.Fatalf("expected plain diagnosis header, got %q", got)
	}
	if !strings.Contains(got, "• Fungicida: Aplicar cada 7 días") {
		t.Fatalf("expected treatment bullet, got %q", got)
	}
}

func TestFormatUsesGeneratedTextWhenAvailable(t *testing.T) {
	f := NewFormatter(fakeGen{text: "Tu lechuga tiene Botrytis. Aplica el fungicida."}, logger.New("test"))

	got := f.Format(context.Background(), "Botrytis", sampleTreatments)
	if got != "Tu lechuga tiene Botrytis. Aplica el fungicida." {
		t.Fatalf("expected generated caption, got %q", got)
	}
}

func TestFormatFallsBackOnGeneratorError(t *testing.T) {
	f := NewFormatter(fakeGen{err: errors.New("quota exceeded")}, logger.New("test"))

	got := f.Format(context.Background(), "Botrytis", sampleTreatments)
	if !strings.Contains(got, "Diagnóstico: Botrytis") {
		t.Fatalf("expected fallback caption, got %q", got)
	}
}

func TestFormatFallsBackOnEmptyGeneration(t *testing.T) {
	f := NewFormatter(fakeGen{text: "  \n"}, logger.New("test"))

	got := f.Format(context.Background(), "Healthy", nil)
	if !strings.Contains(got, "Diagnóstico: Healthy") {
		t.Fatalf("expected fallback caption, got %q", got)
	}
}
