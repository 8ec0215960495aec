package vision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lechuga_bot_backend/platform/apperr"
)

func TestFirstDigitFindsAnswerInNoisyOutput(t *testing.T) {
	cases := map[string]byte{
		"1":                 '1',
		" 0\n":              '0',
		"Respuesta: 2":      '2',
		"**1**":             '1',
		"sin digito alguno": 0,
		"":                  0,
	}
	for in, want := range cases {
		if got := firstDigit(in); got != want {
			t.Fatalf("firstDigit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGateCheckPassesReadableImageWhenGeminiUnconfigured(t *testing.T) {
	g := NewGate(nil)
	path := filepath.Join(t.TempDir(), "plant.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	result, err := g.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result != GateConfirmed {
		t.Fatalf("expected GateConfirmed without a gemini client, got %v", result)
	}
}

func TestGateCheckUnreadableImageIsInputError(t *testing.T) {
	g := NewGate(nil)

	_, err := g.Check(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Fatal("expected error for unreadable image")
	}
	if !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("expected an input error, got %v", err)
	}
}
