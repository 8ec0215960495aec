package vision

import (
	"context"
	"fmt"
	"os"

	"lechuga_bot_backend/platform/apperr"
)

// GateResult is the outcome of the subject gate.
type GateResult int

const (
	// GateConfirmed means the image shows a real lettuce plant.
	GateConfirmed GateResult = iota
	// GateNotSubject means the image does not show a lettuce plant.
	GateNotSubject
	// GateNotReal means the image shows a lettuce that is not a real plant
	// (a drawing, a screen photo, a toy).
	GateNotReal
)

const gatePrompt = `Analiza la imagen adjunta. Responde UNICAMENTE con un solo caracter:
1 si la imagen muestra una planta de lechuga real.
0 si la imagen no muestra una lechuga.
2 si la imagen muestra una lechuga que no es una planta real (dibujo, pantalla, juguete).`

// Gate decides whether an uploaded photo shows a real lettuce plant before
// any classifier work is spent on it.
type Gate struct {
	gemini *GeminiClient
}

// NewGate creates a subject gate backed by Gemini.
func NewGate(gemini *GeminiClient) *Gate {
	return &Gate{gemini: gemini}
}

// Check runs the gate against the image at path. Without a configured Gemini
// client every readable image passes and the classifier alone judges it.
func (g *Gate) Check(ctx context.Context, imagePath string) (GateResult, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return GateNotSubject, apperr.Wrap(apperr.KindInput, "image not readable", err).WithOp("vision.Gate.Check")
	}

	if g.gemini == nil {
		return GateConfirmed, nil
	}

	answer, err := g.gemini.GenerateWithImage(ctx, gatePrompt, data, "image/jpeg")
	if err != nil {
		return GateNotSubject, err
	}

	switch firstDigit(answer) {
	case '1':
		return GateConfirmed, nil
	case '0':
		return GateNotSubject, nil
	case '2':
		return GateNotReal, nil
	default:
		return GateNotSubject, apperr.Capability(fmt.Sprintf("unexpected gate answer %q", answer)).WithOp("vision.Gate.Check")
	}
}

// firstDigit returns the first ASCII digit in s, or 0 when none is present.
// Models occasionally wrap the answer in punctuation or whitespace.
func firstDigit(s string) byte {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return s[i]
		}
	}
	return 0
}
