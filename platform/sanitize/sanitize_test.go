package sanitize

import "testing"

func TestDisplayTextRemovesEmoji(t *testing.T) {
	got := DisplayText("¿Hay moho gris? 🥬🍂")
	if got != "¿Hay moho gris?" {
		t.Fatalf("DisplayText = %q", got)
	}
}

func TestDisplayTextCollapsesWhitespace(t *testing.T) {
	got := DisplayText("línea uno\nlínea   dos\t tres")
	if got != "línea uno línea dos tres" {
		t.Fatalf("DisplayText = %q", got)
	}
}

func TestDisplayTextKeepsPlainSpanish(t *testing.T) {
	in := "¿Las hojas tienen manchas marrones?"
	if got := DisplayText(in); got != in {
		t.Fatalf("DisplayText changed plain text: %q", got)
	}
}

func TestDisplayTextEmptyInput(t *testing.T) {
	if got := DisplayText(""); got != "" {
		t.Fatalf("DisplayText(\"\") = %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML("<b>hola</b> &amp; adiós")
	if got != "hola & adiós" {
		t.Fatalf("StripHTML = %q", got)
	}
}
