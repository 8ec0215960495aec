package labels

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalResolvesSynonymsAndClassCodes(t *testing.T) {
	tax := NewTaxonomy()

	cases := map[string]string{
		"Botrytis":      Botrytis,
		"botritis":      Botrytis,
		"Moho Gris":     Botrytis,
		"0":             Botrytis,
		"XANTHOMONAS":   Xanthomonas,
		"xantomonas":    Xanthomonas,
		"mancha foliar": Xanthomonas,
		"2":             Xanthomonas,
		"healthy":       Healthy,
		"Sana":          Healthy,
		"saludable":     Healthy,
		"1":             Healthy,
	}
	for raw, want := range cases {
		if got := tax.Canonical(raw); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCanonicalIsAccentAndWhitespaceInsensitive(t *testing.T) {
	tax := NewTaxonomy()

	if got := tax.Canonical("  Botrytís "); got != Botrytis {
		t.Fatalf("expected accented alias to resolve to Botrytis, got %q", got)
	}
	if got := tax.Canonical("SALUDABLE"); got != Healthy {
		t.Fatalf("expected uppercase alias to resolve to Healthy, got %q", got)
	}
}

func TestCanonicalUnrecognizedFallsBackToUnknown(t *testing.T) {
	tax := NewTaxonomy()

	for _, raw := range []string{"", "mildew", "3", "lechuga"} {
		if got := tax.Canonical(raw); got != Unknown {
			t.Fatalf("Canonical(%q) = %q, want Unknown", raw, got)
		}
	}
}

func TestSameComparesCanonicalForms(t *testing.T) {
	tax := NewTaxonomy()

	if !tax.Same("0", "moho gris") {
		t.Fatal("expected class code 0 and its alias to match")
	}
	if tax.Same("0", "1") {
		t.Fatal("expected Botrytis and Healthy codes to differ")
	}
	if !tax.Same("garbage", "more garbage") {
		t.Fatal("expected two unrecognized labels to both resolve to Unknown")
	}
}

func TestNewTaxonomyFromFileExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	content := "synonyms:\n  podredumbre gris: Botrytis\n  bacteriosis: Xanthomonas\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write synonym file: %v", err)
	}

	tax, err := NewTaxonomyFromFile(path)
	if err != nil {
		t.Fatalf("NewTaxonomyFromFile: %v", err)
	}
	if got := tax.Canonical("Podredumbre Gris"); got != Botrytis {
		t.Fatalf("expected file alias to resolve to Botrytis, got %q", got)
	}
	if got := tax.Canonical("moho gris"); got != Botrytis {
		t.Fatalf("expected built-in alias to survive extension, got %q", got)
	}
}

func TestNewTaxonomyFromFileRejectsUnknownTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	if err := os.WriteFile(path, []byte("synonyms:\n  rust: Roya\n"), 0o644); err != nil {
		t.Fatalf("write synonym file: %v", err)
	}

	if _, err := NewTaxonomyFromFile(path); err == nil {
		t.Fatal("expected error for alias targeting an unknown label")
	}
}

func TestNewTaxonomyFromFileEmptyPathUsesDefaults(t *testing.T) {
	tax, err := NewTaxonomyFromFile("")
	if err != nil {
		t.Fatalf("NewTaxonomyFromFile: %v", err)
	}
	if got := tax.Canonical("sana"); got != Healthy {
		t.Fatalf("expected default taxonomy, got %q", got)
	}
}

func TestIsAffirmative(t *testing.T) {
	for _, yes := range []string{"si", "Sí", "SI", " sí ", "yes", "true", "1", "y"} {
		if !IsAffirmative(yes) {
			t.Fatalf("expected %q to count as affirmative", yes)
		}
	}
	for _, no := range []string{"no", "No sé", "", "0", "nunca"} {
		if IsAffirmative(no) {
			t.Fatalf("expected %q to not count as affirmative", no)
		}
	}
}
