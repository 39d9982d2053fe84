package names

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"plain name untouched", "אלנבי", "אלנבי"},
		{"street prefix", "רחוב אלנבי", "אלנבי"},
		{"abbreviated street prefix", "רח' אלנבי", "אלנבי"},
		{"abbreviated with dot", "רח. אלנבי", "אלנבי"},
		{"boulevard prefix", "שדרות רוטשילד", "רוטשילד"},
		{"abbreviated boulevard", "שד' רוטשילד", "רוטשילד"},
		{"road prefix", "דרך נמיר", "נמיר"},
		{"promenade prefix", "טיילת הרברט סמואל", "הרברט סמואל"},
		{"internal whitespace collapsed", "אבן   גבירול  שלמה", "אבן גבירול שלמה"},
		{"quotes stripped", "ז'בוטינסקי", "זבוטינסקי"},
		{"gershayim stripped", "דרך קק\"ל", "קקל"},
		{"leading and trailing space", "  רחוב הירקון  ", "הירקון"},
		{"stacked prefixes", "רחוב דרך השלום", "השלום"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, expected %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"אלנבי",
		"רחוב אלנבי",
		"שד' בן גוריון",
		"דרך  נמיר   מרדכי",
		"ז'בוטינסקי זאב",
		"טיילת הרברט סמואל",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestAliasTableResolve(t *testing.T) {
	table := NewAliasTable()

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"forward hit", "אבן גבירול שלמה", "אבן גבירול"},
		{"reverse hit", "אבן גבירול", "אבן גבירול שלמה"},
		{"junction area resolves to adjoining street", "מסוף רדינג", "רוקח"},
		{"miss returns input", "הירקון", "הירקון"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Resolve(tt.in); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, expected %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestAliasTableLookupDirections(t *testing.T) {
	table := NewAliasTable()

	if v, ok := table.Lookup("בן גוריון דוד"); !ok || v != "בן גוריון" {
		t.Errorf("Lookup forward = %q, %v", v, ok)
	}
	if _, ok := table.Lookup("בן גוריון"); ok {
		t.Error("Lookup must not match in the reverse direction")
	}
	if v, ok := table.ReverseLookup("בן גוריון"); !ok || v != "בן גוריון דוד" {
		t.Errorf("ReverseLookup = %q, %v", v, ok)
	}
}

func TestLoadAliasTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := "רחוב יהודה הלוי: אלנבי\nאבן גבירול שלמה: גבירול\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadAliasTable(path)
	if err != nil {
		t.Fatalf("LoadAliasTable: %v", err)
	}

	// Keys are normalized on load.
	if got := table.Resolve("יהודה הלוי"); got != "אלנבי" {
		t.Errorf("file entry not loaded, Resolve = %q", got)
	}
	// File entries win over compiled-in defaults.
	if got := table.Resolve("אבן גבירול שלמה"); got != "גבירול" {
		t.Errorf("file entry did not override default, Resolve = %q", got)
	}

	if _, err := LoadAliasTable(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
