package reference

import (
	"os"
	"path/filepath"
	"testing"
)

func TestThresholdFallsBackToDefault(t *testing.T) {
	tables := Defaults()
	if got := tables.Threshold("SEK"); got != 550 {
		t.Errorf("Threshold(SEK) = %v, want 550", got)
	}
	if got := tables.Threshold("PLN"); got != tables.DefaultThreshold {
		t.Errorf("Threshold(PLN) = %v, want default %v", got, tables.DefaultThreshold)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	content := "suspicious_thresholds:\n  USD: 75\nstatic_symbols:\n  FI0000000009: TEST.HE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tables.Threshold("USD"); got != 75 {
		t.Errorf("loaded USD threshold = %v, want 75", got)
	}
	if tables.StaticSymbols["FI0000000009"] != "TEST.HE" {
		t.Errorf("loaded static symbol missing: %v", tables.StaticSymbols)
	}
	if len(tables.ExchangeSuffixes) == 0 {
		t.Error("unspecified sections must keep their defaults")
	}
	if len(tables.UnmappableKeywords) == 0 {
		t.Error("unspecified keyword list must keep its defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
