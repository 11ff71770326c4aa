package icons

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseAndLookup(t *testing.T) {
	doc := []byte("ual123: icons/ual.svg\nB738: icons/b738.svg\nN12345: icons/ga.svg\n")
	table, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}

	// Keys are uppercased at load; lookups are case-insensitive.
	for _, key := range []string{"UAL123", "ual123", " Ual123 "} {
		icon, ok := table.Lookup(key)
		if !ok || icon != "icons/ual.svg" {
			t.Errorf("Lookup(%q) = %q, %v, want icons/ual.svg, true", key, icon, ok)
		}
	}

	if _, ok := table.Lookup("DAL9"); ok {
		t.Error("Lookup(DAL9) = true, want false")
	}
}

func TestLoadMissingFileDegradesToEmpty(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "no_such.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
	if table.Default() != DefaultIcon {
		t.Errorf("Default() = %q, want %q", table.Default(), DefaultIcon)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.yaml")
	if err := os.WriteFile(path, []byte("SWA42: icons/swa.svg\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if icon, ok := table.Lookup("swa42"); !ok || icon != "icons/swa.svg" {
		t.Errorf("Lookup(swa42) = %q, %v, want icons/swa.svg, true", icon, ok)
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("{:::")); err == nil {
		t.Error("Parse() error = nil, want error")
	}
}

func TestNilTableIsEmpty(t *testing.T) {
	var table *Table
	if _, ok := table.Lookup("UAL123"); ok {
		t.Error("nil table Lookup() = true, want false")
	}
	if table.Default() != DefaultIcon {
		t.Errorf("nil table Default() = %q, want %q", table.Default(), DefaultIcon)
	}
	if table.Len() != 0 {
		t.Errorf("nil table Len() = %d, want 0", table.Len())
	}
}
