package gate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogLookup(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	tests := []struct {
		name string
		want Flags
	}{
		{"H", 0},
		{"h", 0},
		{"CX", TargetsPairs | CanTargetMeasurementRecord},
		{"DETECTOR", OnlyTargetsMeasurementRecord | IsNotFusable},
		{"OBSERVABLE_INCLUDE", TakesParensArgument | OnlyTargetsMeasurementRecord | IsNotFusable},
		{"REPEAT", IsBlock},
	}

	for _, tt := range tests {
		g, ok := cat.Lookup(tt.name)
		if !ok {
			t.Errorf("Lookup(%q): not found", tt.name)
			continue
		}
		if g.Flags != tt.want {
			t.Errorf("Lookup(%q).Flags = %b, want %b", tt.name, g.Flags, tt.want)
		}
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	g1, ok1 := cat.Lookup("cx")
	g2, ok2 := cat.Lookup("Cx")
	g3, ok3 := cat.Lookup("CX")
	if !ok1 || !ok2 || !ok3 {
		t.Fatalf("expected all case variants of CX to resolve, got %v %v %v", ok1, ok2, ok3)
	}
	if g1 != g2 || g2 != g3 {
		t.Errorf("case variants of CX should resolve to the same *Gate")
	}
}

func TestLookupRejectsOverlongName(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	name := "THIS_GATE_NAME_IS_DEFINITELY_TOO_LONG_TO_EVER_MATCH"
	if len(name) <= MaxNameLength {
		t.Fatalf("test name %q is not actually over the limit", name)
	}
	if _, ok := cat.Lookup(name); ok {
		t.Errorf("Lookup(%q) should fail, name exceeds %d characters", name, MaxNameLength)
	}
}

func TestLookupUnknownGate(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if _, ok := cat.Lookup("NOT_A_REAL_GATE"); ok {
		t.Errorf("Lookup(%q) should fail", "NOT_A_REAL_GATE")
	}
}

func TestNewCatalogRejectsUnknownFlag(t *testing.T) {
	_, err := NewCatalog([]Entry{{Name: "FOO", Flags: []string{"NOT_A_FLAG"}}})
	if err == nil {
		t.Fatalf("expected error for unknown flag name")
	}
}

func TestNewCatalogRejectsDuplicateName(t *testing.T) {
	_, err := NewCatalog([]Entry{
		{Name: "FOO", Flags: nil},
		{Name: "foo", Flags: nil},
	})
	if err == nil {
		t.Fatalf("expected error for duplicate gate name")
	}
}

func TestLoadFileReplacesDefaultCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	contents := "gates:\n  - name: FROB\n    flags: [PRODUCES_RESULTS]\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing custom catalog: %v", err)
	}

	cat, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(%q) error: %v", path, err)
	}

	g, ok := cat.Lookup("FROB")
	if !ok || g.Flags != ProducesResults {
		t.Fatalf("Lookup(FROB) = %v, %v; want a ProducesResults gate", g, ok)
	}
	if _, ok := cat.Lookup("H"); ok {
		t.Errorf("custom catalog should not carry over the default H gate")
	}
}

func TestLoadFileRejectsMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a nonexistent catalog file")
	}
}

func TestByIDRoundTrip(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	g, ok := cat.Lookup("H")
	if !ok {
		t.Fatalf("Lookup(H) failed")
	}
	g2, ok := cat.ByID(g.ID)
	if !ok || g2 != g {
		t.Errorf("ByID(%d) = %v, %v; want %v, true", g.ID, g2, ok, g)
	}
}
