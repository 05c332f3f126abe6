package metadata

import (
	"strings"
	"testing"
)

func TestParseSection(t *testing.T) {
	tests := []struct {
		in      string
		want    Section
		wantErr bool
	}{
		{"study_area", SectionStudyArea, false},
		{"GRASS", SectionGRASS, false},
		{" rhessys ", SectionRHESSys, false},
		{"processing", "", true},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSection(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseKeyKnown(t *testing.T) {
	k, err := ParseKey(SectionGRASS, "roads_rast")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if k != RoadsRast {
		t.Errorf("ParseKey returned %+v, want RoadsRast", k)
	}
}

func TestParseKeyUnknown(t *testing.T) {
	k, err := ParseKey(SectionRHESSys, "soils_rast")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if k.Section != SectionRHESSys || k.Name != "soils_rast" {
		t.Errorf("unexpected key %+v", k)
	}

	for _, bad := range []string{"", "1abc", "with space", "dash-ed"} {
		if _, err := ParseKey(SectionRHESSys, bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestKeySectionsAndDescriptions(t *testing.T) {
	for _, k := range knownKeys {
		if k.Section == "" || k.Name == "" {
			t.Errorf("incomplete key %+v", k)
		}
		if !strings.HasPrefix(k.Description, "a ") && !strings.HasPrefix(k.Description, "an ") {
			t.Errorf("%s description %q should read as a noun phrase", k, k.Description)
		}
	}
	if DEMResX.String() != "study_area.dem_res_x" {
		t.Errorf("String = %q", DEMResX.String())
	}
}

func TestEntriesAccessors(t *testing.T) {
	e := Entries{"dem_rast": "dem"}
	if v, ok := e.Get(DEMRast); !ok || v != "dem" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if !e.Has(DEMRast) || e.Has(SlopeRast) {
		t.Error("Has reported wrong presence")
	}
	if e.Value(SlopeRast) != "" {
		t.Error("Value of missing key should be empty")
	}
}
