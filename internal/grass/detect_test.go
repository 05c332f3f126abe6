package grass

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "release with date", content: "7.8.5 2021 RELEASE\n", want: "7.8.5"},
		{name: "dev build", content: "8.3.0dev 2023", want: "8.3.0"},
		{name: "major minor only", content: "6.4", want: "6.4.0"},
		{name: "legacy", content: "6.4.3", want: "6.4.3"},
		{name: "invalid format", content: "not a version", wantErr: true},
		{name: "empty", content: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersion(tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVersion() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{name: "exact minimum", version: "6.4.0"},
		{name: "newer", version: "8.3.0"},
		{name: "older", version: "6.3.0", wantErr: true},
		{name: "invalid", version: "x.y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateVersion(tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
		})
	}
}

func fakeGISBase(t *testing.T, version string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "etc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "etc", "VERSIONNUMBER"), []byte(version), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDetect(t *testing.T) {
	gisbase := fakeGISBase(t, "7.8.5 2021\n")
	inst, err := Detect(gisbase)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if inst.Version != "7.8.5" || inst.GISBase != gisbase {
		t.Errorf("unexpected install %+v", inst)
	}
}

func TestDetectTooOld(t *testing.T) {
	_, err := Detect(fakeGISBase(t, "6.2.3"))
	var verErr *VersionError
	if !errors.As(err, &verErr) {
		t.Fatalf("expected VersionError, got %v", err)
	}
	if verErr.Found != "6.2.3" || verErr.Required != MinVersion {
		t.Errorf("unexpected VersionError %+v", verErr)
	}
}

func TestDetectNotFound(t *testing.T) {
	for name, gisbase := range map[string]string{
		"empty":           "",
		"missing dir":     filepath.Join(t.TempDir(), "nope"),
		"no version file": t.TempDir(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Detect(gisbase)
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("expected NotFoundError, got %v", err)
			}
		})
	}
}
