// Package grass runs GRASS GIS commands against a project's GRASS database.
package grass

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MinVersion is the oldest GRASS release createflowpaths is known to work with.
const MinVersion = "6.4.0"

// NotFoundError indicates no usable GRASS installation at GISBASE.
type NotFoundError struct {
	GISBase string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("GRASS installation not found at %s: %v", e.GISBase, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// VersionError indicates the GRASS installation is too old.
type VersionError struct {
	Found    string
	Required string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("GRASS version %s is below minimum required %s", e.Found, e.Required)
}

// Install describes a detected GRASS installation.
type Install struct {
	GISBase string // GRASS installation root
	Version string // Parsed version (e.g., "7.8.5")
}

// Detect inspects the GRASS installation rooted at gisbase. The version is
// read from $GISBASE/etc/VERSIONNUMBER.
func Detect(gisbase string) (*Install, error) {
	if strings.TrimSpace(gisbase) == "" {
		return nil, &NotFoundError{GISBase: gisbase, Err: errors.New("GISBASE is empty")}
	}
	info, err := os.Stat(gisbase)
	if err != nil {
		return nil, &NotFoundError{GISBase: gisbase, Err: err}
	}
	if !info.IsDir() {
		return nil, &NotFoundError{GISBase: gisbase, Err: errors.New("not a directory")}
	}

	data, err := os.ReadFile(filepath.Join(gisbase, "etc", "VERSIONNUMBER"))
	if err != nil {
		return nil, &NotFoundError{GISBase: gisbase, Err: err}
	}

	version, err := parseVersion(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to get GRASS version: %w", err)
	}

	if err := validateVersion(version); err != nil {
		return nil, err
	}

	return &Install{GISBase: gisbase, Version: version}, nil
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// parseVersion extracts a semver-compatible version from VERSIONNUMBER.
// Handles formats like:
//   - "7.8.5 2021 ..."
//   - "8.3.0dev 2023 ..."
//   - "6.4"
func parseVersion(content string) (string, error) {
	content = strings.TrimSpace(content)
	m := versionRe.FindStringSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("could not parse version from: %q", content)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return fmt.Sprintf("%s.%s.%s", m[1], m[2], patch), nil
}

// validateVersion checks if the found version meets minimum requirements.
func validateVersion(found string) error {
	foundVer, err := semver.NewVersion(found)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", found, err)
	}

	minVer, err := semver.NewVersion(MinVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", MinVersion, err)
	}

	if foundVer.LessThan(minVer) {
		return &VersionError{
			Found:    found,
			Required: MinVersion,
		}
	}

	return nil
}
