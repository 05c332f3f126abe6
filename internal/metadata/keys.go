// Package metadata is the typed view of a project's metadata store.
//
// Entries are grouped into sections. Every key the flowtable stage reads or
// writes is declared here with the section it belongs to and the phrase used
// when it is missing, so callers never spell raw strings.
package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

// Section names a logical partition of the metadata store.
type Section string

const (
	SectionStudyArea Section = "study_area"
	SectionGRASS     Section = "grass"
	SectionRHESSys   Section = "rhessys"

	// SectionProcessing only exists in legacy INI files, where it holds the
	// processing history as cmd1..cmdN.
	SectionProcessing Section = "processing"
)

// Sections lists the entry sections in display order.
var Sections = []Section{SectionStudyArea, SectionGRASS, SectionRHESSys}

// ParseSection validates a section name from user input.
func ParseSection(s string) (Section, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", fmt.Errorf("unknown metadata section %q (want one of %s)", s, sectionList())
}

func sectionList() string {
	names := make([]string, len(Sections))
	for i, s := range Sections {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Key is a metadata key bound to its section.
type Key struct {
	Section Section
	Name    string
	// Description completes "does not contain ..." in error messages.
	Description string
}

func (k Key) String() string {
	return string(k.Section) + "." + k.Name
}

// Study area keys.
var (
	DEMResX = Key{SectionStudyArea, "dem_res_x", "a DEM x resolution"}
	DEMResY = Key{SectionStudyArea, "dem_res_y", "a DEM y resolution"}
)

// RHESSys keys.
var (
	GRASSDbase          = Key{SectionRHESSys, "grass_dbase", "a GRASS Dbase"}
	GRASSLocation       = Key{SectionRHESSys, "grass_location", "a GRASS location"}
	GRASSMapset         = Key{SectionRHESSys, "grass_mapset", "a GRASS mapset"}
	RHESSysDir          = Key{SectionRHESSys, "rhessys_dir", "a RHESSys directory"}
	CFBin               = Key{SectionRHESSys, "cf_bin", "a createflowpaths executable"}
	Worldfile           = Key{SectionRHESSys, "worldfile", "a worldfile"}
	Template            = Key{SectionRHESSys, "template", "a template"}
	SurfaceFlowtable    = Key{SectionRHESSys, "surface_flowtable", "a surface flowtable"}
	SubsurfaceFlowtable = Key{SectionRHESSys, "subsurface_flowtable", "a subsurface flowtable"}
)

// GRASS raster keys.
var (
	DEMRast              = Key{SectionGRASS, "dem_rast", "a GRASS dataset with a DEM raster"}
	SlopeRast            = Key{SectionGRASS, "slope_rast", "a GRASS dataset with a slope raster"}
	StreamsRast          = Key{SectionGRASS, "streams_rast", "a GRASS dataset with a stream raster"}
	ZeroRast             = Key{SectionGRASS, "zero_rast", "a GRASS dataset with a zero raster"}
	RoadsRast            = Key{SectionGRASS, "roads_rast", "a GRASS dataset with a roads raster"}
	RoofConnectivityRast = Key{SectionGRASS, "roof_connectivity_rast", "a GRASS dataset with a roofs raster"}
	ImperviousRast       = Key{SectionGRASS, "impervious_rast", "a GRASS dataset with an impervious raster"}
)

var knownKeys = []Key{
	DEMResX, DEMResY,
	GRASSDbase, GRASSLocation, GRASSMapset, RHESSysDir, CFBin, Worldfile, Template,
	SurfaceFlowtable, SubsurfaceFlowtable,
	DEMRast, SlopeRast, StreamsRast, ZeroRast, RoadsRast, RoofConnectivityRast, ImperviousRast,
}

var keyNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ParseKey validates a key name within section. Keys written by other
// workflow steps are accepted as long as the name is well formed.
func ParseKey(section Section, name string) (Key, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for _, k := range knownKeys {
		if k.Section == section && k.Name == name {
			return k, nil
		}
	}
	if !keyNameRe.MatchString(name) {
		return Key{}, fmt.Errorf("invalid metadata key %q: use lowercase letters, digits and underscores", name)
	}
	return Key{Section: section, Name: name, Description: name}, nil
}

// Entries is the content of one section.
type Entries map[string]string

// Get returns the value stored for k.
func (e Entries) Get(k Key) (string, bool) {
	v, ok := e[k.Name]
	return v, ok
}

// Has reports whether k is present.
func (e Entries) Has(k Key) bool {
	_, ok := e[k.Name]
	return ok
}

// Value returns the value for k or the empty string.
func (e Entries) Value(k Key) string {
	return e[k.Name]
}
