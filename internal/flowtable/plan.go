package flowtable

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ecohydro/rhessysflow/internal/grass"
	"github.com/ecohydro/rhessysflow/internal/metadata"
	"github.com/ecohydro/rhessysflow/internal/paths"
)

// Plan is everything a createflowpaths run needs, resolved from metadata.
type Plan struct {
	ProjectDir string

	// Absolute paths. None of them are checked for existence; a missing
	// file surfaces as a createflowpaths failure.
	CFBin    string
	Template string
	FlowOut  string

	GRASS grass.Location

	// GRASS raster names.
	DEM        string
	Slope      string
	Stream     string
	Road       string
	Roof       string // empty unless routing through roofs
	Impervious string // empty unless routing through roofs

	// CellSize is the DEM x resolution.
	CellSize    float64
	ResolutionX float64
	ResolutionY float64

	// Flow table names recorded in metadata. Equal unless routing
	// through roofs.
	SurfaceFlowtable    string
	SubsurfaceFlowtable string
}

// ResolutionMismatch reports whether the DEM cells are not square.
func (p *Plan) ResolutionMismatch() bool {
	return p.ResolutionX != p.ResolutionY
}

// Params returns the createflowpaths arguments in a fixed order.
func (p *Plan) Params() []grass.Param {
	return []grass.Param{
		grass.String("out", p.FlowOut),
		grass.String("template", p.Template),
		grass.String("dem", p.DEM),
		grass.String("slope", p.Slope),
		grass.String("stream", p.Stream),
		grass.String("road", p.Road),
		grass.String("roof", p.Roof),
		grass.String("impervious", p.Impervious),
		grass.Float("cellsize", p.CellSize),
	}
}

// FlowtableNames returns the surface and subsurface flow table names for a
// worldfile base name.
func FlowtableNames(base string, routeRoofs bool) (surface, subsurface string) {
	if routeRoofs {
		return base + "_surface.flow", base + "_subsurface.flow"
	}
	name := base + ".flow"
	return name, name
}

func parseResolution(sections sectionSet, k metadata.Key) (float64, error) {
	raw := sections.value(k)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &InvalidMetadataError{Key: k, Value: raw, Err: err}
	}
	return v, nil
}

// resolvePlan builds the plan from metadata that already passed
// checkPreconditions. Every path in the plan is absolute, even when
// projectDir is relative.
func resolvePlan(sections sectionSet, projectDir string, opts Options) (*Plan, error) {
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	resX, err := parseResolution(sections, metadata.DEMResX)
	if err != nil {
		return nil, err
	}
	resY, err := parseResolution(sections, metadata.DEMResY)
	if err != nil {
		return nil, err
	}

	rhessys := paths.NewRHESSys(projectDir, sections.value(metadata.RHESSysDir))
	worldfile := sections.value(metadata.Worldfile)
	if worldfile == "" {
		return nil, &InvalidMetadataError{Key: metadata.Worldfile, Value: worldfile, Err: fmt.Errorf("empty worldfile name")}
	}

	p := &Plan{
		ProjectDir: projectDir,
		CFBin:      paths.Resolve(projectDir, sections.value(metadata.CFBin)),
		Template:   rhessys.Template(sections.value(metadata.Template)),
		FlowOut:    rhessys.FlowTable(worldfile),
		GRASS: grass.Location{
			Dbase:    paths.Resolve(projectDir, sections.value(metadata.GRASSDbase)),
			Location: sections.value(metadata.GRASSLocation),
			Mapset:   sections.value(metadata.GRASSMapset),
		},
		DEM:         sections.value(metadata.DEMRast),
		Slope:       sections.value(metadata.SlopeRast),
		Stream:      sections.value(metadata.StreamsRast),
		Road:        sections.value(metadata.ZeroRast),
		CellSize:    resX,
		ResolutionX: resX,
		ResolutionY: resY,
	}

	if opts.RouteRoads {
		p.Road = sections.value(metadata.RoadsRast)
	}
	if opts.RouteRoofs {
		p.Roof = sections.value(metadata.RoofConnectivityRast)
		p.Impervious = sections.value(metadata.ImperviousRast)
	}
	p.SurfaceFlowtable, p.SubsurfaceFlowtable = FlowtableNames(worldfile, opts.RouteRoofs)

	return p, nil
}
