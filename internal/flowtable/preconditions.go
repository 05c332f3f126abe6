package flowtable

import (
	"github.com/ecohydro/rhessysflow/internal/metadata"
)

// unconditionalKeys must be present for every run, checked in this order.
var unconditionalKeys = []metadata.Key{
	metadata.DEMResX,
	metadata.DEMResY,

	metadata.GRASSDbase,
	metadata.GRASSLocation,
	metadata.GRASSMapset,
	metadata.RHESSysDir,
	metadata.CFBin,
	metadata.Worldfile,
	metadata.Template,

	metadata.DEMRast,
	metadata.SlopeRast,
	metadata.StreamsRast,
	metadata.ZeroRast,
}

// RequiredKeys returns the keys a run with opts needs: the unconditional
// keys first, then those implied by the routing flags.
func RequiredKeys(opts Options) []metadata.Key {
	keys := append([]metadata.Key(nil), unconditionalKeys...)
	if opts.RouteRoads {
		keys = append(keys, metadata.RoadsRast)
	}
	if opts.RouteRoofs {
		keys = append(keys, metadata.RoofConnectivityRast, metadata.ImperviousRast)
	}
	return keys
}

// sectionSet is the metadata a stage reads, by section.
type sectionSet map[metadata.Section]metadata.Entries

func (s sectionSet) value(k metadata.Key) string {
	return s[k.Section].Value(k)
}

func checkPreconditions(sections sectionSet, projectDir string, opts Options) error {
	for _, k := range RequiredKeys(opts) {
		if !sections[k.Section].Has(k) {
			return &MissingMetadataError{Key: k, ProjectDir: projectDir}
		}
	}
	return nil
}
