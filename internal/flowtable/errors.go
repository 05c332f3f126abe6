package flowtable

import (
	"fmt"
	"strings"

	"github.com/ecohydro/rhessysflow/internal/metadata"
)

// MissingMetadataError reports a required metadata key that is absent.
type MissingMetadataError struct {
	Key        metadata.Key
	ProjectDir string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("metadata in project directory %s does not contain %s", e.ProjectDir, e.Key.Description)
}

// InvalidMetadataError reports a metadata value that cannot be interpreted.
type InvalidMetadataError struct {
	Key   metadata.Key
	Value string
	Err   error
}

func (e *InvalidMetadataError) Error() string {
	return fmt.Sprintf("metadata %s has invalid value %q: %v", e.Key, e.Value, e.Err)
}

func (e *InvalidMetadataError) Unwrap() error {
	return e.Err
}

// ResolutionMismatchError reports differing DEM x and y resolutions when
// the caller did not force the run.
type ResolutionMismatchError struct {
	X, Y float64
}

func (e *ResolutionMismatchError) Error() string {
	return fmt.Sprintf("DEM x resolution (%f) does not match y resolution (%f); use --force to override", e.X, e.Y)
}

// InvocationError reports a failed createflowpaths run. Err is usually a
// *grass.CommandError holding the raw output.
type InvocationError struct {
	Program string
	Err     error
	// Output is whatever the tool wrote to stdout before failing.
	Output string
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("createflowpaths failed (%s): %v", e.Program, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\noutput:\n" + out
	}
	return msg
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
