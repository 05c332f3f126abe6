// Package paths provides directory paths for rhessysflow.
//
// Two kinds of location live here:
//
//   - User configuration: ~/.config/rhessysflow/config.yaml on Unix,
//     %LOCALAPPDATA%\rhessysflow\config.yaml on Windows. Used only when
//     neither -i nor ECOHYDROWORKFLOW_CFG names a config file.
//   - Project layout: the metadata store and the RHESSys directory tree
//     (templates, flow tables, worldfiles) under a project directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rhessysflow"

// ConfigDir returns the user config directory for rhessysflow.
//
// Unix (macOS, Linux): ~/.config/rhessysflow
// Windows: %LOCALAPPDATA%\rhessysflow
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			home, _ := os.UserHomeDir()
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(localAppData, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// ConfigFile returns the path to the user config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// MetadataDir returns the directory holding the project's metadata store.
func MetadataDir(projectDir string) string {
	return filepath.Join(projectDir, "."+appName)
}

// MetadataDB returns the path of the project's SQLite metadata store.
func MetadataDB(projectDir string) string {
	return filepath.Join(MetadataDir(projectDir), "metadata.db")
}

// LegacyMetadataFile returns the path of the INI metadata file written by
// earlier workflow tooling.
func LegacyMetadataFile(projectDir string) string {
	return filepath.Join(projectDir, "metadata.txt")
}

// Resolve joins p onto base unless p is already absolute, in which case p
// wins. Metadata values may hold either form.
func Resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// RHESSys describes the RHESSys directory tree inside a project.
type RHESSys struct {
	// Dir is the absolute RHESSys root, i.e. projectDir joined with the
	// rhessys_dir metadata value.
	Dir string
}

// NewRHESSys returns the layout rooted at rhessysDir inside projectDir.
func NewRHESSys(projectDir, rhessysDir string) RHESSys {
	return RHESSys{Dir: Resolve(projectDir, rhessysDir)}
}

// Bin is where RHESSys binaries, including createflowpaths, are built.
func (r RHESSys) Bin() string { return filepath.Join(r.Dir, "bin") }

// Src holds RHESSys sources.
func (r RHESSys) Src() string { return filepath.Join(r.Dir, "src") }

// Defs holds parameter definition files.
func (r RHESSys) Defs() string { return filepath.Join(r.Dir, "defs") }

// Flow holds generated flow tables.
func (r RHESSys) Flow() string { return filepath.Join(r.Dir, "flow") }

// Obs holds observation data.
func (r RHESSys) Obs() string { return filepath.Join(r.Dir, "obs") }

// Output holds model output.
func (r RHESSys) Output() string { return filepath.Join(r.Dir, "output") }

// Templates holds worldfile and flow routing templates.
func (r RHESSys) Templates() string { return filepath.Join(r.Dir, "templates") }

// Tecfiles holds temporal event control files.
func (r RHESSys) Tecfiles() string { return filepath.Join(r.Dir, "tecfiles") }

// Worldfiles holds generated worldfiles.
func (r RHESSys) Worldfiles() string { return filepath.Join(r.Dir, "worldfiles") }

// Template returns the path of a named template file.
func (r RHESSys) Template(name string) string {
	return filepath.Join(r.Templates(), name)
}

// FlowTable returns the path of a flow table output with the given base name.
func (r RHESSys) FlowTable(base string) string {
	return filepath.Join(r.Flow(), base)
}
