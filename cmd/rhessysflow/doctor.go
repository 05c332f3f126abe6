package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ecohydro/rhessysflow/internal/config"
	"github.com/ecohydro/rhessysflow/internal/flowtable"
	"github.com/ecohydro/rhessysflow/internal/grass"
	"github.com/ecohydro/rhessysflow/internal/metadata"
	"github.com/ecohydro/rhessysflow/internal/version"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, GRASS installation and project health",
		Long: `Diagnose the rhessysflow setup: configuration file, GRASS installation and,
with -p, the project's metadata store, GRASS database and createflowpaths binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			st := newStyles(w)
			failed := false
			check := func(label string, ok bool, msg string) {
				if !ok {
					failed = true
				}
				st.status(w, label, ok, msg)
			}

			st.section(w, "System")
			st.row(w, "rhessysflow version:", version.Version)
			st.row(w, "Go version:", runtime.Version())
			st.row(w, "Platform:", runtime.GOOS+"/"+runtime.GOARCH)

			st.section(w, "Configuration")
			cfgPath, explicit := config.ResolvePath(g.configFile)
			cfg, err := config.Load(g.configFile)
			switch {
			case err != nil:
				check("Config file:", false, err.Error())
			case cfg.Path != "":
				check("Config file:", true, cfg.Path)
			case explicit:
				check("Config file:", false, cfgPath+" not found")
			default:
				st.warning(w, "Config file:", cfgPath+" (using defaults)")
			}

			st.section(w, "GRASS")
			if err := cfg.Validate(); err != nil {
				check("GISBASE:", false, err.Error())
			} else {
				inst, err := grass.Detect(cfg.GRASS.GISBase)
				var verErr *grass.VersionError
				switch {
				case errors.As(err, &verErr):
					check("GISBASE:", true, cfg.GRASS.GISBase)
					check("Version:", false, verErr.Error())
				case err != nil:
					check("GISBASE:", false, err.Error())
				default:
					check("GISBASE:", true, inst.GISBase)
					check("Version:", true, inst.Version)
				}
			}

			if projectDir != "" {
				st.section(w, "Project")
				store, err := openProject(ctx, projectDir, false)
				if err != nil {
					check("Metadata store:", false, err.Error())
				} else {
					defer store.Close()
					check("Metadata store:", true, store.Path())
					failed = doctorProject(cmd, st, store, projectDir) || failed
				}
			}

			fmt.Fprintln(w)
			if failed {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, false)

	return cmd
}

// doctorProject checks the on-disk inputs named by the project's metadata.
// It reports whether any check failed.
func doctorProject(cmd *cobra.Command, st styles, store *metadata.SQLiteStore, projectDir string) bool {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	failed := false

	stage := &flowtable.Stage{Project: flowtable.Project{Dir: projectDir, Store: store}}
	plan, err := stage.Plan(ctx, flowtable.Options{Force: true})
	if err != nil {
		st.status(w, "Flow table inputs:", false, err.Error())
		return true
	}
	st.status(w, "Flow table inputs:", true, "all required entries present")
	if plan.ResolutionMismatch() {
		st.warning(w, "DEM resolution:", fmt.Sprintf("x=%s y=%s (needs --force)",
			grass.FormatFloat(plan.ResolutionX), grass.FormatFloat(plan.ResolutionY)))
	}

	cfOK := isExecutable(plan.CFBin)
	failed = failed || !cfOK
	st.status(w, "createflowpaths:", cfOK, plan.CFBin)

	mapset := filepath.Join(plan.GRASS.Dbase, plan.GRASS.Location, plan.GRASS.Mapset)
	mapsetOK := dirExists(mapset)
	failed = failed || !mapsetOK
	st.status(w, "GRASS mapset:", mapsetOK, mapset)

	templateOK := fileExists(plan.Template)
	failed = failed || !templateOK
	st.status(w, "Template:", templateOK, plan.Template)

	if d := filepath.Dir(plan.FlowOut); dirExists(d) {
		st.status(w, "Flow directory:", true, d)
	} else {
		st.warning(w, "Flow directory:", d+" does not exist")
	}

	return failed
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
