package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecohydro/rhessysflow/internal/config"
	"github.com/ecohydro/rhessysflow/internal/ctxlog"
	"github.com/ecohydro/rhessysflow/internal/metadata"
	"github.com/ecohydro/rhessysflow/internal/paths"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "rhessysflow",
		Short: "Build RHESSys flow tables from GRASS GIS data",
		Long: `rhessysflow runs the flow table step of a RHESSys workflow.

It checks that the project's metadata holds every input createflowpaths
needs, runs createflowpaths against the project's GRASS database and
records the resulting flow table names back into the metadata.

The configuration file is taken from -i, then $` + config.EnvConfigFile + `,
then ` + paths.ConfigFile() + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := ctxlog.New(cmd.ErrOrStderr(), opts.verbose)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "configfile", "i", "", "configuration file defining grass.gisbase")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print detailed information about what the program is doing")

	cmd.AddCommand(newCreateFlowtableCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newMetadataCmd())
	cmd.AddCommand(newDoctorCmd(opts))

	return cmd
}

func addProjectFlag(cmd *cobra.Command, dir *string, required bool) {
	cmd.Flags().StringVarP(dir, "projectDir", "p", "", "the project directory holding metadata and generated files")
	if required {
		_ = cmd.MarkFlagRequired("projectDir")
	}
}

// openProject opens the metadata store of projectDir. Without create, a
// project that has no store yet is an error that points at the import command
// when a legacy metadata file is present.
func openProject(ctx context.Context, projectDir string, create bool) (*metadata.SQLiteStore, error) {
	info, err := os.Stat(projectDir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project directory %s is not a directory", projectDir)
	}

	if !create && !fileExists(paths.MetadataDB(projectDir)) {
		if fileExists(paths.LegacyMetadataFile(projectDir)) {
			return nil, fmt.Errorf("project directory %s has no metadata store; import %s with 'rhessysflow metadata import -p %s'",
				projectDir, paths.LegacyMetadataFile(projectDir), projectDir)
		}
		return nil, fmt.Errorf("project directory %s has no metadata store", projectDir)
	}

	return metadata.Open(ctx, projectDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
