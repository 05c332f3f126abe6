package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecohydro/rhessysflow/internal/config"
	"github.com/ecohydro/rhessysflow/internal/ctxlog"
	"github.com/ecohydro/rhessysflow/internal/flowtable"
	"github.com/ecohydro/rhessysflow/internal/grass"
	"github.com/ecohydro/rhessysflow/internal/metadata"
)

func addRoutingFlags(cmd *cobra.Command, opts *flowtable.Options) {
	cmd.Flags().BoolVar(&opts.RouteRoads, "routeRoads", false,
		"route flow from roads to the nearest stream pixel (requires roads_rast in metadata)")
	cmd.Flags().BoolVar(&opts.RouteRoofs, "routeRoofs", false,
		"route flow from roof tops to the nearest impervious surface (requires roof_connectivity_rast and impervious_rast in metadata)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false,
		"run createflowpaths even if DEM x resolution does not match y resolution")
}

func newCreateFlowtableCmd(g *globalOptions) *cobra.Command {
	var projectDir string
	var opts flowtable.Options

	cmd := &cobra.Command{
		Use:     "create-flowtable",
		Aliases: []string{"createflowtable"},
		Short:   "Create a RHESSys flow table with createflowpaths",
		Long: `Create a RHESSys flow table using GRASS GIS data and the createflowpaths utility.

Requires in the project metadata:
  study_area: dem_res_x, dem_res_y
  rhessys:    grass_dbase, grass_location, grass_mapset, rhessys_dir,
              cf_bin, worldfile, template
  grass:      dem_rast, slope_rast, streams_rast, zero_rast
              roads_rast (--routeRoads)
              roof_connectivity_rast, impervious_rast (--routeRoofs)

On success writes surface_flowtable and subsurface_flowtable to the
rhessys section and records the command line in the processing history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := ctxlog.FromContext(ctx)

			cfg, err := config.Load(g.configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if inst, err := grass.Detect(cfg.GRASS.GISBase); err != nil {
				log.Warn("could not verify GRASS installation", "gisbase", cfg.GRASS.GISBase, "err", err)
			} else {
				log.Debug("using GRASS", "gisbase", inst.GISBase, "version", inst.Version)
			}

			store, err := openProject(ctx, projectDir, false)
			if err != nil {
				return err
			}
			defer store.Close()

			opts.CommandLine = commandLine(os.Args)
			stage := &flowtable.Stage{
				Project:   flowtable.Project{Dir: projectDir, Store: store},
				OpenGRASS: grassOpener(cfg, g.verbose),
				OnWarning: warningPrinter(cmd.OutOrStdout()),
			}

			res, err := stage.Run(ctx, opts)
			if err != nil {
				return err
			}

			st := newStyles(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), st.ok.Render("Flow table created"))
			st.row(cmd.OutOrStdout(), "surface_flowtable:", res.Plan.SurfaceFlowtable)
			st.row(cmd.OutOrStdout(), "subsurface_flowtable:", res.Plan.SubsurfaceFlowtable)
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)
	addRoutingFlags(cmd, &opts)

	return cmd
}

func grassOpener(cfg config.Config, verbose bool) flowtable.GRASSOpener {
	return func(loc grass.Location) (grass.Commander, error) {
		s, err := grass.NewSession(cfg.GRASS.GISBase, loc)
		if err != nil {
			return nil, err
		}
		if verbose {
			s.Stderr = os.Stderr
		}
		return s, nil
	}
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	var projectDir string
	var opts flowtable.Options

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check flow table inputs and show the createflowpaths invocation",
		Long: `Check that the project metadata holds every input create-flowtable needs
and print the resolved createflowpaths command without running it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := openProject(ctx, projectDir, false)
			if err != nil {
				return err
			}
			defer store.Close()

			stage := &flowtable.Stage{
				Project:   flowtable.Project{Dir: projectDir, Store: store},
				OnWarning: warningPrinter(out),
			}
			plan, err := stage.Plan(ctx, opts)
			if err != nil {
				return err
			}

			printPlan(out, plan)
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)
	addRoutingFlags(cmd, &opts)

	return cmd
}

func printPlan(w io.Writer, plan *flowtable.Plan) {
	st := newStyles(w)

	st.section(w, "Preconditions")
	st.status(w, "metadata:", true, "all required entries present")
	st.status(w, "resolution:", !plan.ResolutionMismatch(),
		fmt.Sprintf("x=%s y=%s", grass.FormatFloat(plan.ResolutionX), grass.FormatFloat(plan.ResolutionY)))

	st.section(w, "GRASS")
	st.row(w, "dbase:", plan.GRASS.Dbase)
	st.row(w, "location:", plan.GRASS.Location)
	st.row(w, "mapset:", plan.GRASS.Mapset)

	st.section(w, "createflowpaths")
	st.row(w, "executable:", plan.CFBin)
	for _, a := range grass.Args(plan.Params()) {
		st.row(w, "", a)
	}

	st.section(w, "Metadata to write")
	st.row(w, metadata.SurfaceFlowtable.Name+":", plan.SurfaceFlowtable)
	st.row(w, metadata.SubsurfaceFlowtable.Name+":", plan.SubsurfaceFlowtable)
	fmt.Fprintln(w)
}
