package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecohydro/rhessysflow/internal/ctxlog"
	"github.com/ecohydro/rhessysflow/internal/metadata"
	"github.com/ecohydro/rhessysflow/internal/paths"
)

func newMetadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "metadata",
		Aliases: []string{"md"},
		Short:   "Inspect and edit project metadata",
		Long: `Inspect and edit the metadata store of a project.

Sections: study_area, grass, rhessys. The processing history records
every command that changed the project.`,
	}

	cmd.AddCommand(showMetadataCmd())
	cmd.AddCommand(setMetadataCmd())
	cmd.AddCommand(historyMetadataCmd())
	cmd.AddCommand(importMetadataCmd())
	cmd.AddCommand(exportMetadataCmd())

	return cmd
}

func showMetadataCmd() *cobra.Command {
	var projectDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [section]",
		Short: "Show metadata entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openProject(ctx, projectDir, false)
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := store.ReadAll(ctx)
			if err != nil {
				return err
			}

			sections := metadata.Sections
			if len(args) == 1 {
				sec, err := metadata.ParseSection(args[0])
				if err != nil {
					return err
				}
				sections = []metadata.Section{sec}
			}

			if jsonOutput {
				out := make(map[metadata.Section]metadata.Entries, len(sections))
				for _, sec := range sections {
					if e := all[sec]; e != nil {
						out[sec] = e
					} else {
						out[sec] = metadata.Entries{}
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			printSections(cmd.OutOrStdout(), sections, all)
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func printSections(w io.Writer, sections []metadata.Section, all map[metadata.Section]metadata.Entries) {
	st := newStyles(w)
	for i, sec := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, st.header.Render("["+string(sec)+"]"))
		entries := all[sec]
		if len(entries) == 0 {
			fmt.Fprintln(w, st.muted.Render("  (empty)"))
			continue
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s = %s\n", k, entries[k])
		}
	}
}

func setMetadataCmd() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "set <section> <key> <value>",
		Short: "Set a metadata entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sec, err := metadata.ParseSection(args[0])
			if err != nil {
				return err
			}
			key, err := metadata.ParseKey(sec, args[1])
			if err != nil {
				return err
			}

			store, err := openProject(ctx, projectDir, true)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.WriteEntry(ctx, key, args[2]); err != nil {
				return err
			}
			ctxlog.FromContext(ctx).Debug("metadata entry written", "key", key.String(), "value", args[2])
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)

	return cmd
}

func historyMetadataCmd() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the processing history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openProject(ctx, projectDir, false)
			if err != nil {
				return err
			}
			defer store.Close()

			history, err := store.History(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			st := newStyles(w)
			if len(history) == 0 {
				fmt.Fprintln(w, st.muted.Render("No processing history."))
				return nil
			}
			for _, h := range history {
				fmt.Fprintf(w, "%4d  %s  %s\n     %s\n",
					h.Seq,
					h.RecordedAt.Local().Format(time.DateTime),
					st.muted.Render(h.RunID),
					h.CommandLine)
			}
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)

	return cmd
}

func importMetadataCmd() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a legacy metadata.txt file",
		Long: `Import an INI metadata file written by the Python workflow tools.

The file defaults to metadata.txt in the project directory. Entries in the
study_area, grass and rhessys sections are copied; processing history
(cmd1..cmdN) is appended in order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file := paths.LegacyMetadataFile(projectDir)
			if len(args) == 1 {
				file = args[0]
			}

			store, err := openProject(ctx, projectDir, true)
			if err != nil {
				return err
			}
			defer store.Close()

			sum, err := metadata.ImportLegacy(ctx, store, file)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			st := newStyles(w)
			fmt.Fprintf(w, "%s %d entries, %d history items from %s\n",
				st.ok.Render("Imported"), sum.Entries, sum.History, file)
			if len(sum.SkippedSections) > 0 {
				fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("Skipped sections: %v", sum.SkippedSections)))
			}
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)

	return cmd
}

func exportMetadataCmd() *cobra.Command {
	var projectDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export metadata as a legacy metadata.txt file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file := paths.LegacyMetadataFile(projectDir)
			if len(args) == 1 {
				file = args[0]
			}
			if fileExists(file) && !overwrite {
				return fmt.Errorf("%s already exists (use --overwrite to replace it)", file)
			}

			store, err := openProject(ctx, projectDir, false)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := metadata.ExportLegacy(ctx, store, file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
			return nil
		},
	}

	addProjectFlag(cmd, &projectDir, true)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")

	return cmd
}
