package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/shipyard/internal/app"
	"github.com/vango-dev/shipyard/internal/ships"
	"github.com/vango-dev/shipyard/pkg/action"
)

func actionsCmd() *cobra.Command {
	var manifest bool

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the registered server actions",
		Long: `List every export of every registered action module and whether it
can be invoked from the browser.

With --manifest, print a manifest allowing every published action.
Point actions.manifest at the file to restrict dispatch to it.

Examples:
  shipyard actions
  shipyard actions --manifest > actions.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := action.NewRegistry()
			app.New(ships.NewMemoryStore(nil), slog.Default()).Register(registry)

			entries, err := registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if manifest {
				return writeManifest(cmd.OutOrStdout(), entries)
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().BoolVarP(&manifest, "manifest", "m", false, "Print a YAML manifest of published actions")

	return cmd
}

func writeManifest(w io.Writer, entries []action.Entry) error {
	var m action.Manifest
	for _, e := range entries {
		if e.Published {
			m.Actions = append(m.Actions, e.Ref.String())
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&m); err != nil {
		return err
	}
	return enc.Close()
}

func writeEntries(w io.Writer, entries []action.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tPUBLISHED\tALLOWED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Ref, yesNo(e.Published), yesNo(e.Allowed))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
