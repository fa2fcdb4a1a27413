package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListModsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list-mods <config>",
		Short: "List modifiers available for a configuration",
		Long: `List the modifiers discovered for a configuration file, every version
of each, and the version default resolution would select against the
configuration's own version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}

			report, err := app.Service.ListModifiers(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Available modifiers for "+report.ConfigName))
			if report.BaseVersion != "" {
				fmt.Fprintf(out, "Base version: %s\n\n", report.BaseVersion)
			} else {
				fmt.Fprintf(out, "Base version: %s\n\n", dimStyle.Render("unversioned"))
			}

			if len(report.Modifiers) == 0 {
				fmt.Fprintln(out, dimStyle.Render("No modifiers found"))
				return nil
			}

			for _, m := range report.Modifiers {
				fmt.Fprintf(out, "  %s\n", titleStyle.Render(m.Name))
				for i, v := range m.Available {
					marker := " "
					label := v
					if v == m.Selected {
						marker = selectedStyle.Render("*")
						label = selectedStyle.Render(v)
					}
					fmt.Fprintf(out, "    %s %s  %s\n", marker, label, dimStyle.Render(m.Paths[i]))
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, dimStyle.Render("* = version selected for this configuration"))
			fmt.Fprintln(out, dimStyle.Render("Use --apply-mods <name>:<version> to pin a version explicitly"))
			return nil
		},
	}
}
