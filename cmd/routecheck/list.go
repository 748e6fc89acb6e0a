package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/routetable"
	"github.com/vango-dev/routecheck/pkg/urlcheck"
)

func convertersCmd(opts *projectOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "converters",
		Short: "List the placeholder converters",
		Long: `List the converters available to route patterns: the built-in ones,
those declared in routecheck.json and those declared by the route table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(opts)
			if err != nil {
				return err
			}
			reg, err := p.registry()
			if err != nil {
				return err
			}
			// The route table may declare more converters.
			if _, err := routetable.Load(p.cfg.RoutesPath(), reg); err != nil && errors.Code(err) != errors.CodeRoutesNotFound {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tREGEXP")
			for _, c := range reg.Converters() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Output, c.Regexp)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nText aliases: %s\n", strings.Join(reg.TextAliases(), ", "))
			return nil
		},
	}
}

func codesCmd() *cobra.Command {
	var host bool

	cmd := &cobra.Command{
		Use:   "codes",
		Short: "List diagnostic codes",
		Long: `List the diagnostic codes a check can report. Short codes (E002)
are accepted wherever codes are configured, e.g. in "silenced".

With --host, list the error codes of the routecheck command itself.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			if host {
				fmt.Fprintln(w, "CODE\tCATEGORY\tMESSAGE")
				for _, code := range errors.GetAllCodes() {
					t, _ := errors.GetTemplate(code)
					fmt.Fprintf(w, "%s\t%s\t%s\n", code, t.Category, t.Message)
				}
				return
			}

			fmt.Fprintln(w, "ID\tLEVEL\tTITLE")
			for _, c := range urlcheck.Codes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Level, c.Title)
			}
		},
	}

	cmd.Flags().BoolVar(&host, "host", false, "List routecheck error codes instead")

	return cmd
}
