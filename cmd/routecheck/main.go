package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/term"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errChecksFailed makes the process exit 1 after the report was printed.
var errChecksFailed = stderrors.New("route checks failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !stderrors.Is(err, errChecksFailed) {
			errors.PrintError(err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts projectOptions

	rootCmd := &cobra.Command{
		Use:   "routecheck",
		Short: "Check route tables against handler signatures",
		Long: `routecheck statically checks a route table against the handlers it
dispatches to.

For every endpoint it compares the typed placeholders of the route
(<int:year>) with the parameters the handler declares, and reports
mismatches, missing parameters and unresolvable handlers without
running any of them.

Handler signatures come from Go source directories (--src) and from
the "signatures" section of the route table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to routecheck.json (default: search upward from the working directory)")
	rootCmd.PersistentFlags().StringVarP(&opts.routes, "routes", "r", "", "Route table file (default from config)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.sources, "src", nil, "Go source directories with handlers (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every checked endpoint")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		checkCmd(&opts),
		serveCmd(&opts),
		convertersCmd(&opts),
		codesCmd(),
		versionCmd(),
	)

	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", term.Green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", fmt.Sprintf(format, args...))
}
