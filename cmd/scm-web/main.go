package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "scm-web",
		Short: "Shadcn Component Manager registry server",
		Long: `scm-web serves the Shadcn Component Manager registry.

Components are published as files in a GitHub repository under
components/<namespace>/<name>/<version>/registry.json. scm-web resolves
that tree into a versioned catalog and serves it over HTTP.

Configuration is read from scm.yaml (or --config) and SCM_* environment
variables. GITHUB_TOKEN is honoured for the GitHub API token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Config file (default: ./scm.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		serveCmd(flags),
		componentsCmd(flags),
		snapshotCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
