package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arcadehall/drawbridge/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "drawbridge",
	Short: "Drawbridge - startup-gated front door for web applications",
	Long: `Drawbridge is the front door for a web application: a reverse proxy
that serves the static asset bundle, load-balances API traffic across
backend replicas, and gates backend startup on datastore readiness.

It provides:
  - Longest-prefix route dispatch between static assets and API upstreams
  - Round-robin balancing over a dynamic upstream pool
  - A readiness gate that probes the datastore before the backend starts
  - An audit trail of probe attempts and dispatch outcomes`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCodeFor(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Flag parse failures are usage errors, not runtime errors.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.NewUsageError(err.Error())
	})
}
