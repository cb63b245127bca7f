package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arcadehall/drawbridge/pkg/cli"
	"arcadehall/drawbridge/pkg/config"
	"arcadehall/drawbridge/pkg/router"
)

var validateFlags struct {
	strict bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and route table",
	Long: `Load and validate the configuration, including route table
construction, without starting anything.

Examples:
  drawbridge validate
  drawbridge validate --config /etc/drawbridge/config.yaml

With --strict, warnings (e.g. a missing static root) become errors.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "treat warnings as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	rules, err := config.RouteRules(cfg)
	if err != nil {
		return cli.NewConfigError("routes", err.Error())
	}
	table, err := router.NewTable(rules)
	if err != nil {
		return cli.NewConfigError("routes", err.Error())
	}

	if _, err := buildProber(cfg); err != nil {
		return cli.NewConfigError("probe", err.Error())
	}

	if cfg.Static.Root != "" {
		if info, err := os.Stat(cfg.Static.Root); err != nil || !info.IsDir() {
			if validateFlags.strict {
				return cli.NewConfigError("static.root",
					fmt.Sprintf("%q is not a readable directory", cfg.Static.Root))
			}
			fmt.Printf("warning: static root %q is not a readable directory\n", cfg.Static.Root)
		}
	}

	fmt.Println("Configuration valid")
	fmt.Printf("  listen:  %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  routes:  %d rules\n", len(table.Rules()))
	fmt.Printf("  probe:   %s every %s (budget %d failures)\n",
		cfg.Probe.Kind, cfg.Probe.Interval, cfg.Probe.MaxFailures)
	fmt.Printf("  static:  %s (index %s)\n", cfg.Static.Root, cfg.Static.Index)

	return nil
}
