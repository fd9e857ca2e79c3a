// SPDX-License-Identifier: LGPL-3.0-or-later

// Command hyperwarm is the single binary for the save-state VM pool
// orchestrator: template/pool/vm administration, a one-shot reconcile
// trigger, and the serve subcommand that runs the daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hyperwarm/config"
	"hyperwarm/daemon/api"
	"hyperwarm/hverr"
)

const version = api.Version

var (
	configFile string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:     "hyperwarm",
		Short:   "Save-state VM pool orchestrator for a single Hyper-V host",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newTemplateCmd(),
		newPoolCmd(),
		newVMCmd(),
		newReconcileCmd(),
		newServeCmd(),
		newApplyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(hverr.ExitCode(err))
	}
}

// loadConfig loads the operator configuration the same way every
// subcommand does: file (if --config was given) merged with environment,
// falling back to environment alone otherwise.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.FromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg = c.MergeWithEnv()
	} else {
		cfg = config.FromEnvironment()
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}
