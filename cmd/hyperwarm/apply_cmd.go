// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperwarm/logger"
	"hyperwarm/manifest"
)

func newApplyCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register every template and pool declared in a manifest file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			m, err := manifest.ReadFromFile(path)
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}
			result, err := manifest.Apply(cmd.Context(), st, m, log)
			if err != nil {
				return err
			}

			for _, name := range result.TemplatesCreated {
				pterm.Success.Printfln("template %q created", name)
			}
			for _, name := range result.TemplatesSkipped {
				pterm.Info.Printfln("template %q already exists, skipped", name)
			}
			for _, name := range result.PoolsCreated {
				pterm.Success.Printfln("pool %q created", name)
			}
			for _, name := range result.PoolsSkipped {
				pterm.Info.Printfln("pool %q already exists, skipped", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "path to the manifest YAML file (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}
