// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperwarm/daemon/scheduler"
	"hyperwarm/logger"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconcile pass against every pool, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			a, err := openApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			r := scheduler.New(a.store, a.driver, a.pools, cfg.ReconcileInterval, log)
			if err := r.TriggerNow(cmd.Context()); err != nil {
				return err
			}
			pterm.Success.Println("Reconcile pass complete")
			return nil
		},
	}
}
