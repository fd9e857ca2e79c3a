// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperwarm/daemon/models"
	"hyperwarm/hverr"
	"hyperwarm/logger"
	"hyperwarm/progress"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Manage VM pools",
	}
	cmd.AddCommand(newPoolCreateCmd(), newPoolProvisionCmd(), newPoolPrepareCmd(), newPoolStatusCmd())
	return cmd
}

func newPoolCreateCmd() *cobra.Command {
	var name, templateName string
	var count int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pool from a registered template",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			tpl, err := st.GetTemplateByName(cmd.Context(), templateName)
			if err != nil {
				return err
			}

			p := &models.Pool{
				ID:           uuid.NewString(),
				Name:         name,
				TemplateID:   tpl.ID,
				DesiredCount: count,
				WarmCount:    count,
				CreatedAt:    time.Now(),
			}
			if !p.Valid() {
				return hverr.New(hverr.KindUsage, "warm_count (%d) must be between 0 and desired_count (%d)", p.WarmCount, p.DesiredCount)
			}
			if err := st.CreatePool(cmd.Context(), p); err != nil {
				return err
			}
			pterm.Success.Printfln("Created pool %q from template %q (desired=%d, warm=%d)", name, templateName, count, count)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "pool name (required)")
	cmd.Flags().StringVar(&templateName, "template", "", "template name to clone from (required)")
	cmd.Flags().IntVar(&count, "count", 1, "desired VM count; also the initial warm target")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("template")
	return cmd
}

func newPoolProvisionCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "provision <pool>",
		Short: "Clone and define additional VM slots in a pool",
		Args:  cobra.ExactArgs(1),
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

			p, err := a.store.GetPoolByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			bar := progress.NewBarProgress(os.Stdout)
			bar.Start(int64(count), fmt.Sprintf("Provisioning %s", args[0]))
			err = a.pools.Provision(cmd.Context(), p.ID, count)
			bar.Add(int64(count))
			bar.Finish()
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Provisioned %d VM(s) in pool %q", count, args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of additional VM slots to create")
	return cmd
}

func newPoolPrepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <pool>",
		Short: "Boot, checkpoint, and save every off VM in a pool",
		Args:  cobra.ExactArgs(1),
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

			p, err := a.store.GetPoolByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			vms, err := a.store.ListVMs(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			pending := 0
			for _, vm := range vms {
				if vm.State == models.StateOff {
					pending++
				}
			}

			bar := progress.NewBarProgress(os.Stdout)
			bar.Start(int64(pending), fmt.Sprintf("Preparing %s", args[0]))
			err = a.pools.Prepare(cmd.Context(), p.ID)
			bar.Add(int64(pending))
			bar.Finish()
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Pool %q warm set prepared", args[0])
			return nil
		},
	}
}

func newPoolStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <pool>",
		Short: "Show a pool's VM state breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.GetPoolByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			vms, err := st.ListVMs(cmd.Context(), p.ID)
			if err != nil {
				return err
			}

			counts := map[models.State]int{}
			warm := 0
			leased := 0
			for _, vm := range vms {
				counts[vm.State]++
				if vm.Eligible() {
					warm++
				}
				if vm.IsLeased() {
					leased++
				}
			}

			pterm.DefaultSection.Printfln("Pool %s", p.Name)
			rows := [][]string{{"Field", "Value"}}
			rows = append(rows,
				[]string{"desired_count", fmt.Sprintf("%d", p.DesiredCount)},
				[]string{"warm_count (target)", fmt.Sprintf("%d", p.WarmCount)},
				[]string{"warm (actual)", fmt.Sprintf("%d", warm)},
				[]string{"leased", fmt.Sprintf("%d", leased)},
				[]string{"total vms", fmt.Sprintf("%d", len(vms))},
			)
			for _, s := range []models.State{models.StateOff, models.StateRunning, models.StateSaved, models.StatePaused, models.StateError} {
				rows = append(rows, []string{string(s), fmt.Sprintf("%d", counts[s])})
			}
			pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(rows).Render()
			return nil
		},
	}
}
