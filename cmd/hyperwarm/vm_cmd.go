// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperwarm/daemon/models"
	"hyperwarm/logger"
)

func newVMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Inspect and control individual VMs",
	}
	cmd.AddCommand(newVMListCmd(), newVMResumeCmd(), newVMSaveCmd(), newVMResetCmd(), newVMInfoCmd())
	return cmd
}

func newVMListCmd() *cobra.Command {
	var poolName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List VMs, optionally filtered to one pool",
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

			var pools []*models.Pool
			if poolName != "" {
				p, err := st.GetPoolByName(cmd.Context(), poolName)
				if err != nil {
					return err
				}
				pools = []*models.Pool{p}
			} else {
				pools, err = st.ListPools(cmd.Context())
				if err != nil {
					return err
				}
			}

			rows := [][]string{{"Name", "Pool", "State", "Leased", "IP", "Last Resumed"}}
			for _, p := range pools {
				vms, err := st.ListVMs(cmd.Context(), p.ID)
				if err != nil {
					return err
				}
				for _, vm := range vms {
					lastResumed := "-"
					if !vm.LastResumedAt.IsZero() {
						lastResumed = vm.LastResumedAt.Format("2006-01-02T15:04:05Z07:00")
					}
					rows = append(rows, []string{vm.Name, p.Name, string(vm.State), fmt.Sprintf("%v", vm.IsLeased()), vm.IPAddress, lastResumed})
				}
			}
			if len(rows) == 1 {
				pterm.Info.Println("No VMs found")
				return nil
			}
			pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(rows).Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&poolName, "pool", "", "restrict listing to one pool")
	return cmd
}

func newVMResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <name>",
		Short: "Resume a specific VM directly, bypassing the pool lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVM(cmd.Context(), args[0], func(a *app, vm *models.VM) error {
				ip, ms, err := a.lifecycle.Resume(cmd.Context(), vm.ID)
				if err != nil {
					return err
				}
				pterm.Success.Printfln("Resumed %s in %dms (ip=%s)", vm.Name, ms, ip)
				return nil
			})
		},
	}
}

func newVMSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save a running VM back to the saved state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVM(cmd.Context(), args[0], func(a *app, vm *models.VM) error {
				if err := a.lifecycle.Save(cmd.Context(), vm.ID); err != nil {
					return err
				}
				pterm.Success.Printfln("Saved %s", vm.Name)
				return nil
			})
		},
	}
}

func newVMResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <name>",
		Short: "Restore a VM to its clean checkpoint and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVM(cmd.Context(), args[0], func(a *app, vm *models.VM) error {
				if err := a.lifecycle.Restore(cmd.Context(), vm.ID, "clean"); err != nil {
					return err
				}
				if err := a.lifecycle.Save(cmd.Context(), vm.ID); err != nil {
					return err
				}
				pterm.Success.Printfln("Reset %s to the clean checkpoint", vm.Name)
				return nil
			})
		},
	}
}

func newVMInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show a VM's full record",
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

			vm, err := st.GetVMByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Field", "Value"},
				{"name", vm.Name},
				{"state", string(vm.State)},
				{"error", vm.ErrorMessage},
				{"disk_path", vm.DiskPath},
				{"saved_state_path", vm.SavedStatePath},
				{"ip_address", vm.IPAddress},
				{"leased", fmt.Sprintf("%v", vm.IsLeased())},
				{"transitioning", vm.Transitioning},
				{"last_resumed_at", vm.LastResumedAt.Format("2006-01-02T15:04:05Z07:00")},
				{"created_at", vm.CreatedAt.Format("2006-01-02T15:04:05Z07:00")},
			}
			pterm.DefaultTable.WithData(rows).Render()
			return nil
		},
	}
}

// withVM opens the full app, resolves name to a VM record, runs fn, and
// closes the app regardless of outcome.
func withVM(ctx context.Context, name string, fn func(a *app, vm *models.VM) error) error {
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

	vm, err := a.store.GetVMByName(ctx, name)
	if err != nil {
		return err
	}
	return fn(a, vm)
}
