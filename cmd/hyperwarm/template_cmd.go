// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperwarm/daemon/models"
	"hyperwarm/logger"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage golden VM templates",
	}
	cmd.AddCommand(newTemplateRegisterCmd(), newTemplateListCmd())
	return cmd
}

func newTemplateRegisterCmd() *cobra.Command {
	var name, vhdx string
	var memMB, cpus int

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a golden disk image as a template",
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

			tpl := &models.Template{
				ID:           uuid.NewString(),
				Name:         name,
				DiskPath:     vhdx,
				DefaultMemMB: memMB,
				DefaultCPUs:  cpus,
				CreatedAt:    time.Now(),
			}
			if err := st.CreateTemplate(cmd.Context(), tpl); err != nil {
				return err
			}
			log.Info("registered template", "name", name, "vhdx", vhdx)
			pterm.Success.Printfln("Registered template %q (%s, %d MB, %d vCPU)", name, vhdx, memMB, cpus)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name (required)")
	cmd.Flags().StringVar(&vhdx, "vhdx", "", "path to the golden disk image (required)")
	cmd.Flags().IntVar(&memMB, "memory", 2048, "default memory in MB for VMs cloned from this template")
	cmd.Flags().IntVar(&cpus, "cpus", 2, "default vCPU count for VMs cloned from this template")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("vhdx")
	return cmd
}

func newTemplateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered templates",
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

			templates, err := st.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				pterm.Info.Println("No templates registered")
				return nil
			}

			rows := [][]string{{"Name", "Disk", "Memory MB", "CPUs", "GPU"}}
			for _, t := range templates {
				rows = append(rows, []string{t.Name, t.DiskPath, fmt.Sprintf("%d", t.DefaultMemMB), fmt.Sprintf("%d", t.DefaultCPUs), fmt.Sprintf("%v", t.GPUEnabled)})
			}
			pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(rows).Render()
			return nil
		},
	}
}
