// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperwarm/config"
	"hyperwarm/daemon/api"
	"hyperwarm/daemon/scheduler"
	"hyperwarm/daemon/secrets"
	"hyperwarm/daemon/tracing"
	"hyperwarm/logger"
	"hyperwarm/manifest"
)

const defaultAddr = "localhost:8080"

func newServeCmd() *cobra.Command {
	var addr string
	var port int
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator daemon: API server plus reconcile loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 && addr == "" {
				addr = fmt.Sprintf(":%d", port)
			}
			if addr != "" {
				cfg.DaemonAddr = addr
			}
			if cfg.DaemonAddr == "" {
				cfg.DaemonAddr = defaultAddr
			}

			showBanner()
			log := logger.New(cfg.LogLevel)
			pterm.Info.Printfln("Starting hyperwarm daemon v%s", version)
			pterm.Info.Printfln("API server will listen on: %s", cfg.DaemonAddr)

			if err := resolveHyperVSecrets(cfg, log); err != nil {
				return fmt.Errorf("resolve Hyper-V credentials: %w", err)
			}

			pterm.Info.Println("Connecting to Hyper-V host...")
			a, err := openApp(cfg, log)
			if err != nil {
				return err
			}
			pterm.Success.Println("Database initialized")

			pterm.Info.Println("Starting reconciliation loop...")
			reconciler := scheduler.New(a.store, a.driver, a.pools, cfg.ReconcileInterval, log)
			if err := reconciler.Start(); err != nil {
				return fmt.Errorf("start reconciler: %w", err)
			}

			var manifestWatcher *fsnotify.Watcher
			if manifestPath != "" {
				if err := applyManifestFile(cmd.Context(), a, manifestPath, log); err != nil {
					pterm.Warning.Printfln("initial manifest apply failed: %v", err)
				}
				manifestWatcher, err = watchManifest(manifestPath, func() {
					if err := applyManifestFile(context.Background(), a, manifestPath, log); err != nil {
						pterm.Warning.Printfln("manifest reload failed: %v", err)
					}
				}, log)
				if err != nil {
					pterm.Warning.Printfln("manifest hot-reload disabled: %v", err)
				}
			}

			tracerProvider, err := tracing.NewProvider(tracing.DefaultConfig("hyperwarm"))
			if err != nil {
				pterm.Warning.Printfln("Tracing disabled: %v", err)
			}
			var httpTracer *tracing.HTTPMiddleware
			if tracerProvider != nil {
				httpTracer = tracing.NewHTTPMiddleware(tracerProvider.Tracer("hyperwarm/api"))
			}

			server := api.NewServer(a.pools, a.lifecycle, a.store, log, cfg.DaemonAddr, httpTracer, cfg.MCPPort)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(context.Background()); err != nil {
					errCh <- err
				}
			}()

			pterm.Success.Println("Daemon started successfully")
			pterm.Info.Println("Press Ctrl+C to stop")
			showEndpoints(cfg.DaemonAddr)

			select {
			case sig := <-sigCh:
				pterm.Warning.Printfln("Received signal: %v", sig)
				pterm.Info.Println("Shutting down gracefully...")

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := server.Shutdown(ctx); err != nil {
					pterm.Error.Printfln("Server shutdown error: %v", err)
				}
				pterm.Info.Println("Stopping reconciler...")
				reconciler.Stop()
				if manifestWatcher != nil {
					manifestWatcher.Close()
				}
				if tracerProvider != nil {
					if err := tracerProvider.Shutdown(ctx); err != nil {
						pterm.Error.Printfln("Tracer shutdown error: %v", err)
					}
				}
				if err := a.Close(); err != nil {
					pterm.Error.Printfln("Database close error: %v", err)
				}
				pterm.Success.Println("Daemon stopped gracefully")
				return nil

			case err := <-errCh:
				reconciler.Stop()
				if manifestWatcher != nil {
					manifestWatcher.Close()
				}
				a.Close()
				return fmt.Errorf("server error: %w", err)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "API server address, e.g. localhost:8080 (overrides --port)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "optional declarative manifest file, applied at startup and on every change")
	cmd.Flags().IntVar(&port, "port", 0, "API server port on all interfaces")
	return cmd
}

// applyManifestFile reloads a declarative manifest and registers any
// template or pool it declares that the store doesn't already have.
func applyManifestFile(ctx context.Context, a *app, path string, log logger.Logger) error {
	m, err := manifest.ReadFromFile(path)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	result, err := manifest.Apply(ctx, a.store, m, log)
	if err != nil {
		return err
	}
	if len(result.TemplatesCreated) > 0 || len(result.PoolsCreated) > 0 {
		log.Info("manifest applied", "templates_created", len(result.TemplatesCreated), "pools_created", len(result.PoolsCreated))
	}
	return nil
}

// watchManifest calls onChange whenever the manifest file is written.
// fsnotify fires per-write, sometimes more than once for a single save
// (editors often write-then-rename); callers must tolerate redundant
// reloads, which applyManifestFile does since Apply is idempotent.
func watchManifest(path string, onChange func(), log logger.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					log.Info("manifest file changed, reapplying", "path", path)
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("manifest watcher error", "error", err)
			}
		}
	}()
	return watcher, nil
}

// resolveHyperVSecrets overlays WinRM credentials resolved from the
// secrets backend onto cfg.HyperV, when a vault is configured. With no
// vault enabled, the credentials already loaded from file/environment are
// used as is.
func resolveHyperVSecrets(cfg *config.Config, log logger.Logger) error {
	if cfg.Vault == nil || !cfg.Vault.Enabled {
		return nil
	}

	mgr, err := secrets.NewSecretManager(&secrets.Config{
		Backend: "vault",
		Vault: &secrets.VaultConfig{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Path,
		},
	})
	if err != nil {
		return fmt.Errorf("build secret manager: %w", err)
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	secret, err := mgr.Get(ctx, "hyperv-winrm")
	if err != nil {
		return fmt.Errorf("fetch hyperv-winrm secret: %w", err)
	}
	if v, ok := secret.Value["username"]; ok && v != "" {
		cfg.HyperV.Username = v
	}
	if v, ok := secret.Value["password"]; ok && v != "" {
		cfg.HyperV.Password = v
	}
	log.Info("resolved Hyper-V credentials from vault", "mount", cfg.Vault.Path)
	return nil
}

func showBanner() {
	pterm.DefaultCenter.Println()

	orange := pterm.NewStyle(pterm.FgLightRed)
	amber := pterm.NewStyle(pterm.FgYellow)

	bigText, _ := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("HYPER", orange),
		pterm.NewLettersFromStringWithStyle("WARM", amber),
	).Srender()

	pterm.DefaultCenter.Println(bigText)

	subtitle := pterm.DefaultCenter.Sprint(pterm.LightYellow("Save-State VM Pool Orchestrator for Hyper-V"))
	pterm.Println(subtitle)
	pterm.Println()
}

func showEndpoints(addr string) {
	baseURL := fmt.Sprintf("http://%s", addr)

	endpoints := [][]string{
		{"Endpoint", "Method", "Description"},
		{baseURL + "/health", "GET", "Health check"},
		{baseURL + "/metrics", "GET", "Prometheus metrics"},
		{baseURL + "/api/v1/templates", "GET", "List registered templates"},
		{baseURL + "/api/v1/pools/{pool}", "GET", "Pool details"},
		{baseURL + "/api/v1/pools/{pool}/vms", "GET", "List VMs in a pool"},
		{baseURL + "/api/v1/vms/{name}", "GET", "VM details"},
		{baseURL + "/api/v1/acquire", "POST", "Acquire a warm VM from a pool"},
		{baseURL + "/api/v1/vms/{name}/release", "POST", "Release a leased VM back to the pool"},
		{baseURL + "/api/v1/vms/{name}/resume", "POST", "Resume a specific VM directly"},
		{baseURL + "/ws", "WS", "VM state change stream"},
		{baseURL + "/api/docs", "GET", "Swagger UI"},
	}

	pterm.DefaultSection.Println("Available API Endpoints")
	pterm.DefaultTable.
		WithHasHeader().
		WithHeaderRowSeparator("-").
		WithBoxed().
		WithData(endpoints).
		Render()
}
