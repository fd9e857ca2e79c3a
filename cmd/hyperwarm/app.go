// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"

	"hyperwarm/config"
	"hyperwarm/daemon/store"
	"hyperwarm/lifecycle"
	"hyperwarm/logger"
	"hyperwarm/pool"
	"hyperwarm/providers"
	"hyperwarm/providers/hyperv"
)

// openStore opens the store alone, for commands that only read or write
// store rows (template/pool registration, listings, status) and never
// touch the hypervisor.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.StatePath, err)
	}
	return st, nil
}

// app bundles every component a hypervisor-touching command needs:
// driver, store, lifecycle controller, pool controller.
type app struct {
	driver    providers.Driver
	store     *store.SQLiteStore
	lifecycle *lifecycle.Controller
	pools     *pool.Controller
}

func (a *app) Close() error {
	return a.store.Close()
}

// openApp builds the full component graph against a live Hyper-V
// connection, the same wiring the daemon uses.
func openApp(cfg *config.Config, log logger.Logger) (*app, error) {
	driver, err := hyperv.NewDriver(hyperv.DriverConfig{
		Host:      cfg.HyperV.Host,
		Username:  cfg.HyperV.Username,
		Password:  cfg.HyperV.Password,
		UseWinRM:  cfg.HyperV.UseWinRM,
		WinRMPort: cfg.HyperV.WinRMPort,
		UseHTTPS:  cfg.HyperV.UseHTTPS,
		Timeout:   cfg.Timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build Hyper-V driver: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	lc := lifecycle.New(st, driver, log, lifecycle.Config{
		VMRoot:            cfg.VMRoot,
		SwitchName:        cfg.HyperV.SwitchName,
		ReadyPollInterval: cfg.ReadyPollInterval,
		WarmReadyTimeout:  cfg.WarmReadyTimeout,
		ColdReadyTimeout:  cfg.ColdReadyTimeout,
	})

	var capacity pool.HostCapacityChecker
	if checker, ok := driver.(pool.HostCapacityChecker); ok {
		capacity = checker
	}
	pools := pool.New(st, lc, capacity, cfg.HostMemHeadroomMB, log)

	return &app{driver: driver, store: st, lifecycle: lc, pools: pools}, nil
}
