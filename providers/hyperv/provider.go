// SPDX-License-Identifier: LGPL-3.0-or-later

package hyperv

import (
	"time"

	"hyperwarm/logger"
	"hyperwarm/providers"
)

// DriverConfig is the subset of operator configuration needed to construct
// a Hyper-V providers.Driver: host connection parameters plus credentials
// resolved from the secrets backend.
type DriverConfig struct {
	Host      string
	Username  string
	Password  string
	UseWinRM  bool
	WinRMPort int
	UseHTTPS  bool
	Timeout   time.Duration
}

// NewDriver constructs a providers.Driver backed by a Hyper-V host. Local
// (same-machine) operation is the default; setting Host switches to WinRM.
func NewDriver(cfg DriverConfig, log logger.Logger) (providers.Driver, error) {
	useWinRM := cfg.UseWinRM || cfg.Host != ""
	client, err := NewClient(&Config{
		Host:      cfg.Host,
		Username:  cfg.Username,
		Password:  cfg.Password,
		UseWinRM:  useWinRM,
		WinRMPort: cfg.WinRMPort,
		UseHTTPS:  cfg.UseHTTPS,
		Timeout:   cfg.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
