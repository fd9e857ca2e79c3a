// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's full runtime configuration: storage
// locations, the Hyper-V host connection, pool-wide capacity policy, and
// ambient daemon settings.
type Config struct {
	// StatePath is the SQLite database file backing the store.
	StatePath string `yaml:"state_path"`

	// TemplateRoot is the directory golden template disks are registered
	// from by relative name.
	TemplateRoot string `yaml:"template_root"`

	// VMRoot is the directory differencing disks for pool VMs are created
	// under.
	VMRoot string `yaml:"vm_root"`

	LogLevel   string        `yaml:"log_level"`
	DaemonAddr string        `yaml:"daemon_addr"`
	Timeout    time.Duration `yaml:"timeout"`

	// ReconcileInterval is the reconciler's poll period.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`

	// ReadyPollInterval/WarmReadyTimeout/ColdReadyTimeout govern the
	// wait-for-ready contract: how often to poll a resuming VM's guest
	// connectivity, and the deadlines for the fast and fallback paths.
	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`
	WarmReadyTimeout  time.Duration `yaml:"warm_ready_timeout"`
	ColdReadyTimeout  time.Duration `yaml:"cold_ready_timeout"`

	// HostMemHeadroomMB is the free-memory floor below which the pool
	// controller refuses to boot or resume VMs (acquire, prepare, warm-set
	// top-up); Provision, which only clones and defines, is not checked.
	HostMemHeadroomMB int64 `yaml:"host_mem_headroom_mb"`

	// MCPPort is the well-known guest port callers reach the acquired
	// VM's MCP endpoint on; reported back in acquire responses as
	// "mcp_endpoint" but never dialed by the orchestrator itself
	// (guest-side agent software is a boundary concern, not ours).
	MCPPort int `yaml:"mcp_port"`

	HyperV *HyperVConfig `yaml:"hyperv"`
	Vault  *VaultConfig  `yaml:"vault"`
}

// HyperVConfig holds the Hyper-V host connection the driver dials.
type HyperVConfig struct {
	Host      string `yaml:"host"`       // empty means local PowerShell, no WinRM
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	UseWinRM  bool   `yaml:"use_winrm"`
	WinRMPort int    `yaml:"winrm_port"`
	UseHTTPS  bool   `yaml:"use_https"`
	// SwitchName is the Hyper-V virtual switch new VMs are attached to.
	SwitchName string `yaml:"switch_name"`
}

// VaultConfig holds the HashiCorp Vault backend used to resolve Hyper-V
// credentials when StatePath-adjacent plaintext config is not desired.
type VaultConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// FromEnvironment builds a Config from well-known environment variables,
// applying the same defaults FromFile does.
func FromEnvironment() *Config {
	timeout, _ := strconv.Atoi(getEnv("HYPERWARM_TIMEOUT", "30"))
	reconcile, _ := strconv.Atoi(getEnv("HYPERWARM_RECONCILE_INTERVAL", "60"))
	headroom, _ := strconv.ParseInt(getEnv("HYPERWARM_HOST_MEM_HEADROOM_MB", "2048"), 10, 64)
	mcpPort, _ := strconv.Atoi(getEnv("HYPERWARM_MCP_PORT", "7331"))

	return &Config{
		StatePath:         getEnv("HYPERWARM_STATE_PATH", "./hyperwarm.db"),
		TemplateRoot:      getEnv("HYPERWARM_TEMPLATE_ROOT", "./templates"),
		VMRoot:            getEnv("HYPERWARM_VM_ROOT", "./vms"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DaemonAddr:        getEnv("HYPERWARM_DAEMON_ADDR", "localhost:8080"),
		Timeout:           time.Duration(timeout) * time.Second,
		ReconcileInterval: time.Duration(reconcile) * time.Second,
		ReadyPollInterval: 500 * time.Millisecond,
		WarmReadyTimeout:  30 * time.Second,
		ColdReadyTimeout:  120 * time.Second,
		HostMemHeadroomMB: headroom,
		MCPPort:           mcpPort,
		HyperV: &HyperVConfig{
			Host:      os.Getenv("HYPERWARM_HYPERV_HOST"),
			Username:  os.Getenv("HYPERWARM_HYPERV_USERNAME"),
			Password:  os.Getenv("HYPERWARM_HYPERV_PASSWORD"),
			UseWinRM:   getEnv("HYPERWARM_HYPERV_USE_WINRM", "0") == "1",
			WinRMPort:  5985,
			SwitchName: getEnv("HYPERWARM_HYPERV_SWITCH", "Default Switch"),
		},
	}
}

// FromFile loads configuration from a YAML manifest and fills in any field
// the file left zero-valued with the built-in default.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StatePath == "" {
		cfg.StatePath = "./hyperwarm.db"
	}
	if cfg.TemplateRoot == "" {
		cfg.TemplateRoot = "./templates"
	}
	if cfg.VMRoot == "" {
		cfg.VMRoot = "./vms"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DaemonAddr == "" {
		cfg.DaemonAddr = "localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ReconcileInterval == 0 {
		cfg.ReconcileInterval = 60 * time.Second
	}
	if cfg.ReadyPollInterval == 0 {
		cfg.ReadyPollInterval = 500 * time.Millisecond
	}
	if cfg.WarmReadyTimeout == 0 {
		cfg.WarmReadyTimeout = 30 * time.Second
	}
	if cfg.ColdReadyTimeout == 0 {
		cfg.ColdReadyTimeout = 120 * time.Second
	}
	if cfg.HostMemHeadroomMB == 0 {
		cfg.HostMemHeadroomMB = 2048
	}
	if cfg.MCPPort == 0 {
		cfg.MCPPort = 7331
	}

	if cfg.HyperV == nil {
		cfg.HyperV = &HyperVConfig{WinRMPort: 5985, SwitchName: "Default Switch"}
	} else {
		if cfg.HyperV.WinRMPort == 0 {
			if cfg.HyperV.UseHTTPS {
				cfg.HyperV.WinRMPort = 5986
			} else {
				cfg.HyperV.WinRMPort = 5985
			}
		}
		if cfg.HyperV.SwitchName == "" {
			cfg.HyperV.SwitchName = "Default Switch"
		}
	}

	if cfg.Vault == nil {
		cfg.Vault = &VaultConfig{Enabled: false}
	}
}

// MergeWithEnv overlays environment variables onto a file-loaded Config,
// environment taking precedence. Used so an operator can override a single
// field (e.g. the Hyper-V password) without editing the manifest on disk.
func (c *Config) MergeWithEnv() *Config {
	if v := os.Getenv("HYPERWARM_STATE_PATH"); v != "" {
		c.StatePath = v
	}
	if v := os.Getenv("HYPERWARM_TEMPLATE_ROOT"); v != "" {
		c.TemplateRoot = v
	}
	if v := os.Getenv("HYPERWARM_VM_ROOT"); v != "" {
		c.VMRoot = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HYPERWARM_DAEMON_ADDR"); v != "" {
		c.DaemonAddr = v
	}
	if v := os.Getenv("HYPERWARM_HYPERV_HOST"); v != "" {
		c.HyperV.Host = v
	}
	if v := os.Getenv("HYPERWARM_HYPERV_USERNAME"); v != "" {
		c.HyperV.Username = v
	}
	if v := os.Getenv("HYPERWARM_HYPERV_PASSWORD"); v != "" {
		c.HyperV.Password = v
	}
	if v := os.Getenv("HYPERWARM_HYPERV_SWITCH"); v != "" {
		c.HyperV.SwitchName = v
	}
	if v := os.Getenv("HYPERWARM_MCP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.MCPPort = p
		}
	}
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
