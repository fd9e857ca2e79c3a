// SPDX-License-Identifier: LGPL-3.0-or-later

// Package hyperv implements the Hypervisor Driver contract (providers.Driver)
// against a Windows Hyper-V host by shelling out to PowerShell, either
// locally or over WinRM. It escapes every interpolated argument and parses
// structured (JSON) output back into typed records, never retaining state
// between calls.
package hyperv

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"hyperwarm/hverr"
	"hyperwarm/logger"
	"hyperwarm/network"
	"hyperwarm/providers"
)

// Config holds Hyper-V driver configuration.
type Config struct {
	Host      string        // Hyper-V host (empty for local)
	Username  string        // Windows username for WinRM
	Password  string        // Windows password for WinRM
	UseWinRM  bool          // use WinRM for remote connections
	WinRMPort int           // WinRM port (default 5985 for HTTP, 5986 for HTTPS)
	UseHTTPS  bool          // use HTTPS for WinRM
	Timeout   time.Duration // per-command timeout
}

// Client drives a single Hyper-V host and implements providers.Driver.
type Client struct {
	config *Config
	logger logger.Logger
}

var _ providers.Driver = (*Client)(nil)

// NewClient creates a new Hyper-V driver client.
func NewClient(cfg *Config, log logger.Logger) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 1 * time.Minute
	}
	if cfg.WinRMPort == 0 {
		if cfg.UseHTTPS {
			cfg.WinRMPort = 5986
		} else {
			cfg.WinRMPort = 5985
		}
	}

	client := &Client{config: cfg, logger: log}

	if cfg.UseWinRM {
		if err := client.validateConnection(context.Background()); err != nil {
			return nil, fmt.Errorf("validate Hyper-V connection: %w", err)
		}
	}

	return client, nil
}

// quote escapes a single value for safe interpolation into a PowerShell
// single-quoted string literal: PowerShell's own escape for an embedded
// single quote is a doubled quote, not a backslash, so shellquote (POSIX
// rules) is not applicable here — doubling is the correct transform for
// this shell. Argument *identifiers* (VM names, checkpoint names) are also
// restricted to a conservative whitelist before reaching this point.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var nameCharset = func() [256]bool {
	var allowed [256]bool
	for c := 'a'; c <= 'z'; c++ {
		allowed[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		allowed[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		allowed[c] = true
	}
	for _, c := range "-_." {
		allowed[byte(c)] = true
	}
	return allowed
}()

// validateName rejects VM/checkpoint/switch names outside a conservative
// whitelist, per the shell-command-backend design note: reject or quote
// characters outside a whitelisted set.
func validateName(kind, name string) error {
	if name == "" {
		return hverr.New(hverr.KindUsage, "%s name must not be empty", kind)
	}
	for i := 0; i < len(name); i++ {
		if !nameCharset[name[i]] {
			return hverr.New(hverr.KindUsage, "%s name %q contains disallowed character %q", kind, name, string(name[i]))
		}
	}
	return nil
}

// classify turns a raw PowerShell execution failure into a taxonomy error.
// Heuristics follow common Hyper-V cmdlet error text; anything unrecognized
// is treated as transient, so the controller retries it on its bounded
// backoff schedule.
func classify(op, vmName string, output string, err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "cannot find") || strings.Contains(lower, "does not exist") || strings.Contains(lower, "no virtual machine found"):
		return hverr.Wrap(hverr.KindNotFound, err, "%s: VM %q not found", op, vmName)
	case strings.Contains(lower, "access is denied") || strings.Contains(lower, "not supported") || strings.Contains(lower, "invalid parameter"):
		return hverr.Wrap(hverr.KindPermanent, err, "%s failed for VM %q", op, vmName)
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout"):
		return hverr.Wrap(hverr.KindTimeout, err, "%s timed out for VM %q", op, vmName)
	default:
		// Transport/contention failures (WinRM hiccups, transient WMI
		// busy errors) are the common case for a retry to help with.
		return hverr.Wrap(hverr.KindTransient, err, "%s failed for VM %q", op, vmName)
	}
}

// CreateVM implements providers.Driver.
func (c *Client) CreateVM(ctx context.Context, spec providers.CreateVMSpec) error {
	if err := validateName("vm", spec.Name); err != nil {
		return err
	}
	sw := spec.SwitchName
	if sw == "" {
		sw = "Default Switch"
	}

	script := fmt.Sprintf(
		`New-VM -Name %s -MemoryStartupBytes %dMB -Generation 2 -VHDPath %s -SwitchName %s -ErrorAction Stop | Out-Null; `+
			`Set-VMProcessor -VMName %s -Count %d -ErrorAction Stop`,
		quote(spec.Name), spec.MemoryMB, quote(spec.DiskPath), quote(sw),
		quote(spec.Name), maxInt(spec.CPUs, 1),
	)
	if spec.GPUEnabled {
		script += fmt.Sprintf(`; Add-VMGpuPartitionAdapter -VMName %s -ErrorAction SilentlyContinue`, quote(spec.Name))
	}

	out, err := c.run(ctx, script)
	return classify("create_vm", spec.Name, out, err)
}

// CloneDisk implements providers.Driver.
func (c *Client) CloneDisk(ctx context.Context, templateDiskPath, destPath string) error {
	script := fmt.Sprintf(`New-VHD -Path %s -ParentPath %s -Differencing -ErrorAction Stop | Out-Null`,
		quote(destPath), quote(templateDiskPath))
	out, err := c.run(ctx, script)
	return classify("clone_disk", destPath, out, err)
}

// Start implements providers.Driver.
func (c *Client) Start(ctx context.Context, vmName string) error {
	if err := validateName("vm", vmName); err != nil {
		return err
	}
	out, err := c.run(ctx, fmt.Sprintf(`Start-VM -Name %s -ErrorAction Stop`, quote(vmName)))
	return classify("start", vmName, out, err)
}

// Save implements providers.Driver.
func (c *Client) Save(ctx context.Context, vmName string) error {
	if err := validateName("vm", vmName); err != nil {
		return err
	}
	out, err := c.run(ctx, fmt.Sprintf(`Save-VM -Name %s -ErrorAction Stop`, quote(vmName)))
	return classify("save", vmName, out, err)
}

// Stop implements providers.Driver.
func (c *Client) Stop(ctx context.Context, vmName string, graceful bool) error {
	if err := validateName("vm", vmName); err != nil {
		return err
	}
	var script string
	if graceful {
		script = fmt.Sprintf(`Stop-VM -Name %s -ErrorAction Stop`, quote(vmName))
	} else {
		script = fmt.Sprintf(`Stop-VM -Name %s -Force -TurnOff -ErrorAction Stop`, quote(vmName))
	}
	out, err := c.run(ctx, script)
	return classify("stop", vmName, out, err)
}

// Checkpoint implements providers.Driver.
func (c *Client) Checkpoint(ctx context.Context, vmName, checkpointName string) error {
	if err := validateName("vm", vmName); err != nil {
		return err
	}
	if err := validateName("checkpoint", checkpointName); err != nil {
		return err
	}
	out, err := c.run(ctx, fmt.Sprintf(`Checkpoint-VM -Name %s -SnapshotName %s -ErrorAction Stop`,
		quote(vmName), quote(checkpointName)))
	return classify("checkpoint", vmName, out, err)
}

// RestoreCheckpoint implements providers.Driver.
func (c *Client) RestoreCheckpoint(ctx context.Context, vmName, checkpointName string) error {
	if err := validateName("vm", vmName); err != nil {
		return err
	}
	if err := validateName("checkpoint", checkpointName); err != nil {
		return err
	}
	script := fmt.Sprintf(
		`$cp = Get-VMSnapshot -VMName %s -Name %s -ErrorAction Stop; Restore-VMSnapshot -VMSnapshot $cp -Confirm:$false -ErrorAction Stop`,
		quote(vmName), quote(checkpointName))
	out, err := c.run(ctx, script)
	return classify("restore_checkpoint", vmName, out, err)
}

// QueryState implements providers.Driver.
func (c *Client) QueryState(ctx context.Context, vmName string) (providers.VMState, error) {
	if err := validateName("vm", vmName); err != nil {
		return providers.VMStateUnknown, err
	}
	out, err := c.run(ctx, fmt.Sprintf(`(Get-VM -Name %s -ErrorAction Stop).State`, quote(vmName)))
	if err != nil {
		return providers.VMStateUnknown, classify("query_state", vmName, out, err)
	}
	return parseState(strings.TrimSpace(out)), nil
}

func parseState(raw string) providers.VMState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "running":
		return providers.VMStateRunning
	case "off":
		return providers.VMStateOff
	case "saved":
		return providers.VMStateSaved
	case "paused":
		return providers.VMStatePaused
	default:
		return providers.VMStateUnknown
	}
}

// QueryIP implements providers.Driver.
func (c *Client) QueryIP(ctx context.Context, vmName string) (string, error) {
	if err := validateName("vm", vmName); err != nil {
		return "", err
	}
	script := fmt.Sprintf(
		`(Get-VMNetworkAdapter -VMName %s -ErrorAction Stop | Select-Object -ExpandProperty IPAddresses | `+
			`Where-Object { $_ -match '^\d+\.\d+\.\d+\.\d+$' } | Select-Object -First 1)`,
		quote(vmName))
	out, err := c.run(ctx, script)
	if err != nil {
		return "", classify("query_ip", vmName, out, err)
	}
	return strings.TrimSpace(out), nil
}

// HeartbeatOK implements providers.Driver by dialing the guest port
// directly; this is a more faithful readiness signal for an automation
// workload than the hypervisor's own (slow, best-effort) heartbeat
// integration component, and it works identically whether the driver is
// local or WinRM-backed.
func (c *Client) HeartbeatOK(ctx context.Context, vmName string, guestPort int, timeoutMS int) (bool, error) {
	ip, err := c.QueryIP(ctx, vmName)
	if err != nil {
		return false, err
	}
	if ip == "" {
		return false, nil
	}
	return network.DialOK(ctx, ip, guestPort, time.Duration(timeoutMS)*time.Millisecond), nil
}

// ListVMs implements providers.Driver.
func (c *Client) ListVMs(ctx context.Context) ([]providers.VMSummary, error) {
	out, err := c.run(ctx, `Get-VM | Select-Object Name, State | ConvertTo-Json -Depth 2`)
	if err != nil {
		return nil, classify("list_vms", "", out, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	type row struct {
		Name  string `json:"Name"`
		State string `json:"State"`
	}
	var rows []row
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			return nil, fmt.Errorf("parse VM list: %w", err)
		}
	} else {
		var single row
		if err := json.Unmarshal([]byte(out), &single); err != nil {
			return nil, fmt.Errorf("parse VM: %w", err)
		}
		rows = []row{single}
	}

	result := make([]providers.VMSummary, 0, len(rows))
	for _, r := range rows {
		result = append(result, providers.VMSummary{Name: r.Name, State: parseState(r.State)})
	}
	return result, nil
}

// DestroyVM implements providers.Driver.
func (c *Client) DestroyVM(ctx context.Context, vmName string, diskPath string) error {
	if err := validateName("vm", vmName); err != nil {
		return err
	}
	script := fmt.Sprintf(`Remove-VM -Name %s -Force -ErrorAction Stop`, quote(vmName))
	if diskPath != "" {
		script += fmt.Sprintf(`; Remove-Item -Path %s -Force -ErrorAction SilentlyContinue`, quote(diskPath))
	}
	out, err := c.run(ctx, script)
	return classify("destroy", vmName, out, err)
}

// HostFreeMemoryMB queries the host's currently-available physical memory,
// used by the pool controller's host-capacity guard.
func (c *Client) HostFreeMemoryMB(ctx context.Context) (int64, error) {
	out, err := c.run(ctx, `(Get-CimInstance Win32_OperatingSystem).FreePhysicalMemory`)
	if err != nil {
		return 0, classify("host_free_memory", "", out, err)
	}
	kb, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse free memory: %w", err)
	}
	return kb / 1024, nil
}

// run executes a PowerShell script either locally or via WinRM, per
// configuration.
func (c *Client) run(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if c.config.UseWinRM {
		return c.runWinRM(ctx, script)
	}
	return c.runLocal(ctx, script)
}

func (c *Client) runLocal(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("powershell execution failed: %w", err)
	}
	return string(output), nil
}

// runWinRM runs the winrm CLI tool directly (no shell), passing the
// PowerShell script as one argv element; shellquote.Join renders the
// argument vector only to log its length.
func (c *Client) runWinRM(ctx context.Context, script string) (string, error) {
	args := []string{
		"-hostname", c.config.Host,
		"-username", c.config.Username,
		"-password", c.config.Password,
		"-port", strconv.Itoa(c.config.WinRMPort),
		"-https=" + strconv.FormatBool(c.config.UseHTTPS),
		"powershell", script,
	}
	quoted := shellquote.Join(args...)
	c.logger.Debug("dispatching winrm command", "vm_host", c.config.Host, "argv_len", len(quoted))

	cmd := exec.CommandContext(ctx, "winrm", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("winrm powershell execution failed: %w", err)
	}
	return string(output), nil
}

func (c *Client) validateConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := c.run(ctx, "Get-Command Get-VM | Out-Null")
	if err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	c.logger.Info("hyper-v connection validated", "host", c.config.Host, "winrm", c.config.UseWinRM)
	return nil
}

// Close releases driver resources. The driver holds none; Close exists to
// satisfy callers that treat drivers as closeable resources.
func (c *Client) Close() error {
	return nil
}

func (c *Client) String() string {
	if c.config.UseWinRM {
		return fmt.Sprintf("hyper-v driver (remote=%s)", c.config.Host)
	}
	return "hyper-v driver (local)"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
