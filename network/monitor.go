// SPDX-License-Identifier: LGPL-3.0-or-later

// Package network provides the guest-readiness connectivity check used by
// the lifecycle controller's wait-for-ready contract: a short-timeout TCP
// dial to a guest port, with no host-side network stack assumptions (the
// orchestrator only ever needs to know whether one guest, on one port, is
// reachable right now).
package network

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DialOK attempts a TCP connection to host:port and reports whether it
// succeeded within timeout. A zero or negative timeout falls back to 2s.
func DialOK(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
