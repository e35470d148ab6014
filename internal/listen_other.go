//go:build !linux

package internal

import (
	"context"
	"net"
)

// SupportsPortSharing reports whether listeners from Listen can share one
// address. Without SO_REUSEPORT they cannot, so callers must run a single
// instance per port.
func SupportsPortSharing() bool { return false }

// Listen opens a plain TCP listener. Without SO_REUSEPORT only one instance
// can bind a given port, which is fine for single-worker development runs.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}
