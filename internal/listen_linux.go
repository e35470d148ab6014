//go:build linux

package internal

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// SupportsPortSharing reports whether listeners from Listen can share one
// address, so several relay instances may bind the same port.
func SupportsPortSharing() bool { return true }

// Listen opens a TCP listener with SO_REUSEPORT so every relay instance in
// the process can bind the same port and let the kernel spread incoming
// connections across them.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, conn syscall.RawConn) error {
			var opErr error
			err := conn.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}
