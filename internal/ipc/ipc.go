// Package ipc locates and opens the local endpoint a running recall daemon
// listens on.
//
// On Unix systems the endpoint is a socket file, on Windows a named pipe.
// The daemon serves the History gRPC service and a read-only HTTP view on it
// (see package rpc); CLI sub-commands dial it to reach the daemon.
package ipc

import (
	"context"
	"net"
	"os"
	"time"
)

// EnvSocket overrides the endpoint path.
const EnvSocket = "RECALL_SOCKET"

// probeTimeout bounds the IsRunning dial.
const probeTimeout = 500 * time.Millisecond

// SocketPath returns the endpoint path. An explicit path wins, then
// $RECALL_SOCKET, then the platform default:
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/recall.sock, else $TMPDIR/recall.sock
//   - Windows:       \\.\pipe\recall
func SocketPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s := os.Getenv(EnvSocket); s != "" {
		return s
	}
	return defaultPath()
}

// Listen opens the endpoint at path for the daemon.
func Listen(path string) (net.Listener, error) {
	return listen(path)
}

// Dial connects to the endpoint at path.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	return dial(ctx, path)
}

// IsRunning reports whether a daemon appears to be listening at path. It does
// a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	c, err := dial(ctx, path)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
