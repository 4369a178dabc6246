// Package ipc provides the local control channel between the clipshare CLI
// and a running server: plain gRPC over a Unix domain socket, or a named
// pipe on Windows. Local callers skip TLS and token auth; access is limited
// by the socket's file permissions.
package ipc

import (
	"context"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Target is the gRPC target name used for IPC connections. The passthrough
// resolver hands it to the context dialer untouched.
const Target = "passthrough:///clipshare"

// SocketPath returns the platform path of the IPC endpoint.
//
//   - Linux:   $XDG_RUNTIME_DIR/clipshare.sock, else $TMPDIR/clipshare.sock
//   - macOS:   $TMPDIR/clipshare.sock
//   - Windows: \\.\pipe\clipshare
//
// $CLIPSHARE_SOCKET overrides the default on every platform.
func SocketPath() string {
	if s := os.Getenv("CLIPSHARE_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// Listen opens the IPC endpoint.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the IPC endpoint.
func Dial(ctx context.Context) (net.Conn, error) {
	return dialIPC(ctx, SocketPath())
}

// IsRunning reports whether a server appears to be listening on the IPC
// endpoint. No data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c, err := Dial(ctx)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// NewClient returns a gRPC client connection over the IPC endpoint.
func NewClient() (*grpc.ClientConn, error) {
	return grpc.NewClient(Target,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return Dial(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}
