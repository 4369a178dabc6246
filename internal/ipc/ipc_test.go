//go:build !windows

package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// shortSocket returns a socket path short enough for sun_path limits.
func shortSocket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cs")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func TestSocketPathOverride(t *testing.T) {
	t.Setenv("CLIPSHARE_SOCKET", "/run/custom.sock")
	if got := SocketPath(); got != "/run/custom.sock" {
		t.Fatalf("SocketPath = %q", got)
	}
}

func TestSocketPathXDG(t *testing.T) {
	t.Setenv("CLIPSHARE_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := SocketPath(); got != "/run/user/1000/clipshare.sock" {
		t.Fatalf("SocketPath = %q", got)
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := shortSocket(t)
	t.Setenv("CLIPSHARE_SOCKET", path)

	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen over stale file: %v", err)
	}
	defer ln.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("socket mode = %v, want 0600", perm)
	}
	if !IsRunning() {
		t.Fatal("IsRunning = false with a listener")
	}
	if _, err := Listen(); err == nil {
		t.Fatal("second Listen on a live socket succeeded")
	}
}

func TestIsRunningWithoutServer(t *testing.T) {
	t.Setenv("CLIPSHARE_SOCKET", shortSocket(t))
	if IsRunning() {
		t.Fatal("IsRunning = true without a listener")
	}
}

func TestNewClientRoundTrip(t *testing.T) {
	t.Setenv("CLIPSHARE_SOCKET", shortSocket(t))

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(ln) }()
	defer srv.Stop()

	cc, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(cc).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}
