package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/clipshare/internal/client"
	"go.klb.dev/clipshare/internal/control"
	"go.klb.dev/clipshare/internal/ipc"
	"go.klb.dev/clipshare/internal/tlsconf"
)

const defaultPort = 8753

func getenv(key string) string  { return os.Getenv(key) }
func hostname() (string, error) { return os.Hostname() }

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"CLIPSHARE_SOURCE",
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"SERVICE_NAME",
		"HOSTNAME_FRIENDLY",
	} {
		if v := getenv(env); v != "" {
			return v
		}
	}
	h, err := hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// defaultHosts is the probe order used when no explicit --server is given.
var defaultHosts = []string{
	"host.docker.internal",     // Docker Desktop (macOS / Windows / Docker Desktop Linux)
	"host.containers.internal", // Podman rootless
	"localhost",
}

// passphrase returns the TLS passphrase for token.
func passphrase(token string) string {
	if token == "" {
		return tlsconf.DefaultPassphrase
	}
	return token
}

// withPort appends the default port to addr when it has none.
func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(defaultPort))
}

// dataClient returns a data-plane client for --server, or for the first
// default host that answers a ping.
func dataClient(ctx context.Context, v *viper.Viper) (*client.Client, string, error) {
	cfg, err := tlsconf.ClientConfig(passphrase(v.GetString("token")))
	if err != nil {
		return nil, "", fmt.Errorf("tls config: %w", err)
	}
	source := v.GetString("source")

	if s := v.GetString("server"); s != "" {
		addr := withPort(s)
		return client.New(addr, cfg, source), addr, nil
	}

	var errs []error
	for _, h := range defaultHosts {
		addr := withPort(h)
		c := client.New(addr, cfg, source)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := c.Ping(pctx)
		cancel()
		if err == nil {
			return c, addr, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return nil, "", fmt.Errorf("no reachable clipshare server: %w", errors.Join(errs...))
}

// dialControl connects to the control service: over IPC when a local server
// is running and no --server was given, otherwise over TLS with the bearer
// token. It returns a description of the transport used.
func dialControl(v *viper.Viper) (*grpc.ClientConn, string, error) {
	if v.GetString("server") == "" && ipc.IsRunning() {
		cc, err := ipc.NewClient()
		if err == nil {
			return cc, fmt.Sprintf("ipc (%s)", ipc.SocketPath()), nil
		}
	}

	addr := withPort(v.GetString("server"))
	if v.GetString("server") == "" {
		addr = withPort("localhost")
	}
	token := v.GetString("token")
	creds, err := tlsconf.New(passphrase(token))
	if err != nil {
		return nil, "", fmt.Errorf("tls credentials: %w", err)
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds.GRPC())}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(control.TokenCredentials(token)))
	}
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("dial %s: %w", addr, err)
	}
	return cc, fmt.Sprintf("tls (%s)", addr), nil
}
