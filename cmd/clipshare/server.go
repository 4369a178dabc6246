package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"go.klb.dev/clipshare/internal/clip"
	"go.klb.dev/clipshare/internal/control"
	"go.klb.dev/clipshare/internal/discovery"
	"go.klb.dev/clipshare/internal/ipc"
	"go.klb.dev/clipshare/internal/route"
	"go.klb.dev/clipshare/internal/selection"
	"go.klb.dev/clipshare/internal/session"
	"go.klb.dev/clipshare/internal/tlsconf"
)

func newServerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Share this machine's clipboard and selected files",
		Long: `Starts the clipshare server. One TLS port carries three protocols:
  - the data plane (copy / download / ping requests from peers)
  - the ControlService gRPC API (status, selection)
  - the same API as HTTP/JSON: GET /v1/status, POST /v1/selection

Local CLI commands reach the ControlService over the IPC socket without a token.

Config file search order:
  /etc/clipshare/clipshare.toml
  $HOME/.config/clipshare/clipshare.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPSHARE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runServer(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("addr", fmt.Sprintf("0.0.0.0:%d", defaultPort), "TLS listen address")
	f.String("token", "", "shared secret: TLS passphrase and control API bearer token (empty = default passphrase, no token)")
	f.Bool("no-local", false, "do not read the system clipboard (serve selected files only)")
	f.Bool("no-ipc", false, "do not open the local IPC socket")
	f.String("source", defaultSource(), "name for this host in logs and mDNS")
	f.StringSlice("select", nil, "files to select at startup")
	f.Bool("clear-on-consume", true, "clear the selection once a peer has received it")
	f.Int("max-rate", 0, "download bandwidth cap in bytes/sec across all peers (0 = unlimited)")
	f.Duration("idle-timeout", session.DefaultIdleTimeout, "close data connections idle for this long")
	f.Bool("advertise", false, "advertise the server on the local network via mDNS")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServer(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	addr := v.GetString("addr")
	token := v.GetString("token")
	source := v.GetString("source")

	creds, err := tlsconf.New(passphrase(token))
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	backend := clip.Headless()
	if !v.GetBool("no-local") {
		backend = clip.New()
	}
	cb := clip.NewLocked(backend)
	defer cb.Close()

	sel := selection.New()
	defer sel.Close()
	if initial := v.GetStringSlice("select"); len(initial) > 0 {
		paths, err := absPaths(initial)
		if err != nil {
			return err
		}
		sel.Set(paths)
	}
	if v.GetBool("clear-on-consume") {
		go sel.ResetOnConsume()
	}

	handler := route.New(sel, cb, route.Options{MaxBytesPerSec: v.GetInt("max-rate")})
	reg := session.NewRegistry()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	svc := control.NewService(control.Config{
		Selection: sel,
		Stats:     handler,
		Sessions:  reg,
		Clipboard: cb.Name(),
		Addr:      ln.Addr().String(),
		Version:   Version,
	})

	slog.Info("clipshare server starting",
		"version", Version,
		"addr", ln.Addr(),
		"clipboard", cb.Name(),
		"auth", token != "",
		"max_rate", v.GetInt("max-rate"),
	)

	g, gctx := errgroup.WithContext(ctx)

	if !v.GetBool("no-ipc") {
		if err := serveIPC(gctx, g, svc); err != nil {
			slog.Warn("IPC socket unavailable", "err", err)
		}
	}

	if v.GetBool("advertise") {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := discovery.Advertise(source, port, Version, source)
		if err != nil {
			slog.Warn("mDNS advertisement failed", "err", err)
		} else {
			defer adv.Shutdown()
		}
	}

	serveTLS(gctx, g, ln, creds.Server, token, svc, handler, reg, v.GetDuration("idle-timeout"))

	err = g.Wait()
	slog.Info("clipshare server stopped", "served", handler.Stats())
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// serveTLS splits one TLS listener three ways and runs each protocol in g.
// Everything is torn down when ctx ends.
func serveTLS(
	ctx context.Context,
	g *errgroup.Group,
	ln net.Listener,
	cfg *tls.Config,
	token string,
	svc *control.Service,
	handler *route.Handler,
	reg *session.Registry,
	idle time.Duration,
) {
	m := cmux.New(tls.NewListener(ln, cfg))
	m.HandleError(func(err error) bool {
		slog.Debug("connection not matched", "err", err)
		return true
	})
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	h2L := m.Match(cmux.HTTP2())
	httpL := m.Match(cmux.HTTP1Fast())
	dataL := m.Match(cmux.Any())

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(control.AuthInterceptor(token)))
	control.Register(grpcSrv, svc)
	healthpb.RegisterHealthServer(grpcSrv, health.NewServer())

	gw, err := control.NewGatewayMux(svc, token)
	if err != nil {
		g.Go(func() error { return fmt.Errorf("gateway: %w", err) })
		_ = ln.Close()
		return
	}
	httpSrv := newGatewayServer(gw)

	g.Go(func() error { return grpcSrv.Serve(grpcL) })
	g.Go(func() error { return serveHTTPGateway(h2L, httpSrv) })
	g.Go(func() error { return serveHTTPGateway(httpL, httpSrv) })
	g.Go(func() error { return serveData(ctx, dataL, handler, reg, idle) })
	g.Go(func() error {
		if err := m.Serve(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
		grpcSrv.Stop()
		return ln.Close()
	})
}

// serveData accepts data-plane connections and serves each in its own
// session goroutine.
func serveData(ctx context.Context, ln net.Listener, h *route.Handler, reg *session.Registry, idle time.Duration) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, cmux.ErrListenerClosed) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				slog.Warn("accept timeout", "err", err)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s := session.New(conn, h, session.Options{IdleTimeout: idle, Registry: reg})
		go s.Serve(ctx)
	}
}

// serveIPC serves the control API without auth on the local socket until
// ctx ends.
func serveIPC(ctx context.Context, g *errgroup.Group, svc *control.Service) error {
	ln, err := ipc.Listen()
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	control.Register(srv, svc)
	slog.Info("IPC socket listening", "path", ipc.SocketPath())

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			slog.Warn("IPC server stopped", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.Stop()
		return nil
	})
	return nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, a)
	}
	return out, nil
}
