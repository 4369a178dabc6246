package main

import (
	"errors"
	"net"
	"net/http"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// newGatewayServer returns the HTTP server for the grpc-gateway mux. TLS is
// already terminated by the listener, so HTTP/2 clients arrive with the
// prior-knowledge preface and are handled through h2c.
func newGatewayServer(mux *gwruntime.ServeMux) *http.Server {
	return &http.Server{
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serveHTTPGateway runs srv on ln until srv is shut down.
func serveHTTPGateway(ln net.Listener, srv *http.Server) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
