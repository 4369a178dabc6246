// Package discovery advertises clipshare servers on the local network with
// mDNS/DNS-SD and finds them again from the client side.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// Service is the DNS-SD service type.
	Service = "_clipshare._tcp"
	// Domain is the mDNS domain.
	Domain = "local."
)

// Peer is a server found on the network.
type Peer struct {
	Instance string
	Host     string
	Addrs    []net.IP
	Port     int
	Version  string
	Source   string
}

// Addr returns host:port using the first known address, or the host name
// when no address was resolved.
func (p Peer) Addr() string {
	host := strings.TrimSuffix(p.Host, ".")
	if len(p.Addrs) > 0 {
		host = p.Addrs[0].String()
	}
	return net.JoinHostPort(host, fmt.Sprint(p.Port))
}

// Advertiser keeps a service registration alive until Shutdown.
type Advertiser struct {
	srv *zeroconf.Server
}

// Advertise registers instance on port. version and source are published
// as TXT records.
func Advertise(instance string, port int, version, source string) (*Advertiser, error) {
	txt := []string{"version=" + version, "source=" + source}
	srv, err := zeroconf.Register(instance, Service, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	slog.Info("mdns advertising", "instance", instance, "service", Service, "port", port)
	return &Advertiser{srv: srv}, nil
}

// Shutdown withdraws the registration.
func (a *Advertiser) Shutdown() {
	a.srv.Shutdown()
}

// Browse collects servers until ctx is done. Callers should bound ctx with
// a timeout.
func Browse(ctx context.Context) ([]Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		found = make(map[string]Peer)
	)
	entries := make(chan *zeroconf.ServiceEntry)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for e := range entries {
			p := peerFromEntry(e)
			mu.Lock()
			found[p.Instance] = p
			mu.Unlock()
			slog.Debug("mdns peer found", "instance", p.Instance, "addr", p.Addr())
		}
	}()

	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}
	<-ctx.Done()
	select {
	case <-drained:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	peers := make([]Peer, 0, len(found))
	for _, p := range found {
		peers = append(peers, p)
	}
	slices.SortFunc(peers, func(a, b Peer) int { return strings.Compare(a.Instance, b.Instance) })
	return peers, nil
}

func peerFromEntry(e *zeroconf.ServiceEntry) Peer {
	p := Peer{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
	}
	p.Addrs = append(p.Addrs, e.AddrIPv4...)
	p.Addrs = append(p.Addrs, e.AddrIPv6...)
	for _, kv := range e.Text {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "version":
			p.Version = v
		case "source":
			p.Source = v
		}
	}
	return p
}
