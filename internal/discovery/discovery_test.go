package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestPeerFromEntry(t *testing.T) {
	e := zeroconf.NewServiceEntry("desk", Service, Domain)
	e.HostName = "desk.local."
	e.Port = 8753
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	e.Text = []string{"version=1.2.3", "source=desk", "junk"}

	p := peerFromEntry(e)
	if p.Instance != "desk" || p.Port != 8753 || p.Version != "1.2.3" || p.Source != "desk" {
		t.Fatalf("peer = %+v", p)
	}
	if len(p.Addrs) != 2 {
		t.Fatalf("addrs = %v", p.Addrs)
	}
	if got := p.Addr(); got != "192.168.1.20:8753" {
		t.Fatalf("Addr = %q", got)
	}
}

func TestPeerAddrFallsBackToHost(t *testing.T) {
	p := Peer{Host: "laptop.local.", Port: 9000}
	if got := p.Addr(); got != "laptop.local:9000" {
		t.Fatalf("Addr = %q", got)
	}

	p = Peer{Addrs: []net.IP{net.ParseIP("fe80::2")}, Port: 1}
	if got := p.Addr(); got != "[fe80::2]:1" {
		t.Fatalf("Addr = %q", got)
	}
}
