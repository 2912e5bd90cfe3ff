// Package discovery announces a busserver over mDNS and finds announced
// servers on the local network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const ServiceType = "_softi2c._tcp"

const protocolVersion = "1"

type Server struct {
	name      string
	port      int
	txtRecord []string

	currentAddr string
	server      *zeroconf.Server
}

// NewServer prepares an announcement of the bus called busName served on port.
func NewServer(busName string, name string, port int) *Server {
	if name == "" {
		name = "softi2c"
	}

	return &Server{
		txtRecord: []string{"bus=" + busName, "version=" + protocolVersion},
		name:      name,
		port:      port,
	}
}

func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	s.server.Shutdown()
	s.server = nil
	s.currentAddr = ""
}

func ifaceAddressV4(iface *net.Interface) (string, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return "", err
	}

	return firstV4(addrs), nil
}

func firstV4(addrs []net.Addr) string {
	for _, m := range addrs {
		k, ok := m.(*net.IPNet)
		if !ok || k.IP.To4() == nil {
			continue
		}
		return k.IP.String()
	}
	return ""
}

func ifaceAddressV4Timeout(iface *net.Interface, maxWaitIP time.Duration) (string, error) {
	for deadline := time.Now().Add(maxWaitIP); time.Now().Before(deadline); {
		addr, err := ifaceAddressV4(iface)
		if err != nil {
			return "", err
		}

		if addr != "" {
			return addr, nil
		}

		time.Sleep(250 * time.Millisecond)
	}

	return "", errors.New("timeout waiting for IPv4 address")
}

// Start announces the server on the interface ifaceName, waiting up to
// maxWaitIP for it to get an IPv4 address.
func (s *Server) Start(ifaceName string, maxWaitIP time.Duration) error {
	s.Stop()

	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return err
	}

	addr, err := ifaceAddressV4Timeout(iface, maxWaitIP)
	if err != nil {
		return err
	}

	server, err := zeroconf.RegisterProxy(s.name, ServiceType, "local.", s.port, s.name, []string{addr}, s.txtRecord, []net.Interface{*iface})
	if err != nil {
		return err
	}
	server.TTL(60)

	s.currentAddr = fmt.Sprintf("%s:%d", addr, s.port)
	s.server = server
	return nil
}

func (s *Server) CurrentAddress() string {
	return s.currentAddr
}

type Result struct {
	Instance string
	Bus      string
	Addr     string
}

// URL is the base address of the announced bus, to hand to busclient.New.
func (r Result) URL() string {
	return "http://" + r.Addr + "/" + r.Bus
}

func parseEntry(e *zeroconf.ServiceEntry) (Result, bool) {
	var bus, version string
	for _, m := range e.Text {
		kv := strings.SplitN(m, "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch strings.ToLower(kv[0]) {
		case "bus":
			bus = kv[1]
		case "version":
			version = kv[1]
		}
	}

	if bus == "" || version != protocolVersion {
		return Result{}, false
	}

	var addr string
	switch {
	case len(e.AddrIPv4) > 0:
		addr = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		addr = "[" + e.AddrIPv6[0].String() + "]"
	default:
		return Result{}, false
	}

	return Result{
		Instance: e.Instance,
		Bus:      bus,
		Addr:     fmt.Sprintf("%s:%d", addr, e.Port),
	}, true
}

// Discover browses for servers until ctx ends and returns the first one
// whose bus name matches filterBus. An empty filter accepts any bus.
func Discover(ctx context.Context, filterBus string) (Result, error) {
	// A fresh resolver per call picks up interface changes.
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, "local", entries); err != nil {
		return Result{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return Result{}, errors.New("no results")

		case e, ok := <-entries:
			if !ok {
				return Result{}, errors.New("no results")
			}

			r, ok := parseEntry(e)
			if !ok || (filterBus != "" && r.Bus != filterBus) {
				continue
			}
			return r, nil
		}
	}
}
