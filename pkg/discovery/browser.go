package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/enbility/zeroconf/v3"
)

const (
	// ServiceSSH is the mDNS service type for SSH consoles.
	ServiceSSH = "_ssh._tcp"

	// ServiceTelnet is the mDNS service type for telnet consoles.
	ServiceTelnet = "_telnet._tcp"

	// Domain is the mDNS browse domain.
	Domain = "local"
)

// Console is one discovered remote console.
type Console struct {
	InstanceName string
	Service      string
	Host         string
	Port         uint16
	Addresses    []string
}

// Addr returns the first address with the advertised port, in host:port
// form, or "" when the service carries no addresses.
func (c *Console) Addr() string {
	if len(c.Addresses) == 0 {
		return ""
	}
	return net.JoinHostPort(c.Addresses[0], fmt.Sprint(c.Port))
}

// BrowserConfig configures the browser.
type BrowserConfig struct {
	// Interface limits browsing to one network interface. Empty browses
	// on all of them.
	Interface string
}

// Browser discovers consoles via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse searches for services of the given type until ctx is cancelled.
// Results are aggregated by instance name: addresses seen on multiple
// interfaces merge into a single entry, emitted once.
func (b *Browser) Browse(ctx context.Context, service string) (<-chan *Console, error) {
	out := make(chan *Console)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts, err := b.clientOptions()
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(out)

		consoles := make(map[string]*Console)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToConsole(service, entry)
				if existing, found := consoles[svc.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				consoles[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := consoles[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(consoles, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, service, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// BrowseSSH searches for SSH consoles.
func (b *Browser) BrowseSSH(ctx context.Context) (<-chan *Console, error) {
	return b.Browse(ctx, ServiceSSH)
}

// BrowseTelnet searches for telnet consoles.
func (b *Browser) BrowseTelnet(ctx context.Context) (<-chan *Console, error) {
	return b.Browse(ctx, ServiceTelnet)
}

func (b *Browser) clientOptions() ([]zeroconf.ClientOption, error) {
	if b.config.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(b.config.Interface)
	if err != nil {
		return nil, fmt.Errorf("browse interface %q: %w", b.config.Interface, err)
	}
	return []zeroconf.ClientOption{zeroconf.SelectIfaces([]net.Interface{*iface})}, nil
}

func entryToConsole(service string, entry *zeroconf.ServiceEntry) *Console {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &Console{
		InstanceName: entry.Instance,
		Service:      service,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
	}
}

func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range extra {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	gone := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		gone[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		gone[ip.String()] = true
	}

	kept := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !gone[addr] {
			kept = append(kept, addr)
		}
	}
	return kept
}
