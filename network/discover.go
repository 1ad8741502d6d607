package network

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// SRVMesh is the SRV service name advertising Mesh gateways:
	// _mcmmesh._tcp.{domain}.
	SRVMesh = "mcmmesh"

	// DefaultDNSUpstream is the validating resolver used when none is configured.
	DefaultDNSUpstream = "8.8.8.8:53"

	dnsTimeout = 10 * time.Second
	udpBufSize = 4096
)

// DNSResolver defines the interface for DNS lookups.
// This allows tests to mock DNS resolution.
type DNSResolver interface {
	// LookupSRV looks up SRV records for the given service, proto, and name.
	LookupSRV(service, proto, name string) (string, []*net.SRV, error)
}

type defaultDNSResolver struct{}

func (defaultDNSResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	return net.LookupSRV(service, proto, name)
}

// DefaultDNSResolver is the production DNS resolver using the net package.
var DefaultDNSResolver DNSResolver = defaultDNSResolver{}

// ResolveEndpoints returns the gateway endpoints (host:port) advertised for
// domain, sorted by priority then weight. A nil resolver uses DefaultDNSResolver.
func ResolveEndpoints(domain string, resolver DNSResolver) ([]string, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}
	if resolver == nil {
		resolver = DefaultDNSResolver
	}

	_, addrs, err := resolver.LookupSRV(SRVMesh, "tcp", domain)
	if err != nil {
		return nil, fmt.Errorf("%w: SRV lookup for _%s._tcp.%s: %w", ErrDNSLookupFailed, SRVMesh, domain, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for _%s._tcp.%s", ErrNoEndpoints, SRVMesh, domain)
	}

	// Priority ascending, then weight descending.
	sort.SliceStable(addrs, func(i, j int) bool {
		if addrs[i].Priority != addrs[j].Priority {
			return addrs[i].Priority < addrs[j].Priority
		}
		return addrs[i].Weight > addrs[j].Weight
	})

	endpoints := make([]string, len(addrs))
	for i, srv := range addrs {
		host := strings.TrimSuffix(srv.Target, ".")
		endpoints[i] = net.JoinHostPort(host, strconv.Itoa(int(srv.Port)))
	}
	return endpoints, nil
}

// DiscoverConfig builds a MeshConfig from the best endpoint advertised for domain.
func DiscoverConfig(domain, network string, resolver DNSResolver) (*MeshConfig, error) {
	endpoints, err := ResolveEndpoints(domain, resolver)
	if err != nil {
		return nil, err
	}
	u := url.URL{Scheme: "http", Host: endpoints[0]}
	if network == "" {
		network = "mainnet"
	}
	return &MeshConfig{URL: u.String(), Network: network}, nil
}

// DNSSECResolver looks up gateway SRV records through a validating recursive
// resolver. Replies the upstream did not authenticate (AD flag clear) are
// refused, so a spoofed answer cannot redirect the wallet to another gateway.
type DNSSECResolver struct {
	Upstream string        // host:port of the recursive resolver
	Net      string        // "udp" when empty, or "tcp", "tcp-tls"
	Timeout  time.Duration // dnsTimeout when zero
}

var _ DNSResolver = (*DNSSECResolver)(nil)

// NewDNSSECResolver returns a resolver querying upstream, or
// DefaultDNSUpstream when upstream is empty.
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = DefaultDNSUpstream
	}
	return &DNSSECResolver{Upstream: upstream}
}

// LookupSRV returns the authenticated SRV records of _service._proto.name.
// The first return value is the queried name without its trailing dot.
func (r *DNSSECResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	qname := dns.Fqdn("_" + service + "._" + proto + "." + name)

	req := new(dns.Msg).SetQuestion(qname, dns.TypeSRV)
	req.SetEdns0(udpBufSize, true)

	timeout := r.Timeout
	if timeout == 0 {
		timeout = dnsTimeout
	}
	client := &dns.Client{Net: r.Net, Timeout: timeout}
	reply, _, err := client.Exchange(req, r.Upstream)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s via %s: %w", ErrDNSLookupFailed, qname, r.Upstream, err)
	}

	switch {
	case reply.Rcode != dns.RcodeSuccess && reply.Rcode != dns.RcodeNameError:
		return "", nil, fmt.Errorf("%w: %s: %s", ErrDNSLookupFailed, qname, dns.RcodeToString[reply.Rcode])
	case !reply.AuthenticatedData:
		return "", nil, fmt.Errorf("%w: %s", ErrDNSSECValidationFailed, qname)
	}

	cname := strings.TrimSuffix(qname, ".")
	var records []*net.SRV
	for _, rr := range reply.Answer {
		srv, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		records = append(records, &net.SRV{
			Target:   strings.TrimSuffix(srv.Target, "."),
			Port:     srv.Port,
			Priority: srv.Priority,
			Weight:   srv.Weight,
		})
	}
	if len(records) == 0 {
		return cname, nil, fmt.Errorf("%w: %s", ErrNoEndpoints, cname)
	}
	return cname, records, nil
}
