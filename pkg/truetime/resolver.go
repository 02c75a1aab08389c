package truetime

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/miekg/dns"
	"go.uber.org/multierr"
)

// HostResolver turns a pool host name into the addresses to query, in
// resolver order.
type HostResolver interface {
	Resolve(ctx context.Context, host string) ([]string, error)
}

// NetResolver uses the system resolver, including /etc/hosts.
type NetResolver struct {
	Resolver *net.Resolver
}

func (r NetResolver) Resolve(ctx context.Context, host string) ([]string, error) {
	if net.ParseIP(host) != nil {
		return []string{host}, nil
	}

	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	ips, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResolution, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s: no addresses", ErrResolution, host)
	}

	addresses := make([]string, 0, len(ips))
	for _, ip := range ips {
		addresses = append(addresses, ip.String())
	}
	return addresses, nil
}

// DNSResolver asks one DNS server directly for A and AAAA records,
// bypassing the system resolver configuration.
type DNSResolver struct {
	Server string // host:port
	Client *dns.Client
}

func (r DNSResolver) Resolve(ctx context.Context, host string) ([]string, error) {
	if net.ParseIP(host) != nil {
		return []string{host}, nil
	}

	client := r.Client
	if client == nil {
		client = new(dns.Client)
	}

	var addresses []string
	var errs error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		query := new(dns.Msg)
		query.SetQuestion(dns.Fqdn(host), qtype)

		reply, _, err := client.ExchangeContext(ctx, query, r.Server)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if reply.Rcode != dns.RcodeSuccess {
			errs = multierr.Append(errs, fmt.Errorf("%s query: %s", dns.TypeToString[qtype], dns.RcodeToString[reply.Rcode]))
			continue
		}
		for _, answer := range reply.Answer {
			switch record := answer.(type) {
			case *dns.A:
				addresses = append(addresses, record.A.String())
			case *dns.AAAA:
				addresses = append(addresses, record.AAAA.String())
			}
		}
	}

	if len(addresses) == 0 {
		if errs == nil {
			errs = errors.New("no A or AAAA records")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrResolution, host, errs)
	}
	return addresses, nil
}
