package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

type DNSClass string

const (
	DNSResolves     DNSClass = "RESOLVES"
	DNSNoAddress    DNSClass = "NO_A_RECORD"
	DNSNXDomain     DNSClass = "NXDOMAIN"
	DNSUnreachable  DNSClass = "SERVFAIL_or_TIMEOUT"
	DNSInvalidInput DNSClass = "INVALID_NAME"
)

// DNSStatus is what preflight knows about the target host before a browser
// is ever launched.
type DNSStatus struct {
	Host          string
	IPs           []net.IP
	CNAME         string
	Nameservers   []string
	Class         DNSClass
	ResolverError string
}

func (s DNSStatus) OK() bool { return s.Class == DNSResolves }

// Resolver is the subset of *net.Resolver CheckDNS uses.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

const dnsTimeout = 3 * time.Second

// HostOf extracts the hostname from a target URL.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// CheckDNS classifies host. A nil resolver means the OS resolver.
func CheckDNS(ctx context.Context, r Resolver, host string) DNSStatus {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.Contains(s.Host, "://") || strings.ContainsAny(s.Host, " /") {
		s.Class = DNSInvalidInput
		return s
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", s.Host)
	switch {
	case err == nil && len(ips) > 0:
		s.IPs = ips
		s.Class = DNSResolves
	case err != nil:
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSUnreachable
			}
		}
	}

	if cname, err := r.LookupCNAME(ctx, s.Host); err == nil && !strings.EqualFold(cname, s.Host+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := r.LookupNS(ctx, s.Host); err == nil {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
	}

	// A zone with nameservers but no address is a different fix than a
	// name that does not exist at all.
	if len(s.Nameservers) > 0 && (s.Class == DNSNXDomain || s.Class == "") {
		s.Class = DNSNoAddress
	}
	if s.Class == "" {
		if s.ResolverError != "" {
			s.Class = DNSUnreachable
		} else {
			s.Class = DNSNXDomain
		}
	}
	return s
}
