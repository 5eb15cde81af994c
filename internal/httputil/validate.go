// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the safe fetch layer shared by all connectors
// and the downloader: URL validation against internal address ranges,
// per-domain rate limiting, and a retrying GET client that re-validates
// redirect targets.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrUnsafeURL marks a URL rejected by security policy. Operations failing
// with it are never retried.
var ErrUnsafeURL = errors.New("unsafe url")

// blockedNets lists the private, loopback, and link-local ranges a fetch
// may never reach. Tests that stand up loopback servers override this.
var blockedNets = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// lookupIP resolves a hostname to its addresses. Tests substitute this to
// avoid real DNS.
var lookupIP = func(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, len(addrs))
	for i, a := range addrs {
		ips[i] = a.IP
	}
	return ips, nil
}

// Target is the resolved endpoint of a validated URL.
type Target struct {
	IP   net.IP
	Host string
	Port string
}

// ValidateURL checks that rawURL is safe to fetch: http or https scheme, a
// hostname that resolves, and no resolved address inside a blocked range.
// When allowedDomain is non-empty the hostname must equal it or be one of
// its subdomains. Every violation returns an error wrapping ErrUnsafeURL.
//
// The check resolves the hostname at call time, so callers must re-validate
// the final URL whenever a redirect was followed: a hostname can resolve
// safely here and unsafely at connection time (DNS rebinding), and a
// redirect can point at an address the original check never saw.
func ValidateURL(ctx context.Context, rawURL, allowedDomain string) (*Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsafeURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing hostname", ErrUnsafeURL)
	}
	if allowedDomain != "" && host != allowedDomain && !strings.HasSuffix(host, "."+allowedDomain) {
		return nil, fmt.Errorf("%w: host %q outside allowed domain %q", ErrUnsafeURL, host, allowedDomain)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		ips, err = lookupIP(ctx, host)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("%w: resolving %q: %v", ErrUnsafeURL, host, err)
		}
	}
	for _, ip := range ips {
		for _, blocked := range blockedNets {
			if blocked.Contains(ip) {
				return nil, fmt.Errorf("%w: %s resolves to blocked address %s", ErrUnsafeURL, host, ip)
			}
		}
	}

	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return &Target{IP: ips[0], Host: host, Port: port}, nil
}
