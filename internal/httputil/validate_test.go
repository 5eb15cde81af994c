// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver pins hostnames to fixed addresses for the duration of a test.
func fakeResolver(t *testing.T, hosts map[string][]string) {
	t.Helper()
	old := lookupIP
	lookupIP = func(_ context.Context, host string) ([]net.IP, error) {
		addrs, ok := hosts[host]
		if !ok {
			return nil, fmt.Errorf("no such host %q", host)
		}
		ips := make([]net.IP, len(addrs))
		for i, a := range addrs {
			ips[i] = net.ParseIP(a)
		}
		return ips, nil
	}
	t.Cleanup(func() { lookupIP = old })
}

func TestValidateURL_RejectsLoopbackLiteral(t *testing.T) {
	_, err := ValidateURL(context.Background(), "http://127.0.0.1/", "")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestValidateURL_RejectsPrivateLiterals(t *testing.T) {
	for _, u := range []string{
		"http://10.0.0.5/",
		"http://172.16.8.1/admin",
		"http://192.168.1.1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/",
		"http://[fe80::1]/",
	} {
		_, err := ValidateURL(context.Background(), u, "")
		assert.ErrorIs(t, err, ErrUnsafeURL, u)
	}
}

func TestValidateURL_RejectsPrivateResolution(t *testing.T) {
	fakeResolver(t, map[string][]string{"internal.example.fi": {"192.168.1.1"}})

	_, err := ValidateURL(context.Background(), "https://internal.example.fi/docs", "")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestValidateURL_RejectsWhenAnyAddressBlocked(t *testing.T) {
	// A host with one public and one private address is still unsafe.
	fakeResolver(t, map[string][]string{"rebind.example.fi": {"93.184.216.34", "127.0.0.1"}})

	_, err := ValidateURL(context.Background(), "http://rebind.example.fi/", "")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestValidateURL_AcceptsPublicHost(t *testing.T) {
	fakeResolver(t, map[string][]string{"kokous.example.fi": {"93.184.216.34"}})

	target, err := ValidateURL(context.Background(), "https://kokous.example.fi/fi-FI/Toimielimet", "")
	require.NoError(t, err)
	assert.Equal(t, "kokous.example.fi", target.Host)
	assert.Equal(t, "443", target.Port)
	assert.Equal(t, "93.184.216.34", target.IP.String())
}

func TestValidateURL_DefaultPortFollowsScheme(t *testing.T) {
	fakeResolver(t, map[string][]string{"example.fi": {"93.184.216.34"}})

	target, err := ValidateURL(context.Background(), "http://example.fi/", "")
	require.NoError(t, err)
	assert.Equal(t, "80", target.Port)

	target, err = ValidateURL(context.Background(), "http://example.fi:8080/", "")
	require.NoError(t, err)
	assert.Equal(t, "8080", target.Port)
}

func TestValidateURL_RejectsBadScheme(t *testing.T) {
	for _, u := range []string{"ftp://example.fi/file.pdf", "file:///etc/passwd", "gopher://example.fi/"} {
		_, err := ValidateURL(context.Background(), u, "")
		assert.ErrorIs(t, err, ErrUnsafeURL, u)
	}
}

func TestValidateURL_RejectsMissingHost(t *testing.T) {
	_, err := ValidateURL(context.Background(), "http:///path-only", "")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestValidateURL_RejectsResolutionFailure(t *testing.T) {
	fakeResolver(t, map[string][]string{})

	_, err := ValidateURL(context.Background(), "http://does-not-exist.example.fi/", "")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestValidateURL_AllowedDomain(t *testing.T) {
	fakeResolver(t, map[string][]string{
		"example.fi":     {"93.184.216.34"},
		"sub.example.fi": {"93.184.216.34"},
		"otherdomain.fi": {"93.184.216.34"},
		"evilexample.fi": {"93.184.216.34"},
	})

	_, err := ValidateURL(context.Background(), "https://example.fi/", "example.fi")
	assert.NoError(t, err)

	_, err = ValidateURL(context.Background(), "https://sub.example.fi/", "example.fi")
	assert.NoError(t, err)

	_, err = ValidateURL(context.Background(), "https://otherdomain.fi/", "example.fi")
	assert.ErrorIs(t, err, ErrUnsafeURL)

	// Suffix match must respect the label boundary.
	_, err = ValidateURL(context.Background(), "https://evilexample.fi/", "example.fi")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}
