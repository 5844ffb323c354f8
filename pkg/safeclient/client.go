// Package safeclient builds HTTP clients that refuse to dial private or
// internal addresses. Payload URLs come from a third party, so every fetch
// of one goes through this client.
package safeclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrForbiddenIP is returned when a dial targets a forbidden range.
var ErrForbiddenIP = errors.New("connection to private/internal IP addresses is forbidden")

// MaxRedirects bounds the redirect chain of a payload fetch.
const MaxRedirects = 10

var forbiddenIPv4 = []net.IPNet{
	{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)}, // link-local, cloud metadata
	{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
	{IP: net.IPv4(255, 255, 255, 255), Mask: net.CIDRMask(32, 32)},
	{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}, // CGNAT
	{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
}

var forbiddenIPv6 = []net.IPNet{
	{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
	{IP: net.ParseIP("::"), Mask: net.CIDRMask(128, 128)},
	{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
	{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
	{IP: net.ParseIP("ff00::"), Mask: net.CIDRMask(8, 128)},
}

// IsForbiddenIP reports whether ip is in a private, loopback, link-local or
// otherwise non-routable range. IPv4-mapped IPv6 addresses are checked as IPv4.
func IsForbiddenIP(ip net.IP) bool {
	if ip == nil {
		return true
	}

	ranges := forbiddenIPv6
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		ranges = forbiddenIPv4
	}
	for _, network := range ranges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// dialer checks the resolved address right before connecting, which also
// covers DNS rebinding.
func dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, c syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return fmt.Errorf("failed to parse address: %w", err)
			}
			ip := net.ParseIP(host)
			if ip == nil {
				return fmt.Errorf("invalid IP address: %s", host)
			}
			if IsForbiddenIP(ip) {
				return ErrForbiddenIP
			}
			return nil
		},
	}
}

// New returns a client with no overall timeout; callers bound each request
// with its context. Large payloads can take minutes.
func New() *http.Client {
	transport := &http.Transport{
		DialContext:           dialer().DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}
}

// NewWithTimeout returns New with an overall request timeout.
func NewWithTimeout(timeout time.Duration) *http.Client {
	client := New()
	client.Timeout = timeout
	return client
}
