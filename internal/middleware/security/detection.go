package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"

	applog "txreport/internal/log"
)

// DetectionMetrics counts what the detector has seen.
type DetectionMetrics struct {
	SuspiciousRequests int64
	SpoofedForwarding  int64
}

// Detector resolves client addresses behind trusted proxies and flags probe
// traffic. It never blocks a request.
type Detector struct {
	proxies    []netip.Prefix
	suspicious atomic.Int64
	spoofed    atomic.Int64
}

// Probe fragments that never appear in a legitimate report query.
var probeFragments = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"etc/passwd", "<script", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

const maxURLLength = 2048

// NewDetector trusts loopback and RFC 1918 networks.
func NewDetector() *Detector {
	return &Detector{
		proxies: []netip.Prefix{
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("::1/128"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("172.16.0.0/12"),
			netip.MustParsePrefix("192.168.0.0/16"),
		},
	}
}

// AddTrustedProxy trusts forwarding headers set by peers in cidr. Call before
// serving.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.proxies = append(d.proxies, p.Masked())
	return nil
}

// classify returns a short reason when r looks like a scanner probe, or ""
// for ordinary API traffic.
func classify(r *http.Request) string {
	if r.Method == "TRACE" || r.Method == "TRACK" {
		return "method"
	}
	if len(r.URL.String()) > maxURLLength {
		return "url_length"
	}

	query := r.URL.RawQuery
	if q, err := url.QueryUnescape(query); err == nil {
		query = q
	}
	haystack := strings.ToLower(r.URL.Path + "?" + query)
	for _, f := range probeFragments {
		if strings.Contains(haystack, f) {
			return "pattern"
		}
	}

	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "user_agent"
		}
	}
	return ""
}

// DetectSuspiciousRequest reports whether r looks like a probe rather than an
// API call, and counts it if so.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if classify(r) == "" {
		return false
	}
	d.suspicious.Add(1)
	return true
}

// ExtractClientIP returns the peer address, or the first forwarded address
// when the peer is a trusted proxy. Forwarding headers from untrusted peers
// are ignored and counted.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if !d.trusted(peer) {
		if forwarded != "" || realIP != "" {
			d.spoofed.Add(1)
		}
		return host
	}

	first, _, _ := strings.Cut(forwarded, ",")
	for _, candidate := range []string{strings.TrimSpace(first), realIP} {
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return host
}

func (d *Detector) trusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range d.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		SpoofedForwarding:  d.spoofed.Load(),
	}
}

// Middleware logs suspicious requests and passes them on.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := classify(r); reason != "" {
			d.suspicious.Add(1)
			slog.WarnContext(r.Context(), "Suspicious request",
				applog.FieldComponent, applog.ComponentSecurity,
				"reason", reason,
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
