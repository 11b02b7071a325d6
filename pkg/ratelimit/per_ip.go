// Package ratelimit provides per-client token-bucket rate limiting for the
// soapd HTTP endpoint.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Default per-IP limiter values.
const (
	DefaultRate       = 100
	DefaultMaxClients = 10000
	DefaultEntryTTL   = 1 * time.Minute
)

// PerIPConfig configures a PerIPLimiter.
type PerIPConfig struct {
	Rate            float64       // tokens per second
	Burst           int           // maximum bucket capacity
	TrustedProxies  []string      // CIDR ranges or single addresses of trusted proxies
	TrustAllProxies bool          // trust proxy headers from any source (insecure)
	MaxClients      int           // number of client buckets kept
	EntryTTL        time.Duration // how long an idle client bucket lives
}

// PerIPLimiter rate limits requests per client address.
// It is safe for concurrent use.
type PerIPLimiter struct {
	limit          rate.Limit
	burst          int
	buckets        *expirable.LRU[string, *rate.Limiter]
	trustedProxies []*net.IPNet
	trustProxy     bool
}

// NewPerIPLimiter creates a per-IP limiter. Idle client buckets expire after
// EntryTTL and the least recently seen clients are evicted beyond MaxClients.
func NewPerIPLimiter(cfg PerIPConfig) *PerIPLimiter {
	rps := cfg.Rate
	if rps <= 0 {
		rps = DefaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps * 2)
	}
	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = DefaultEntryTTL
	}

	rl := &PerIPLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](maxClients, nil, ttl),
	}

	if cfg.TrustAllProxies {
		rl.trustProxy = true
	} else {
		for _, entry := range cfg.TrustedProxies {
			if network := parseNetwork(entry); network != nil {
				rl.trustedProxies = append(rl.trustedProxies, network)
				rl.trustProxy = true
			}
		}
	}
	return rl
}

// Burst returns the maximum bucket capacity.
func (rl *PerIPLimiter) Burst() int {
	return rl.burst
}

// Allow reports whether a request from ip may proceed. An allowed request
// also gets the tokens left and the seconds until the bucket is full again; a
// denied one gets the seconds until the next token.
func (rl *PerIPLimiter) Allow(ip string) (allowed bool, remaining int, retryAfterSec int64) {
	return rl.allowAt(ip, time.Now())
}

func (rl *PerIPLimiter) allowAt(ip string, now time.Time) (bool, int, int64) {
	lim, ok := rl.buckets.Get(ip)
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets.Add(ip, lim)
	}

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining := max(int(tokens), 0)

	if !allowed {
		return false, 0, max(secondsFor(1-tokens, rl.limit), 1)
	}
	return true, remaining, secondsFor(float64(rl.burst)-tokens, rl.limit)
}

func secondsFor(tokens float64, limit rate.Limit) int64 {
	if tokens <= 0 {
		return 0
	}
	return int64(math.Ceil(tokens / float64(limit)))
}

// ClientIP extracts the client IP from the request, honouring
// X-Forwarded-For and X-Real-IP only when the peer is a trusted proxy.
func (rl *PerIPLimiter) ClientIP(r *http.Request) string {
	remoteIP := extractRemoteIP(r.RemoteAddr)

	if rl.isTrustedProxy(remoteIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return remoteIP
}

// Clients returns the number of tracked client buckets.
func (rl *PerIPLimiter) Clients() int {
	return rl.buckets.Len()
}

func (rl *PerIPLimiter) isTrustedProxy(ip string) bool {
	if !rl.trustProxy {
		return false
	}
	if rl.trustedProxies == nil {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range rl.trustedProxies {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

func parseNetwork(s string) *net.IPNet {
	if _, network, err := net.ParseCIDR(s); err == nil {
		return network
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	bits := 128
	if ip.To4() != nil {
		ip, bits = ip.To4(), 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func extractRemoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}
