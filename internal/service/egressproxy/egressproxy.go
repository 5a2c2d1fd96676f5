// Package egressproxy implements the Egress Proxy: the
// capability-gated HTTP forwarder that lets a running capsule reach the
// public internet through a server-side proxy instead of raw outbound
// network access, enforcing ownership, an allowlist intersection, a
// free-plan gate, and a per-(user,host) rate limit before forwarding.
package egressproxy

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/egress"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/ratelimitshard"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// CapsuleLookup is the narrow read this service needs from capsule storage.
type CapsuleLookup interface {
	// GetOwnerAndManifest returns the capsule's owner id and parsed
	// manifest, exists=false if no such capsule.
	GetOwnerAndManifest(ctx context.Context, capsuleID string) (ownerID string, m capsule.Manifest, exists bool, err error)
}

const (
	defaultRateLimit     = 100
	defaultRateWindowSec = 60
)

// Config is the environment-driven behavior of the proxy.
type Config struct {
	// Enabled gates the whole feature.
	Enabled bool
	// FreeNetProxyEnabled is NET_PROXY_FREE_ENABLED — whether free-plan
	// users may use the proxy at all (step 6).
	FreeNetProxyEnabled bool
	// AllowlistHosts is the environment's global host allowlist (step 4).
	AllowlistHosts []string
	RateLimit      int64
	RateWindowSec  int64
}

// Forwarder drives the full request/response state machine.
type Forwarder struct {
	cfg       Config
	capsules  CapsuleLookup
	ratelimit *ratelimitshard.Shard
	transport http.RoundTripper
	nowMs     func() int64
}

// New builds a Forwarder. transport defaults to http.DefaultTransport if nil.
func New(cfg Config, capsules CapsuleLookup, ratelimit *ratelimitshard.Shard, transport http.RoundTripper, nowMs func() int64) *Forwarder {
	if transport == nil {
		transport = http.DefaultTransport
	}

	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}

	if cfg.RateWindowSec == 0 {
		cfg.RateWindowSec = defaultRateWindowSec
	}

	return &Forwarder{cfg: cfg, capsules: capsules, ratelimit: ratelimit, transport: transport, nowMs: nowMs}
}

// Request is the inbound forward request.
type Request struct {
	URL         string
	CapsuleID   string
	CallerID    string
	CallerPlan  string
	Method      string
	Body        io.Reader
	BodyHeaders http.Header
}

// RateLimitHeaders mirrors the X-RateLimit-* response headers a 429
// carries.
type RateLimitHeaders struct {
	Limit     int64
	Remaining int64
	ResetMs   int64
}

// redactedRequestHeaders are stripped before forwarding so a capsule can
// never exfiltrate the caller's own session/auth material through the proxy.
var redactedRequestHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"x-forwarded-for": true,
}

// Forward runs the 8-step state machine and, on success, performs the
// upstream request, returning the raw *http.Response for the caller to
// stream back (with set-cookie stripped).
func (f *Forwarder) Forward(ctx context.Context, req Request) (*http.Response, error) {
	if !f.cfg.Enabled {
		return nil, apperr.ForbiddenError{Code: "PROXY_DISABLED", Title: "Forbidden", Message: "the egress proxy is disabled"}
	}

	target, err := egress.ParseAndValidate(req.URL)
	if err != nil {
		return nil, apperr.ForbiddenError{Code: "BLOCKED_ADDRESS", Title: "Forbidden", Message: err.Error()}
	}

	ownerID, manifest, exists, err := f.capsules.GetOwnerAndManifest(ctx, req.CapsuleID)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, apperr.NotFoundError{EntityType: "capsule", Code: "CAPSULE_NOT_FOUND", Message: "capsule not found"}
	}

	if ownerID != req.CallerID {
		return nil, apperr.ForbiddenError{Code: "FORBIDDEN", Title: "Forbidden", Message: "caller does not own this capsule"}
	}

	effective := egress.IntersectAllowlists(manifest.Capabilities.Net, f.cfg.AllowlistHosts)
	if len(effective) == 0 {
		return nil, apperr.ForbiddenError{Code: "EMPTY_ALLOWLIST", Title: "Forbidden", Message: "this capsule has no allowed outbound hosts"}
	}

	host, port := target.Hostname(), target.Port()
	if !egress.HostAllowed(effective, target.Scheme, host, port) {
		return nil, apperr.ForbiddenError{Code: "BLOCKED_ADDRESS", Title: "Forbidden", Message: "host is not in the capsule's effective allowlist"}
	}

	if req.CallerPlan == "free" && !f.cfg.FreeNetProxyEnabled {
		return nil, apperr.ForbiddenError{Code: "FREE_NOT_ENABLED", Title: "Forbidden", Message: "the egress proxy is not available on the free plan"}
	}

	if f.ratelimit != nil {
		key := req.CallerID + ":" + host

		result, err := f.ratelimit.Check(ctx, key, f.cfg.RateLimit, f.cfg.RateWindowSec, 1, f.nowMs())
		if err != nil {
			return nil, err
		}

		if !result.Allowed {
			return nil, apperr.RateLimitedError{
				Code:      "RATE_LIMITED",
				Title:     "Too Many Requests",
				Message:   "rate limit exceeded for this host",
				Limit:     int(result.Limit),
				Remaining: 0,
				ResetMs:   result.ResetMs,
			}
		}
	}

	outbound, err := http.NewRequestWithContext(ctx, methodOrDefault(req.Method), target.String(), req.Body)
	if err != nil {
		return nil, apperr.ValidateInternalError(err, "proxy")
	}

	for k, vs := range req.BodyHeaders {
		if redactedRequestHeaders[strings.ToLower(k)] {
			continue
		}

		for _, v := range vs {
			outbound.Header.Add(k, v)
		}
	}

	resp, err := f.transport.RoundTrip(outbound)
	if err != nil {
		return nil, apperr.ValidateInternalError(err, "proxy")
	}

	resp.Header.Del("Set-Cookie")

	return resp, nil
}

func methodOrDefault(m string) string {
	if m == "" {
		return http.MethodGet
	}

	return m
}

// RateLimitHeadersFor extracts X-RateLimit-* header values from a
// RateLimitedError, for the HTTP handler to set on a 429 response.
func RateLimitHeadersFor(err apperr.RateLimitedError) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(err.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(err.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(err.ResetMs, 10),
	}
}
