package egressproxy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/ratelimitshard"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

type fakeCapsules struct {
	ownerID string
	net     []string
	exists  bool
}

func (f *fakeCapsules) GetOwnerAndManifest(ctx context.Context, capsuleID string) (string, capsule.Manifest, bool, error) {
	m := capsule.Manifest{Version: "1.0", Runner: "html", Entry: "index.html"}
	m.Capabilities.Net = f.net

	return f.ownerID, m, f.exists, nil
}

type captureTransport struct {
	lastReq *http.Request
	resp    *http.Response
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lastReq = req

	if t.resp != nil {
		return t.resp, nil
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("ok")),
	}, nil
}

func newForwarder(cfg Config, caps *fakeCapsules, transport http.RoundTripper) *Forwarder {
	shard := ratelimitshard.New(nil, nil, nil)
	return New(cfg, caps, shard, transport, func() int64 { return 1_000 })
}

func errCode(t *testing.T, err error) string {
	t.Helper()

	switch e := err.(type) {
	case apperr.ForbiddenError:
		return e.Code
	case apperr.RateLimitedError:
		return e.Code
	case apperr.NotFoundError:
		return e.Code
	default:
		t.Fatalf("unexpected error type %T: %v", err, err)
		return ""
	}
}

func TestForwardRejectsWhenDisabled(t *testing.T) {
	f := newForwarder(Config{Enabled: false}, &fakeCapsules{}, &captureTransport{})

	_, err := f.Forward(context.Background(), Request{URL: "https://api.github.com/repos", CapsuleID: "c1", CallerID: "u1"})
	require.Error(t, err)
	require.Equal(t, "PROXY_DISABLED", errCode(t, err))
}

func TestForwardRejectsBlockedAddresses(t *testing.T) {
	caps := &fakeCapsules{ownerID: "u1", net: []string{"api.github.com"}, exists: true}
	f := newForwarder(Config{Enabled: true, AllowlistHosts: []string{"api.github.com"}}, caps, &captureTransport{})

	for _, raw := range []string{
		"ftp://api.github.com/file",
		"https://127.0.0.1/admin",
		"https://localhost/admin",
		"https://10.0.0.5/internal",
		"https://192.168.1.1/router",
		"https://169.254.169.254/latest/meta-data",
		"https://[::1]/admin",
	} {
		_, err := f.Forward(context.Background(), Request{URL: raw, CapsuleID: "c1", CallerID: "u1"})
		require.Error(t, err, raw)
		require.Equal(t, "BLOCKED_ADDRESS", errCode(t, err), raw)
	}
}

func TestForwardRejectsNonOwner(t *testing.T) {
	caps := &fakeCapsules{ownerID: "someone-else", net: []string{"api.github.com"}, exists: true}
	f := newForwarder(Config{Enabled: true, AllowlistHosts: []string{"api.github.com"}}, caps, &captureTransport{})

	_, err := f.Forward(context.Background(), Request{URL: "https://api.github.com/repos", CapsuleID: "c1", CallerID: "u1"})
	require.Error(t, err)
	require.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestForwardRejectsEmptyAllowlistIntersection(t *testing.T) {
	caps := &fakeCapsules{ownerID: "u1", net: []string{"api.github.com"}, exists: true}
	f := newForwarder(Config{Enabled: true, AllowlistHosts: []string{"other.example.com"}}, caps, &captureTransport{})

	_, err := f.Forward(context.Background(), Request{URL: "https://api.github.com/repos", CapsuleID: "c1", CallerID: "u1"})
	require.Error(t, err)
	require.Equal(t, "EMPTY_ALLOWLIST", errCode(t, err))
}

func TestForwardRejectsHostOutsideAllowlist(t *testing.T) {
	caps := &fakeCapsules{ownerID: "u1", net: []string{"api.github.com", "evil.example.com"}, exists: true}
	f := newForwarder(Config{Enabled: true, AllowlistHosts: []string{"api.github.com"}}, caps, &captureTransport{})

	_, err := f.Forward(context.Background(), Request{URL: "https://evil.example.com/", CapsuleID: "c1", CallerID: "u1"})
	require.Error(t, err)
	require.Equal(t, "BLOCKED_ADDRESS", errCode(t, err))
}

func TestForwardGatesFreePlan(t *testing.T) {
	caps := &fakeCapsules{ownerID: "u1", net: []string{"api.github.com"}, exists: true}
	f := newForwarder(Config{Enabled: true, FreeNetProxyEnabled: false, AllowlistHosts: []string{"api.github.com"}}, caps, &captureTransport{})

	_, err := f.Forward(context.Background(), Request{URL: "https://api.github.com/repos", CapsuleID: "c1", CallerID: "u1", CallerPlan: "free"})
	require.Error(t, err)
	require.Equal(t, "FREE_NOT_ENABLED", errCode(t, err))
}

func TestForwardRateLimitsPerUserHost(t *testing.T) {
	caps := &fakeCapsules{ownerID: "u1", net: []string{"api.github.com"}, exists: true}
	cfg := Config{Enabled: true, FreeNetProxyEnabled: true, AllowlistHosts: []string{"api.github.com"}, RateLimit: 2, RateWindowSec: 60}
	f := newForwarder(cfg, caps, &captureTransport{})

	req := Request{URL: "https://api.github.com/repos", CapsuleID: "c1", CallerID: "u1", CallerPlan: "pro"}

	for i := 0; i < 2; i++ {
		resp, err := f.Forward(context.Background(), req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	_, err := f.Forward(context.Background(), req)
	require.Error(t, err)

	rlErr, ok := err.(apperr.RateLimitedError)
	require.True(t, ok, "expected RateLimitedError, got %T", err)
	require.Equal(t, 2, rlErr.Limit)

	headers := RateLimitHeadersFor(rlErr)
	require.Equal(t, "2", headers["X-RateLimit-Limit"])
	require.Equal(t, "0", headers["X-RateLimit-Remaining"])
	require.NotEmpty(t, headers["X-RateLimit-Reset"])
}

func TestForwardStripsSetCookieAndRedactsRequestHeaders(t *testing.T) {
	caps := &fakeCapsules{ownerID: "u1", net: []string{"api.github.com"}, exists: true}

	upstream := &captureTransport{resp: &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Set-Cookie": []string{"session=abc"}, "Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader("{}")),
	}}

	f := newForwarder(Config{Enabled: true, AllowlistHosts: []string{"api.github.com"}}, caps, upstream)

	inbound := http.Header{}
	inbound.Set("Authorization", "Bearer secret")
	inbound.Set("Cookie", "session=abc")
	inbound.Set("Accept", "application/json")

	resp, err := f.Forward(context.Background(), Request{
		URL:         "https://api.github.com/repos",
		CapsuleID:   "c1",
		CallerID:    "u1",
		CallerPlan:  "pro",
		BodyHeaders: inbound,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Empty(t, resp.Header.Get("Set-Cookie"))
	require.Empty(t, upstream.lastReq.Header.Get("Authorization"))
	require.Empty(t, upstream.lastReq.Header.Get("Cookie"))
	require.Equal(t, "application/json", upstream.lastReq.Header.Get("Accept"))
}
