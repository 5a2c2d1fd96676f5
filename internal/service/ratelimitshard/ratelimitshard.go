// Package ratelimitshard wires the pure fixed-window algorithm in
// internal/domain/ratelimit behind the single-writer shard registry,
// turning it into the Rate-Limit Shard service. The Egress Proxy is its
// first caller.
package ratelimitshard

import (
	"context"
	"fmt"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/ratelimit"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// Shard buffers one ratelimit.Window per key, serialized through the actor
// registry so concurrent checks against the same key never race. When the
// actor binding is absent, checks fall back to a KV-backed counter
// instead, logging the misconfiguration once per call.
type Shard struct {
	registry ports.ActorRegistry
	cache    ports.KeyValueCache
	logger   mlog.Logger
	windows  map[string]*ratelimit.Window
}

// New builds a Shard. cache and logger may be nil when registry is always
// supplied (e.g. unit tests exercising only the in-memory path).
func New(registry ports.ActorRegistry, cache ports.KeyValueCache, logger mlog.Logger) *Shard {
	return &Shard{registry: registry, cache: cache, logger: logger, windows: map[string]*ratelimit.Window{}}
}

func (s *Shard) dispatch(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if s.registry == nil {
		return fn(ctx)
	}

	return s.registry.Dispatch(ctx, "ratelimit:"+key, fn)
}

// Check applies cost against key's fixed window and reports the result. Key
// is caller-defined; the Egress Proxy uses "user:host".
func (s *Shard) Check(ctx context.Context, key string, limit, windowSec, cost, nowMs int64) (ratelimit.Result, error) {
	if s.registry == nil && s.cache != nil {
		return s.checkViaCache(ctx, key, limit, windowSec, cost)
	}

	var result ratelimit.Result

	err := s.dispatch(ctx, key, func(ctx context.Context) error {
		res, next := ratelimit.Check(s.windows[key], limit, windowSec, cost, nowMs)
		s.windows[key] = &next
		result = res

		return nil
	})

	return result, err
}

// checkViaCache implements the actor-absent fallback: an atomic Incr gives
// linearizable counting even without an in-process actor, at the cost of a
// coarser fixed window (no clean cross-window reset boundary beyond TTL).
func (s *Shard) checkViaCache(ctx context.Context, key string, limit, windowSec, cost int64) (ratelimit.Result, error) {
	s.logger.Warnf("rate-limit shard has no actor registry bound for key %q; falling back to KV counter", key)

	cacheKey := "ratelimit-fallback:" + key

	var count int64

	for i := int64(0); i < cost; i++ {
		n, err := s.cache.Incr(ctx, cacheKey)
		if err != nil {
			return ratelimit.Result{}, fmt.Errorf("kv fallback incr: %w", err)
		}

		count = n

		if n == 1 {
			if err := s.cache.Expire(ctx, cacheKey, time.Duration(windowSec)*time.Second); err != nil {
				s.logger.Warnf("rate-limit kv fallback expire failed for %q: %v", cacheKey, err)
			}
		}
	}

	return ratelimit.Result{
		Allowed:   count <= limit,
		Remaining: maxInt64(limit-count, 0),
		Total:     count,
		Limit:     limit,
		WindowSec: windowSec,
		ResetMs:   windowSec * 1000,
	}, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}

	return b
}
