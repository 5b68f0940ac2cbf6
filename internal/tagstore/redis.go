package tagstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// hashKey is the single Redis hash backing every tag cell, letting the
// simulator, PLC, HMI, and attackers run as independent processes sharing
// one store the way the reference deployment shares state over Redis
// streams and keys.
const hashKey = "reactorctl:tags"

// Health reports whether a Redis-backed store should be treated as reachable.
// A caller such as the redishealth monitor implements this to let Get/Set
// fail fast with ErrTransportFailure instead of attempting a doomed round
// trip to an already-known-dead connection.
type Health interface {
	Online() bool
}

// alwaysOnline is the default Health used when no monitor is wired in.
type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

// Redis is a Tag Store binding backed by a single Redis hash. It satisfies
// the same Store interface as Memory so every component is written once.
type Redis struct {
	rdb    *redis.Client
	ctx    context.Context
	health Health
	names  []string
}

// NewRedis constructs a Redis-backed Tag Store. ctx bounds every Redis call
// issued by Get/Set/Initialize; callers typically pass a long-lived
// background context and rely on per-call timeouts set on rdb itself.
func NewRedis(ctx context.Context, rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, ctx: ctx, health: alwaysOnline{}}
}

// WithHealth attaches a health monitor used to short-circuit Get/Set when
// the connection is known to be down.
func (r *Redis) WithHealth(h Health) *Redis {
	r.health = h
	return r
}

// Initialize declares pairs and writes their defaults via HSET, then
// remembers the declared name set for Get's unknown-tag check (Redis hashes
// have no notion of "declared but unset", so Initialize doubles as the
// declaration step Memory gets for free from its map).
func (r *Redis) Initialize(pairs map[string]float64) error {
	if !r.health.Online() {
		return fmt.Errorf("%w: redis offline", ErrTransportFailure)
	}
	fields := make(map[string]interface{}, len(pairs))
	names := make([]string, 0, len(pairs))
	for name, def := range pairs {
		fields[name] = def
		names = append(names, name)
	}
	if err := r.rdb.HSet(r.ctx, hashKey, fields).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	r.names = names
	return nil
}

func (r *Redis) declared(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// Get returns the current value, or ErrTagUnknown/ErrTagUninitialized/
// ErrTransportFailure.
func (r *Redis) Get(name string) Result[float64] {
	if !r.declared(name) {
		return Err[float64](fmt.Errorf("%w: %s", ErrTagUnknown, name))
	}
	if !r.health.Online() {
		return Err[float64](fmt.Errorf("%w: redis offline", ErrTransportFailure))
	}
	v, err := r.rdb.HGet(r.ctx, hashKey, name).Float64()
	if errors.Is(err, redis.Nil) {
		return Err[float64](fmt.Errorf("%w: %s", ErrTagUninitialized, name))
	}
	if err != nil {
		return Err[float64](fmt.Errorf("%w: %v", ErrTransportFailure, err))
	}
	return Ok(v)
}

// Set overwrites the current value unconditionally.
func (r *Redis) Set(name string, value float64) error {
	if !r.declared(name) {
		return fmt.Errorf("%w: %s", ErrTagUnknown, name)
	}
	if !r.health.Online() {
		return fmt.Errorf("%w: redis offline", ErrTransportFailure)
	}
	if err := r.rdb.HSet(r.ctx, hashKey, name, value).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return nil
}

// Names returns the declared tag names.
func (r *Redis) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
