package featureflags

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const Automations = "automations"

// Provider answers whether a flag is on for a tenant. Values may lag behind
// the billing system that writes them.
type Provider interface {
	IsFeatureEnabled(ctx context.Context, flag string, tenantID uuid.UUID) (bool, error)
}

// Setter is implemented by providers that can store per-tenant overrides.
type Setter interface {
	SetFeatureEnabled(ctx context.Context, flag string, tenantID uuid.UUID, enabled bool) error
}

// StaticProvider serves a fixed set of globally enabled flags plus
// in-memory per-tenant overrides.
type StaticProvider struct {
	mu        sync.RWMutex
	enabled   map[string]bool
	overrides map[string]bool
}

func NewStaticProvider(enabled ...string) *StaticProvider {
	p := &StaticProvider{
		enabled:   make(map[string]bool, len(enabled)),
		overrides: make(map[string]bool),
	}
	for _, f := range enabled {
		p.enabled[f] = true
	}
	return p
}

func (p *StaticProvider) IsFeatureEnabled(_ context.Context, flag string, tenantID uuid.UUID) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.overrides[key(flag, tenantID)]; ok {
		return v, nil
	}
	return p.enabled[flag], nil
}

func (p *StaticProvider) SetFeatureEnabled(_ context.Context, flag string, tenantID uuid.UUID, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[key(flag, tenantID)] = enabled
	return nil
}

// RedisProvider reads featureflags:<flag>:<tenant>. A missing key falls back
// to the provider defaults.
type RedisProvider struct {
	redis    *redis.Client
	defaults map[string]bool
}

func NewRedisProvider(client *redis.Client, defaults ...string) *RedisProvider {
	d := make(map[string]bool, len(defaults))
	for _, f := range defaults {
		d[f] = true
	}
	return &RedisProvider{redis: client, defaults: d}
}

func (p *RedisProvider) IsFeatureEnabled(ctx context.Context, flag string, tenantID uuid.UUID) (bool, error) {
	result, err := p.redis.Get(ctx, key(flag, tenantID)).Result()
	if err != nil {
		if err == redis.Nil {
			return p.defaults[flag], nil
		}
		return false, fmt.Errorf("featureflags: get %s: %w", flag, err)
	}
	enabled, err := strconv.ParseBool(result)
	if err != nil {
		return false, fmt.Errorf("featureflags: malformed value %q for %s", result, flag)
	}
	return enabled, nil
}

func (p *RedisProvider) SetFeatureEnabled(ctx context.Context, flag string, tenantID uuid.UUID, enabled bool) error {
	return p.redis.Set(ctx, key(flag, tenantID), strconv.FormatBool(enabled), 0).Err()
}

func key(flag string, tenantID uuid.UUID) string {
	return "featureflags:" + flag + ":" + tenantID.String()
}
