// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package nctls

import (
	"sync"
	"time"

	x509crl "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/crl"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
)

// Registry holds one option set per role.
type Registry struct {
	initiator *OptionSet
	responder *OptionSet
}

type registryConfig struct {
	logger logger.Logger
	cache  *x509crl.Cache
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*registryConfig)

// WithLogger sets the logger used for rebuild and verification messages.
func WithLogger(l logger.Logger) Option {
	return func(c *registryConfig) { c.logger = l }
}

// WithCRLCache sets the cache shared by CRL directory sources of both roles.
func WithCRLCache(cache *x509crl.Cache) Option {
	return func(c *registryConfig) { c.cache = cache }
}

// WithClock sets the clock used for chain and CRL validity checks.
func WithClock(now func() time.Time) Option {
	return func(c *registryConfig) { c.now = now }
}

// NewRegistry returns a registry with empty option sets.
func NewRegistry(opts ...Option) *Registry {
	cfg := &registryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Discard()
	}
	if cfg.cache == nil {
		cfg.cache = x509crl.NewCache(nil)
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	return &Registry{
		initiator: newOptionSet(RoleInitiator, cfg),
		responder: newOptionSet(RoleResponder, cfg),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Initiator returns the option set for sessions the client dials.
func (r *Registry) Initiator() *OptionSet { return r.initiator }

// Responder returns the option set for call-home sessions.
func (r *Registry) Responder() *OptionSet { return r.responder }

// For returns the option set of role. Unknown roles map to the initiator.
func (r *Registry) For(role Role) *OptionSet {
	if role == RoleResponder {
		return r.responder
	}
	return r.initiator
}

// Destroy clears both option sets.
func (r *Registry) Destroy() {
	r.initiator.Destroy()
	r.responder.Destroy()
}
