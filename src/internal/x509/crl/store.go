// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509crl

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
)

// ErrSourceUnavailable indicates that a CRL source could not be registered or read.
var ErrSourceUnavailable = errors.New("x509crl: CRL source unavailable")

// Source is a single place CRLs are looked up in.
type Source interface {
	// Lookup returns the first CRL whose issuer equals name, or nil when there is none.
	Lookup(name []byte) (*x509.RevocationList, error)
	// String describes the source for log and error messages.
	String() string
}

// Store is an ordered set of CRL sources. It is safe for concurrent lookups.
type Store struct {
	sources []Source
}

// Option configures [Build].
type Option func(*buildOptions)

type buildOptions struct {
	cache  *Cache
	logger logger.Logger
}

// WithCache makes directory sources share c instead of a per-store cache.
func WithCache(c *Cache) Option {
	return func(o *buildOptions) { o.cache = c }
}

// WithLogger sets the logger used to report skipped directory entries.
func WithLogger(l logger.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// Build creates a new store from a CRL file and a CRL directory.
// Either path may be empty. The file source, when present, is consulted first.
func Build(file, dir string, opts ...Option) (*Store, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Discard()
	}

	s := &Store{}

	if file != "" {
		src, err := NewFileSource(file)
		if err != nil {
			return nil, err
		}
		s.sources = append(s.sources, src)
	}

	if dir != "" {
		if o.cache == nil {
			o.cache = NewCache(nil)
		}
		src, err := NewDirSource(dir, o.cache, o.logger)
		if err != nil {
			return nil, err
		}
		s.sources = append(s.sources, src)
	}

	return s, nil
}

// NewStore returns a store over the given sources, consulted in order.
func NewStore(sources ...Source) *Store {
	return &Store{sources: sources}
}

// Sources returns the registered sources in lookup order.
func (s *Store) Sources() []Source {
	if s == nil {
		return nil
	}
	return append([]Source(nil), s.sources...)
}

// LookupBySubject returns the first CRL issued by the entity whose raw
// subject is name. A nil CRL with a nil error means no source has one.
// A nil store has no sources.
func (s *Store) LookupBySubject(name []byte) (*x509.RevocationList, error) {
	if s == nil {
		return nil, nil
	}
	for _, src := range s.sources {
		crl, err := src.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, src, err)
		}
		if crl != nil {
			return crl, nil
		}
	}
	return nil, nil
}
