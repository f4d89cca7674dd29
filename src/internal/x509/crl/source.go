// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509crl

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
)

// FileSource serves the CRLs loaded from one file at construction time.
type FileSource struct {
	path string
	crls []*x509.RevocationList
}

// NewFileSource loads every CRL in path. The file may hold several PEM
// "X509 CRL" blocks or a single DER encoded list.
func NewFileSource(path string) (*FileSource, error) {
	crls, err := x509certs.New().LoadCRLs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: CRL file %s: %w", ErrSourceUnavailable, path, err)
	}
	return &FileSource{path: path, crls: crls}, nil
}

// Lookup implements [Source].
func (f *FileSource) Lookup(name []byte) (*x509.RevocationList, error) {
	return firstIssuedBy(f.crls, name), nil
}

// Len returns the number of CRLs loaded.
func (f *FileSource) Len() int { return len(f.crls) }

func (f *FileSource) String() string { return "file " + f.path }

// DirSource scans a directory of CRL files on every lookup.
// Files that cannot be parsed as CRLs are skipped.
type DirSource struct {
	dir    string
	cache  *Cache
	logger logger.Logger
}

// NewDirSource registers dir, which must exist and be a directory.
func NewDirSource(dir string, cache *Cache, log logger.Logger) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: CRL directory %s: %w", ErrSourceUnavailable, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: CRL directory %s: not a directory", ErrSourceUnavailable, dir)
	}
	if cache == nil {
		cache = NewCache(nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &DirSource{dir: dir, cache: cache, logger: log}, nil
}

// Lookup implements [Source]. Entries are visited in lexical order.
func (d *DirSource) Lookup(name []byte) (*x509.RevocationList, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	decoder := x509certs.New()
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}

		path := filepath.Join(d.dir, entry.Name())
		crls, ok := d.cache.Get(path, info)
		if ok {
			metrics.CRLCacheLookups.WithLabelValues("hit").Inc()
		} else {
			metrics.CRLCacheLookups.WithLabelValues("miss").Inc()
			crls = d.load(decoder, path)
			d.cache.Set(path, info, crls)
		}

		if crl := firstIssuedBy(crls, name); crl != nil {
			return crl, nil
		}
	}

	return nil, nil
}

func (d *DirSource) load(decoder *x509certs.Certificate, path string) []*x509.RevocationList {
	data, err := gc.ReadFile(path)
	if err != nil {
		d.logger.Debugf("skipping CRL candidate %s: %v", path, err)
		return nil
	}
	crls, err := decoder.DecodeCRLs(data)
	if err != nil {
		d.logger.Debugf("skipping CRL candidate %s: %v", path, err)
		return nil
	}
	return crls
}

func (d *DirSource) String() string { return "directory " + d.dir }

func firstIssuedBy(crls []*x509.RevocationList, name []byte) *x509.RevocationList {
	for _, crl := range crls {
		if bytes.Equal(crl.RawIssuer, name) {
			return crl
		}
	}
	return nil
}
