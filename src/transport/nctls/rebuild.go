// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package nctls

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	x509certs "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/certs"
	x509crl "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/crl"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
)

// tlsContext is the part of a TLS configuration built from files.
type tlsContext struct {
	certificate tls.Certificate
	roots       *x509.CertPool
	anchors     int
}

func (o *OptionSet) hasCRLPaths() bool { return o.crlFile != "" || o.crlDir != "" }

// needsRebuild reports whether Acquire must rebuild before leasing. Callers hold o.mu.
func (o *OptionSet) needsRebuild() bool {
	return o.ctx == nil || o.dirtyContext || o.dirtyStore || (o.store == nil && o.hasCRLPaths())
}

// rebuild replaces the dirty parts. Callers hold the write lock.
// The old object is dropped before the new one is built, so a failure leaves
// nothing behind and the next acquisition retries.
func (o *OptionSet) rebuild() error {
	if o.ctx == nil || o.dirtyContext {
		o.ctx = nil
		ctx, err := o.buildContext()
		metrics.OptionRebuilds.WithLabelValues(o.role.String(), "context", metrics.Result(err)).Inc()
		if err != nil {
			o.logger.Errorf("%s: %v", o.role, err)
			return err
		}
		o.ctx = ctx
		o.dirtyContext = false
		o.logger.Debugf("%s: TLS context built with %d trust anchors", o.role, ctx.anchors)
	}

	if o.dirtyStore || (o.store == nil && o.hasCRLPaths()) {
		o.store = nil
		if o.hasCRLPaths() {
			store, err := x509crl.Build(o.crlFile, o.crlDir,
				x509crl.WithCache(o.cache), x509crl.WithLogger(o.logger))
			metrics.OptionRebuilds.WithLabelValues(o.role.String(), "store", metrics.Result(err)).Inc()
			if err != nil {
				err = fmt.Errorf("%w: revocation store: %w", ErrTLSConfig, err)
				o.logger.Errorf("%s: %v", o.role, err)
				return err
			}
			o.store = store
			o.logger.Debugf("%s: revocation store built with %d sources", o.role, len(store.Sources()))
		}
		o.dirtyStore = false
	}

	return nil
}

func (o *OptionSet) buildContext() (*tlsContext, error) {
	if o.certPath == "" {
		return nil, fmt.Errorf("%w: no client certificate configured", ErrTLSConfig)
	}
	if o.caFile == "" && o.caDir == "" {
		return nil, fmt.Errorf("%w: no trusted CA location configured", ErrTLSConfig)
	}

	decoder := x509certs.New()

	certs, err := decoder.LoadCertificates(o.certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading client certificate %q: %w", ErrTLSConfig, o.certPath, err)
	}

	keyPath := o.keyPath
	if keyPath == "" {
		keyPath = o.certPath
	}
	key, err := decoder.LoadPrivateKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading private key %q: %w", ErrTLSConfig, keyPath, err)
	}

	pub, ok := certs[0].PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(key.Public()) {
		return nil, fmt.Errorf("%w: private key %q does not match certificate %q", ErrTLSConfig, keyPath, o.certPath)
	}

	chain := make([][]byte, 0, len(certs))
	for _, c := range certs {
		chain = append(chain, c.Raw)
	}

	ctx := &tlsContext{
		certificate: tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: certs[0]},
		roots:       x509.NewCertPool(),
	}

	if o.caFile != "" {
		anchors, err := decoder.LoadCertificates(o.caFile)
		if err != nil {
			return nil, fmt.Errorf("%w: loading CA file %q: %w", ErrTLSConfig, o.caFile, err)
		}
		for _, a := range anchors {
			ctx.roots.AddCert(a)
		}
		ctx.anchors += len(anchors)
	}

	if o.caDir != "" {
		n, err := loadCADir(decoder, o.caDir, ctx.roots)
		if err != nil {
			return nil, fmt.Errorf("%w: loading CA directory %q: %w", ErrTLSConfig, o.caDir, err)
		}
		ctx.anchors += n
	}

	return ctx, nil
}

// loadCADir adds every certificate found in the regular files of dir.
// Files that hold no certificate are skipped.
func loadCADir(decoder *x509certs.Certificate, dir string, pool *x509.CertPool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		certs, err := decoder.LoadCertificates(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		for _, c := range certs {
			pool.AddCert(c)
		}
		n += len(certs)
	}
	return n, nil
}
