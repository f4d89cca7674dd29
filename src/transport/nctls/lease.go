// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package nctls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	x509revocation "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/revocation"
)

// ErrNotVerified is the verification result of a connection whose peer
// certificate has not been checked yet.
var ErrNotVerified = errors.New("nctls: peer certificate not verified")

// Lease is a read-locked view of a fully built option set.
// The option set cannot be modified until Release is called.
type Lease struct {
	role    Role
	config  *tls.Config
	state   *verifyState
	release func()
	once    sync.Once
}

// Acquire rebuilds the TLS context and the revocation store when needed and
// returns a lease over them. Rebuild failures wrap [ErrTLSConfig].
func (o *OptionSet) Acquire() (*Lease, error) {
	for {
		o.mu.RLock()
		if !o.needsRebuild() {
			return o.newLease(), nil
		}
		o.mu.RUnlock()

		o.mu.Lock()
		err := o.rebuild()
		o.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
}

// newLease builds the per-connection configuration. Callers hold the read lock,
// which the lease takes over.
func (o *OptionSet) newLease() *Lease {
	state := &verifyState{err: ErrNotVerified}
	verifier := &x509revocation.Verifier{Now: o.now, Logger: o.logger}
	if o.store != nil {
		verifier.Store = o.store
	}

	config := &tls.Config{
		MinVersion:    tls.VersionTLS12,
		MaxVersion:    tls.VersionTLS12,
		Renegotiation: tls.RenegotiateFreelyAsClient,
		Certificates:  []tls.Certificate{o.ctx.certificate},
		// Chain verification runs in VerifyConnection so that the revocation
		// check sees every certificate of the verified chain.
		InsecureSkipVerify: true,
		VerifyConnection:   verifyConnection(o.ctx.roots, verifier, o.now, state),
	}

	return &Lease{
		role:    o.role,
		config:  config,
		state:   state,
		release: o.mu.RUnlock,
	}
}

// Role returns the role of the leased option set.
func (l *Lease) Role() Role { return l.role }

// Config returns the TLS client configuration for one connection.
// The caller may set ServerName before the handshake.
func (l *Lease) Config() *tls.Config { return l.config }

// VerifyResult returns the chain verification result of the last handshake
// made with Config: nil when the chain verified, [ErrNotVerified] when no
// verification ran, or the chain error.
func (l *Lease) VerifyResult() error { return l.state.result() }

// Release gives the read lock back. It is safe to call more than once.
func (l *Lease) Release() { l.once.Do(l.release) }

type verifyState struct {
	mu  sync.Mutex
	err error
}

func (s *verifyState) set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *verifyState) result() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// verifyConnection verifies the peer chain against roots, without a host name
// check, and runs the revocation policy over the result.
func verifyConnection(roots *x509.CertPool, verifier *x509revocation.Verifier,
	now func() time.Time, state *verifyState) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			err := fmt.Errorf("%w: peer sent no certificate", x509revocation.ErrPreverifyFailed)
			state.set(err)
			return err
		}

		leaf := cs.PeerCertificates[0]
		intermediates := x509.NewCertPool()
		for _, c := range cs.PeerCertificates[1:] {
			intermediates.AddCert(c)
		}

		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		}
		if now != nil {
			opts.CurrentTime = now()
		}

		chains, chainErr := leaf.Verify(opts)
		state.set(chainErr)
		if chainErr != nil {
			return verifier.VerifyChain([]*x509.Certificate{leaf}, chainErr)
		}
		return verifier.VerifyChain(chains[0], nil)
	}
}
