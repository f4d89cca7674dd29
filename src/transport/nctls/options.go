// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package nctls

import (
	"errors"
	"fmt"
	"sync"
	"time"

	x509crl "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/crl"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
)

var (
	// ErrInvalidArgument indicates missing or invalid caller supplied parameters.
	ErrInvalidArgument = errors.New("nctls: invalid argument")

	// ErrTLSConfig indicates that the TLS context or the revocation store could not be built.
	ErrTLSConfig = errors.New("nctls: TLS configuration error")
)

// Role selects which option set applies to a session.
type Role int

const (
	// RoleInitiator is used for sessions the client dials.
	RoleInitiator Role = iota
	// RoleResponder is used for call-home sessions accepted from the server.
	RoleResponder
)

// String returns the role name used in logs and metric labels.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// OptionSet is the TLS configuration of one role.
//
// It is safe for concurrent use. Setters replace every value they cover:
// a path not passed again is cleared, not kept.
type OptionSet struct {
	role   Role
	logger logger.Logger
	cache  *x509crl.Cache
	now    func() time.Time

	mu       sync.RWMutex
	certPath string
	keyPath  string
	caFile   string
	caDir    string
	crlFile  string
	crlDir   string

	ctx          *tlsContext
	store        *x509crl.Store
	dirtyContext bool
	dirtyStore   bool
}

// Options is a read-only copy of an option set's paths and build state.
type Options struct {
	Role         Role
	CertPath     string
	KeyPath      string
	CAFile       string
	CADir        string
	CRLFile      string
	CRLDir       string
	ContextBuilt bool
	StoreBuilt   bool
}

func newOptionSet(role Role, cfg *registryConfig) *OptionSet {
	return &OptionSet{
		role:   role,
		logger: cfg.logger,
		cache:  cfg.cache,
		now:    cfg.now,
	}
}

// Role returns the role this option set belongs to.
func (o *OptionSet) Role() Role { return o.role }

// SetCertKeyPaths sets the client certificate and its private key.
// An empty key means the key is stored in the certificate file.
func (o *OptionSet) SetCertKeyPaths(cert, key string) error {
	if cert == "" {
		return fmt.Errorf("%w: certificate path is required", ErrInvalidArgument)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.certPath = cert
	o.keyPath = key
	o.dirtyContext = true
	return nil
}

// CertKeyPaths returns the client certificate and key paths.
func (o *OptionSet) CertKeyPaths() (cert, key string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.certPath, o.keyPath
}

// GetCertKeyPaths stores the paths into the non-nil destinations.
func (o *OptionSet) GetCertKeyPaths(cert, key *string) error {
	if cert == nil && key == nil {
		return fmt.Errorf("%w: no destination for certificate or key path", ErrInvalidArgument)
	}
	c, k := o.CertKeyPaths()
	assign(cert, c)
	assign(key, k)
	return nil
}

// SetTrustedCAPaths sets the trust anchor file and directory. At least one is required.
func (o *OptionSet) SetTrustedCAPaths(file, dir string) error {
	if file == "" && dir == "" {
		return fmt.Errorf("%w: CA file or CA directory is required", ErrInvalidArgument)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.caFile = file
	o.caDir = dir
	o.dirtyContext = true
	return nil
}

// TrustedCAPaths returns the trust anchor file and directory.
func (o *OptionSet) TrustedCAPaths() (file, dir string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.caFile, o.caDir
}

// GetTrustedCAPaths stores the paths into the non-nil destinations.
func (o *OptionSet) GetTrustedCAPaths(file, dir *string) error {
	if file == nil && dir == nil {
		return fmt.Errorf("%w: no destination for CA file or directory", ErrInvalidArgument)
	}
	f, d := o.TrustedCAPaths()
	assign(file, f)
	assign(dir, d)
	return nil
}

// SetCRLPaths sets the CRL file and directory. At least one is required.
func (o *OptionSet) SetCRLPaths(file, dir string) error {
	if file == "" && dir == "" {
		return fmt.Errorf("%w: CRL file or CRL directory is required", ErrInvalidArgument)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.crlFile = file
	o.crlDir = dir
	o.dirtyStore = true
	return nil
}

// CRLPaths returns the CRL file and directory.
func (o *OptionSet) CRLPaths() (file, dir string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.crlFile, o.crlDir
}

// GetCRLPaths stores the paths into the non-nil destinations.
func (o *OptionSet) GetCRLPaths(file, dir *string) error {
	if file == nil && dir == nil {
		return fmt.Errorf("%w: no destination for CRL file or directory", ErrInvalidArgument)
	}
	f, d := o.CRLPaths()
	assign(file, f)
	assign(dir, d)
	return nil
}

// MarkStoreDirty forces the revocation store to be rebuilt on the next acquisition.
func (o *OptionSet) MarkStoreDirty() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dirtyStore = true
}

// Destroy releases every path and the built context and store.
// The option set stays usable and behaves like a new one.
func (o *OptionSet) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.certPath, o.keyPath = "", ""
	o.caFile, o.caDir = "", ""
	o.crlFile, o.crlDir = "", ""
	o.ctx = nil
	o.store = nil
	o.dirtyContext = false
	o.dirtyStore = false
}

// Snapshot returns a copy of the current paths and build state.
func (o *OptionSet) Snapshot() Options {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return Options{
		Role:         o.role,
		CertPath:     o.certPath,
		KeyPath:      o.keyPath,
		CAFile:       o.caFile,
		CADir:        o.caDir,
		CRLFile:      o.crlFile,
		CRLDir:       o.crlDir,
		ContextBuilt: o.ctx != nil && !o.dirtyContext,
		StoreBuilt:   o.store != nil && !o.dirtyStore,
	}
}

func assign(dst *string, v string) {
	if dst != nil {
		*dst = v
	}
}
