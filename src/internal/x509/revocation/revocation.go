// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509revocation

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
)

var (
	// ErrPreverifyFailed indicates that chain verification had already rejected the certificate.
	ErrPreverifyFailed = errors.New("x509revocation: certificate failed chain verification")

	// ErrCRLSignatureInvalid indicates a CRL whose signature does not verify with its issuer's key.
	ErrCRLSignatureInvalid = errors.New("x509revocation: invalid CRL signature")

	// ErrCRLMalformed indicates a CRL without a nextUpdate field.
	ErrCRLMalformed = errors.New("x509revocation: CRL has no nextUpdate field")

	// ErrCRLExpired indicates a CRL whose nextUpdate is not in the future.
	ErrCRLExpired = errors.New("x509revocation: CRL has expired")

	// ErrCertificateRevoked indicates that the certificate's serial number is listed in its issuer's CRL.
	ErrCertificateRevoked = errors.New("x509revocation: certificate revoked")

	// ErrStoreLookup indicates that the CRL store could not be queried.
	ErrStoreLookup = errors.New("x509revocation: CRL store lookup failed")
)

// Store looks up CRLs by the raw distinguished name of their issuer.
type Store interface {
	LookupBySubject(name []byte) (*x509.RevocationList, error)
}

// Verifier applies the revocation policy of one option set.
// The zero value accepts every certificate that passed chain verification.
type Verifier struct {
	// Store is consulted for CRLs. Nil disables revocation checking.
	Store Store
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
	// Logger receives a message for every rejection. Nil discards them.
	Logger logger.Logger
}

// Verify checks a single certificate. preverifyOK carries the result of
// chain verification for it; a false value is never overridden.
func (v *Verifier) Verify(preverifyOK bool, cert *x509.Certificate) error {
	if !preverifyOK {
		return v.reject("preverify", fmt.Errorf("%w: %s", ErrPreverifyFailed, cert.Subject))
	}
	if v.Store == nil {
		return nil
	}

	// The CRL this certificate issued, if any.
	crl, err := v.Store.LookupBySubject(cert.RawSubject)
	if err != nil {
		return v.reject("store_lookup", fmt.Errorf("%w: %w", ErrStoreLookup, err))
	}
	if crl != nil {
		if err := v.checkIssuedCRL(cert, crl); err != nil {
			return err
		}
	}

	// The CRL issued by this certificate's issuer, if any.
	crl, err = v.Store.LookupBySubject(cert.RawIssuer)
	if err != nil {
		return v.reject("store_lookup", fmt.Errorf("%w: %w", ErrStoreLookup, err))
	}
	if crl != nil {
		for _, entry := range crl.RevokedCertificateEntries {
			if entry.SerialNumber != nil && entry.SerialNumber.Cmp(cert.SerialNumber) == 0 {
				return v.reject("revoked", fmt.Errorf("%w: serial %s (%s) revoked by %s",
					ErrCertificateRevoked, cert.SerialNumber, cert.Subject, crl.Issuer))
			}
		}
	}

	return nil
}

func (v *Verifier) checkIssuedCRL(cert *x509.Certificate, crl *x509.RevocationList) error {
	if err := cert.CheckSignature(crl.SignatureAlgorithm, crl.RawTBSRevocationList, crl.Signature); err != nil {
		return v.reject("crl_signature", fmt.Errorf("%w: CRL of %s: %w", ErrCRLSignatureInvalid, cert.Subject, err))
	}
	if crl.NextUpdate.IsZero() {
		return v.reject("crl_malformed", fmt.Errorf("%w: CRL of %s", ErrCRLMalformed, cert.Subject))
	}
	if !crl.NextUpdate.After(v.now()) {
		return v.reject("crl_expired", fmt.Errorf("%w: CRL of %s expired at %s",
			ErrCRLExpired, cert.Subject, crl.NextUpdate.Format(time.RFC3339)))
	}
	return nil
}

// VerifyChain checks a verified chain from the trust anchor down to the leaf,
// stopping at the first rejection. When chainErr is set only the leaf is
// checked, with preverifyOK false, and the chain error is returned with the rejection.
func (v *Verifier) VerifyChain(chain []*x509.Certificate, chainErr error) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: empty chain", ErrPreverifyFailed)
	}
	if chainErr != nil {
		return fmt.Errorf("%w: %w", v.Verify(false, chain[0]), chainErr)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if err := v.Verify(true, chain[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Verifier) reject(reason string, err error) error {
	metrics.RevocationRejections.WithLabelValues(reason).Inc()
	if v.Logger != nil {
		v.Logger.Warnf("certificate rejected: %v", err)
	}
	return err
}
