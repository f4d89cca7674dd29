// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
	"github.com/cloudflare/cfssl/helpers/derhelpers"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/helper/gc"
)

var (
	// ErrInvalidBlockType indicates that the PEM block type is not the expected certificate type.
	ErrInvalidBlockType = errors.New("x509certs: invalid block type")

	// ErrParseCertificate indicates a failure to parse the certificate from the provided data.
	ErrParseCertificate = errors.New("x509certs: failed to parse certificate")

	// ErrNoCertificatesInPKCS indicates that no certificates were found in the PKCS7 data.
	ErrNoCertificatesInPKCS = errors.New("x509certs: no certificates found in PKCS7 data")

	// ErrParseCRL indicates a failure to parse a certificate revocation list.
	ErrParseCRL = errors.New("x509certs: failed to parse CRL")

	// ErrNoPrivateKey indicates that no private key block was found in the provided data.
	ErrNoPrivateKey = errors.New("x509certs: no private key found")

	// ErrParsePrivateKey indicates a failure to parse a private key.
	ErrParsePrivateKey = errors.New("x509certs: failed to parse private key")
)

const (
	certBlockType = "CERTIFICATE"
	crlBlockType  = "X509 CRL"
)

// Certificate provides methods to decode and encode [X.509] certificates,
// revocation lists and private keys.
//
// [X.509]: https://en.wikipedia.org/wiki/X.509
type Certificate struct {
	certBlockType string
	crlBlockType  string
}

// New creates a new Certificate with default settings.
func New() *Certificate {
	return &Certificate{
		certBlockType: certBlockType,
		crlBlockType:  crlBlockType,
	}
}

// IsPEM checks if the data is in PEM format.
func (c *Certificate) IsPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil
}

// DecodeMultiple decodes one or more certificates from data.
//
// PEM input may mix certificate blocks with other blocks (a private key stored
// next to the certificate, for example); non-certificate blocks are skipped.
// DER input is parsed as a certificate sequence first and as a PKCS7 bundle second.
func (c *Certificate) DecodeMultiple(data []byte) ([]*x509.Certificate, error) {
	if c.IsPEM(data) {
		var certs []*x509.Certificate

		for len(data) > 0 {
			block, rest := pem.Decode(data)
			if block == nil {
				break
			}
			data = rest
			if block.Type != c.certBlockType {
				continue
			}

			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrParseCertificate, err)
			}

			certs = append(certs, cert)
		}

		if len(certs) == 0 {
			return nil, ErrInvalidBlockType
		}
		return certs, nil
	}

	certs, err := x509.ParseCertificates(data)
	if err == nil && len(certs) > 0 {
		return certs, nil
	}

	p, perr := pkcs7.ParsePKCS7(data)
	if perr != nil {
		return nil, ErrParseCertificate
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificatesInPKCS
	}

	return p.Content.SignedData.Certificates, nil
}

// DecodeCRLs decodes every revocation list contained in data.
// PEM input may contain several "X509 CRL" blocks; DER input holds exactly one list.
func (c *Certificate) DecodeCRLs(data []byte) ([]*x509.RevocationList, error) {
	if !c.IsPEM(data) {
		crl, err := x509.ParseRevocationList(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseCRL, err)
		}
		return []*x509.RevocationList{crl}, nil
	}

	var crls []*x509.RevocationList
	for len(data) > 0 {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		data = rest
		if block.Type != c.crlBlockType {
			continue
		}

		crl, err := x509.ParseRevocationList(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseCRL, err)
		}
		crls = append(crls, crl)
	}

	if len(crls) == 0 {
		return nil, ErrParseCRL
	}
	return crls, nil
}

// DecodePrivateKey finds the first private key block in PEM data and parses it.
// PKCS#1, PKCS#8 and SEC1 encodings are accepted through cfssl's DER helpers.
func (c *Certificate) DecodePrivateKey(data []byte) (crypto.Signer, error) {
	for len(data) > 0 {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		data = rest
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}

		key, err := derhelpers.ParsePrivateKeyDER(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParsePrivateKey, err)
		}
		return key, nil
	}

	return nil, ErrNoPrivateKey
}

// LoadCertificates reads a file and decodes every certificate in it.
func (c *Certificate) LoadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := gc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.DecodeMultiple(data)
}

// LoadCRLs reads a file and decodes every revocation list in it.
func (c *Certificate) LoadCRLs(path string) ([]*x509.RevocationList, error) {
	data, err := gc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.DecodeCRLs(data)
}

// LoadPrivateKey reads a file and decodes the first private key in it.
func (c *Certificate) LoadPrivateKey(path string) (crypto.Signer, error) {
	data, err := gc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.DecodePrivateKey(data)
}

// EncodePEM encodes certs as consecutive "CERTIFICATE" blocks, in order.
func (c *Certificate) EncodePEM(certs ...*x509.Certificate) ([]byte, error) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	for _, cert := range certs {
		if err := pem.Encode(buf, &pem.Block{Type: c.certBlockType, Bytes: cert.Raw}); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), buf.Bytes()...), nil
}
