// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package testutil generates throw-away PKI material and a minimal NETCONF
// over TLS peer for tests. It must only be imported from _test.go files.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var serialCounter atomic.Int64

func nextSerial() *big.Int { return big.NewInt(1000 + serialCounter.Add(1)) }

// Authority is a certificate authority usable for issuing certificates and CRLs.
type Authority struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
}

// Identity is an issued end-entity certificate with its key and issuing chain.
type Identity struct {
	Cert  *x509.Certificate
	Key   *ecdsa.PrivateKey
	Chain []*x509.Certificate
}

func newKey(tb testing.TB) *ecdsa.PrivateKey {
	tb.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		tb.Fatalf("generate key: %v", err)
	}
	return key
}

// NewRootCA creates a self-signed root authority.
func NewRootCA(tb testing.TB, cn string) *Authority {
	tb.Helper()

	key := newKey(tb)
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"netconf-tls-client tests"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		tb.Fatalf("create root certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("parse root certificate: %v", err)
	}

	return &Authority{Cert: cert, Key: key}
}

// NewIntermediate creates an intermediate authority signed by a.
func (a *Authority) NewIntermediate(tb testing.TB, cn string) *Authority {
	tb.Helper()

	key := newKey(tb)
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"netconf-tls-client tests"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.Cert, &key.PublicKey, a.Key)
	if err != nil {
		tb.Fatalf("create intermediate certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("parse intermediate certificate: %v", err)
	}

	return &Authority{Cert: cert, Key: key}
}

// IssueServer issues a server certificate valid for localhost and 127.0.0.1.
func (a *Authority) IssueServer(tb testing.TB, cn string) *Identity {
	tb.Helper()
	return a.issue(tb, cn, x509.ExtKeyUsageServerAuth)
}

// IssueClient issues a client authentication certificate.
func (a *Authority) IssueClient(tb testing.TB, cn string) *Identity {
	tb.Helper()
	return a.issue(tb, cn, x509.ExtKeyUsageClientAuth)
}

func (a *Authority) issue(tb testing.TB, cn string, usage x509.ExtKeyUsage) *Identity {
	tb.Helper()

	key := newKey(tb)
	template := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.Cert, &key.PublicKey, a.Key)
	if err != nil {
		tb.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("parse certificate: %v", err)
	}

	return &Identity{Cert: cert, Key: key, Chain: []*x509.Certificate{a.Cert}}
}

// TLSCertificate returns the identity in the form crypto/tls expects.
func (id *Identity) TLSCertificate() tls.Certificate {
	chain := [][]byte{id.Cert.Raw}
	for _, c := range id.Chain {
		chain = append(chain, c.Raw)
	}
	return tls.Certificate{Certificate: chain, PrivateKey: id.Key, Leaf: id.Cert}
}

// CRL returns a DER encoded revocation list issued by a.
func (a *Authority) CRL(tb testing.TB, thisUpdate, nextUpdate time.Time, revoked ...*big.Int) []byte {
	tb.Helper()

	template := &x509.RevocationList{
		Number:     nextSerial(),
		ThisUpdate: thisUpdate,
		NextUpdate: nextUpdate,
	}
	for _, serial := range revoked {
		template.RevokedCertificateEntries = append(template.RevokedCertificateEntries, x509.RevocationListEntry{
			SerialNumber:   serial,
			RevocationTime: thisUpdate,
		})
	}

	der, err := x509.CreateRevocationList(rand.Reader, template, a.Cert, a.Key)
	if err != nil {
		tb.Fatalf("create CRL: %v", err)
	}
	return der
}

// FreshCRL returns a CRL valid from an hour ago until a day from now.
func (a *Authority) FreshCRL(tb testing.TB, revoked ...*big.Int) []byte {
	tb.Helper()
	return a.CRL(tb, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour), revoked...)
}

type tbsCertList struct {
	Version             int `asn1:"optional"`
	Signature           pkix.AlgorithmIdentifier
	Issuer              asn1.RawValue
	ThisUpdate          time.Time
	NextUpdate          time.Time                 `asn1:"optional"`
	RevokedCertificates []pkix.RevokedCertificate `asn1:"optional"`
}

type certificateList struct {
	TBSCertList        asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

var oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}

// CRLWithoutNextUpdate hand-assembles a correctly signed CRL that omits the
// nextUpdate field, which crypto/x509 refuses to produce.
func (a *Authority) CRLWithoutNextUpdate(tb testing.TB) []byte {
	tb.Helper()

	alg := pkix.AlgorithmIdentifier{Algorithm: oidECDSAWithSHA256}
	tbs, err := asn1.Marshal(tbsCertList{
		Version:    1,
		Signature:  alg,
		Issuer:     asn1.RawValue{FullBytes: a.Cert.RawSubject},
		ThisUpdate: time.Now().Add(-time.Hour).UTC(),
	})
	if err != nil {
		tb.Fatalf("marshal tbsCertList: %v", err)
	}

	digest := sha256.Sum256(tbs)
	sig, err := ecdsa.SignASN1(rand.Reader, a.Key, digest[:])
	if err != nil {
		tb.Fatalf("sign CRL: %v", err)
	}

	der, err := asn1.Marshal(certificateList{
		TBSCertList:        asn1.RawValue{FullBytes: tbs},
		SignatureAlgorithm: alg,
		SignatureValue:     asn1.BitString{Bytes: sig, BitLength: len(sig) * 8},
	})
	if err != nil {
		tb.Fatalf("marshal CRL: %v", err)
	}
	return der
}

// CorruptSignature returns a copy of a DER CRL with its last signature byte flipped.
func CorruptSignature(der []byte) []byte {
	out := append([]byte(nil), der...)
	out[len(out)-1] ^= 0xff
	return out
}

// CertPEM encodes certificates as PEM.
func CertPEM(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, c := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	return out
}

// KeyPEM encodes a private key as PKCS#8 PEM.
func KeyPEM(tb testing.TB, key *ecdsa.PrivateKey) []byte {
	tb.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		tb.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// CRLPEM encodes DER revocation lists as PEM.
func CRLPEM(ders ...[]byte) []byte {
	var out []byte
	for _, der := range ders {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "X509 CRL", Bytes: der})...)
	}
	return out
}

// WriteFile writes data into dir/name and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ClientFiles is the on-disk material a client option set points at.
type ClientFiles struct {
	Cert   string
	Key    string
	CAFile string
}

// WriteClientFiles writes the client identity and the trust anchor into dir.
func WriteClientFiles(tb testing.TB, dir string, client *Identity, trust *Authority) ClientFiles {
	tb.Helper()
	return ClientFiles{
		Cert:   WriteFile(tb, dir, "client.pem", CertPEM(append([]*x509.Certificate{client.Cert}, client.Chain...)...)),
		Key:    WriteFile(tb, dir, "client.key", KeyPEM(tb, client.Key)),
		CAFile: WriteFile(tb, dir, "ca.pem", CertPEM(trust.Cert)),
	}
}
