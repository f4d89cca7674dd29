// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509revocation_test

import (
	"crypto/x509"
	"errors"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/testutil"
	x509crl "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/crl"
	x509revocation "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/revocation"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
)

// storeWith writes the CRLs into a PEM file and builds a store over it.
func storeWith(t *testing.T, ders ...[]byte) *x509crl.Store {
	t.Helper()
	path := testutil.WriteFile(t, t.TempDir(), "crls.pem", testutil.CRLPEM(ders...))
	store, err := x509crl.Build(path, "")
	require.NoError(t, err)
	return store
}

// mockStore is a testify mock of the CRL store.
type mockStore struct{ mock.Mock }

func (m *mockStore) LookupBySubject(name []byte) (*x509.RevocationList, error) {
	args := m.Called(name)
	crl, _ := args.Get(0).(*x509.RevocationList)
	return crl, args.Error(1)
}

// recordingStore records the names it is asked for and never finds a CRL.
type recordingStore struct{ names [][]byte }

func (r *recordingStore) LookupBySubject(name []byte) (*x509.RevocationList, error) {
	r.names = append(r.names, name)
	return nil, nil
}

func TestVerify(t *testing.T) {
	root := testutil.NewRootCA(t, "revocation root")
	intermediate := root.NewIntermediate(t, "revocation intermediate")
	leaf := intermediate.IssueServer(t, "device-1")
	sibling := intermediate.IssueServer(t, "device-2")

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Preverify Failure Is Final",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{}
				err := v.Verify(false, leaf.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrPreverifyFailed)
			},
		},
		{
			name: "No Store Accepts",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{}
				for _, cert := range []*x509.Certificate{root.Cert, intermediate.Cert, leaf.Cert} {
					assert.NoError(t, v.Verify(true, cert))
				}
			},
		},
		{
			name: "Empty Store Accepts",
			testFunc: func(t *testing.T) {
				store, err := x509crl.Build("", "")
				require.NoError(t, err)

				v := &x509revocation.Verifier{Store: store}
				assert.NoError(t, v.Verify(true, leaf.Cert))
			},
		},
		{
			name: "Nil Typed Store Accepts",
			testFunc: func(t *testing.T) {
				var store *x509crl.Store
				v := &x509revocation.Verifier{Store: store}
				assert.NoError(t, v.Verify(true, leaf.Cert))
			},
		},
		{
			name: "Valid Subject CRL Passes",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{Store: storeWith(t, intermediate.FreshCRL(t))}
				assert.NoError(t, v.Verify(true, intermediate.Cert))
			},
		},
		{
			name: "Corrupt Subject CRL Signature",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{Store: storeWith(t, testutil.CorruptSignature(intermediate.FreshCRL(t)))}
				err := v.Verify(true, intermediate.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrCRLSignatureInvalid)
			},
		},
		{
			name: "CRL Signed By Someone Else",
			testFunc: func(t *testing.T) {
				impostor := testutil.NewRootCA(t, "revocation intermediate")
				forged := impostor.FreshCRL(t)

				// Same subject name, different key: the CRL is found by name but must not verify.
				ms := &mockStore{}
				v := &x509revocation.Verifier{Store: ms}
				crl, err := x509.ParseRevocationList(forged)
				require.NoError(t, err)
				ms.On("LookupBySubject", intermediate.Cert.RawSubject).Return(crl, nil)

				err = v.Verify(true, intermediate.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrCRLSignatureInvalid)
				ms.AssertExpectations(t)
			},
		},
		{
			name: "Missing NextUpdate",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{Store: storeWith(t, intermediate.CRLWithoutNextUpdate(t))}
				err := v.Verify(true, intermediate.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrCRLMalformed)
			},
		},
		{
			name: "Expired Subject CRL",
			testFunc: func(t *testing.T) {
				expired := intermediate.CRL(t, time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
				v := &x509revocation.Verifier{Store: storeWith(t, expired)}
				err := v.Verify(true, intermediate.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrCRLExpired)
			},
		},
		{
			name: "Expiry Follows Clock",
			testFunc: func(t *testing.T) {
				store := storeWith(t, intermediate.FreshCRL(t))

				v := &x509revocation.Verifier{Store: store, Now: func() time.Time { return time.Now().Add(48 * time.Hour) }}
				assert.ErrorIs(t, v.Verify(true, intermediate.Cert), x509revocation.ErrCRLExpired)

				v.Now = func() time.Time { return time.Now().Add(time.Hour) }
				assert.NoError(t, v.Verify(true, intermediate.Cert))
			},
		},
		{
			name: "Revoked Serial",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{Store: storeWith(t, intermediate.FreshCRL(t, leaf.Cert.SerialNumber))}

				counter := metrics.RevocationRejections.WithLabelValues("revoked")
				before := promtest.ToFloat64(counter)

				err := v.Verify(true, leaf.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrCertificateRevoked)
				assert.Contains(t, err.Error(), leaf.Cert.SerialNumber.String())
				assert.Equal(t, before+1, promtest.ToFloat64(counter))

				assert.NoError(t, v.Verify(true, sibling.Cert), "other serials must pass")
			},
		},
		{
			name: "Revocation By Unrelated Issuer Ignored",
			testFunc: func(t *testing.T) {
				// The root lists the leaf's serial number, but the root did not issue the leaf.
				v := &x509revocation.Verifier{Store: storeWith(t, root.FreshCRL(t, leaf.Cert.SerialNumber))}
				assert.NoError(t, v.Verify(true, leaf.Cert))
			},
		},
		{
			name: "Store Lookup Failure Rejects",
			testFunc: func(t *testing.T) {
				ms := &mockStore{}
				ms.On("LookupBySubject", mock.Anything).Return(nil, errors.New("disk on fire"))

				v := &x509revocation.Verifier{Store: ms}
				err := v.Verify(true, leaf.Cert)
				assert.ErrorIs(t, err, x509revocation.ErrStoreLookup)
				assert.ErrorContains(t, err, "disk on fire")
			},
		},
		{
			name: "Issuer Lookup Failure Rejects",
			testFunc: func(t *testing.T) {
				ms := &mockStore{}
				ms.On("LookupBySubject", leaf.Cert.RawSubject).Return(nil, nil).Once()
				ms.On("LookupBySubject", leaf.Cert.RawIssuer).Return(nil, errors.New("gone")).Once()

				v := &x509revocation.Verifier{Store: ms}
				assert.ErrorIs(t, v.Verify(true, leaf.Cert), x509revocation.ErrStoreLookup)
				ms.AssertExpectations(t)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestVerifyChain(t *testing.T) {
	root := testutil.NewRootCA(t, "chain root")
	intermediate := root.NewIntermediate(t, "chain intermediate")
	leaf := intermediate.IssueServer(t, "chain leaf")
	chain := []*x509.Certificate{leaf.Cert, intermediate.Cert, root.Cert}

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Anchor First",
			testFunc: func(t *testing.T) {
				rec := &recordingStore{}
				v := &x509revocation.Verifier{Store: rec}

				require.NoError(t, v.VerifyChain(chain, nil))
				require.Len(t, rec.names, 6)
				assert.Equal(t, root.Cert.RawSubject, rec.names[0])
				assert.Equal(t, intermediate.Cert.RawSubject, rec.names[2])
				assert.Equal(t, leaf.Cert.RawSubject, rec.names[4])
			},
		},
		{
			name: "Chain Error Short Circuits",
			testFunc: func(t *testing.T) {
				rec := &recordingStore{}
				v := &x509revocation.Verifier{Store: rec}
				chainErr := x509.UnknownAuthorityError{}

				err := v.VerifyChain(chain[:1], chainErr)
				assert.ErrorIs(t, err, x509revocation.ErrPreverifyFailed)
				assert.ErrorAs(t, err, &x509.UnknownAuthorityError{})
				assert.Empty(t, rec.names)
			},
		},
		{
			name: "Revoked Intermediate",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{Store: storeWith(t, root.FreshCRL(t, intermediate.Cert.SerialNumber))}

				err := v.VerifyChain(chain, nil)
				assert.ErrorIs(t, err, x509revocation.ErrCertificateRevoked)
				assert.ErrorContains(t, err, "chain intermediate")
			},
		},
		{
			name: "Healthy Chain",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{Store: storeWith(t, root.FreshCRL(t), intermediate.FreshCRL(t))}
				assert.NoError(t, v.VerifyChain(chain, nil))
			},
		},
		{
			name: "Empty Chain",
			testFunc: func(t *testing.T) {
				v := &x509revocation.Verifier{}
				assert.ErrorIs(t, v.VerifyChain(nil, nil), x509revocation.ErrPreverifyFailed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}
