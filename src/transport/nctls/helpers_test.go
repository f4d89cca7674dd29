// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package nctls_test

import (
	"crypto/tls"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/testutil"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

type fixture struct {
	dir    string
	root   *testutil.Authority
	server *testutil.Identity
	client *testutil.Identity
	files  testutil.ClientFiles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{dir: t.TempDir(), root: testutil.NewRootCA(t, "nctls root")}
	f.server = f.root.IssueServer(t, "netconf-server")
	f.client = f.root.IssueClient(t, "netconf-client")
	f.files = testutil.WriteClientFiles(t, f.dir, f.client, f.root)
	return f
}

// configure points opts at the fixture's client identity and trust anchor.
func (f *fixture) configure(t *testing.T, opts *nctls.OptionSet) {
	t.Helper()
	require.NoError(t, opts.SetCertKeyPaths(f.files.Cert, f.files.Key))
	require.NoError(t, opts.SetTrustedCAPaths(f.files.CAFile, ""))
}

// handshake dials addr and runs a TLS client handshake with the lease's configuration.
// It is safe to call from any goroutine.
func handshake(t *testing.T, lease *nctls.Lease, addr net.Addr) (*tls.Conn, error) {
	raw, err := net.Dial("tcp", addr.String())
	if err != nil {
		return nil, err
	}

	conn := tls.Client(raw, lease.Config())
	if err := conn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	t.Cleanup(func() { conn.Close() })
	return conn, nil
}
