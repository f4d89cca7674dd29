// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session_test

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/testutil"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/session"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

type fixture struct {
	dir      string
	root     *testutil.Authority
	server   *testutil.Identity
	client   *testutil.Identity
	files    testutil.ClientFiles
	registry *nctls.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{dir: t.TempDir(), root: testutil.NewRootCA(t, "session root")}
	f.server = f.root.IssueServer(t, "netconf-server")
	f.client = f.root.IssueClient(t, "netconf-client")
	f.files = testutil.WriteClientFiles(t, f.dir, f.client, f.root)
	f.registry = nctls.NewRegistry()
	t.Cleanup(f.registry.Destroy)
	return f
}

// configure points both option sets at the fixture's identity and trust anchor.
func (f *fixture) configure(t *testing.T) {
	t.Helper()
	for _, opts := range []*nctls.OptionSet{f.registry.Initiator(), f.registry.Responder()} {
		require.NoError(t, opts.SetCertKeyPaths(f.files.Cert, f.files.Key))
		require.NoError(t, opts.SetTrustedCAPaths(f.files.CAFile, ""))
	}
}

// trackingConn records how many times Close was called.
type trackingConn struct {
	net.Conn
	closes atomic.Int32
}

func (c *trackingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// trackingDialer dials target regardless of the requested address and keeps
// every connection it returns.
type trackingDialer struct {
	target string

	mu        sync.Mutex
	addresses []string
	conns     []*trackingConn
}

func (d *trackingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.addresses = append(d.addresses, address)
	d.mu.Unlock()

	var nd net.Dialer
	raw, err := nd.DialContext(ctx, network, d.target)
	if err != nil {
		return nil, err
	}

	conn := &trackingConn{Conn: raw}
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *trackingDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addresses...)
}

func (d *trackingDialer) connections() []*trackingConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*trackingConn(nil), d.conns...)
}

// mockHandshaker is a ProtocolHandshaker driven by testify expectations.
type mockHandshaker struct {
	mock.Mock
}

func (m *mockHandshaker) Handshake(ctx context.Context, s *session.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
