// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package callhome_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/callhome"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/testutil"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/schema"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/session"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

var errRefused = errors.New("refused by test acceptor")

// refusingAcceptor records every socket and refuses to establish a session.
type refusingAcceptor struct {
	mu    sync.Mutex
	calls int
	hosts []string
}

func (a *refusingAcceptor) AcceptFromSocket(_ context.Context, conn net.Conn, host string, _ int, _ *schema.Context) (*session.Session, error) {
	a.mu.Lock()
	a.calls++
	a.hosts = append(a.hosts, host)
	a.mu.Unlock()
	conn.Close()
	return nil, errRefused
}

func (a *refusingAcceptor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// blockingAcceptor holds every socket until release is closed, keeping Serve
// waiting on in-flight establishments.
type blockingAcceptor struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingAcceptor() *blockingAcceptor {
	return &blockingAcceptor{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (a *blockingAcceptor) AcceptFromSocket(_ context.Context, conn net.Conn, _ string, _ int, _ *schema.Context) (*session.Session, error) {
	defer conn.Close()
	select {
	case a.entered <- struct{}{}:
	default:
	}
	<-a.release
	return nil, errRefused
}

// serve runs l.Serve in the background and returns a stop function that
// cancels it and reports its result.
func serve(t *testing.T, l *callhome.Listener) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	var once sync.Once
	var result error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case result = <-done:
			case <-time.After(5 * time.Second):
				result = errors.New("Serve did not return")
			}
		})
		return result
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func dial(t *testing.T, addr net.Addr) {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
}

func TestListener(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Add And Del",
			testFunc: func(t *testing.T) {
				l := callhome.New(&refusingAcceptor{}, nil)

				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)
				assert.NotZero(t, addr.(*net.TCPAddr).Port)
				assert.Equal(t, []string{"127.0.0.1:0"}, l.Binds())

				_, err = l.Add(context.Background(), "127.0.0.1:0")
				assert.ErrorIs(t, err, callhome.ErrBindExists)

				require.NoError(t, l.Del("127.0.0.1:0"))
				assert.Empty(t, l.Binds())
				assert.ErrorIs(t, l.Del("127.0.0.1:0"), callhome.ErrUnknownBind)

				_, err = net.DialTimeout("tcp", addr.String(), time.Second)
				assert.Error(t, err, "a deleted bind entry must stop listening")
			},
		},
		{
			name: "Bind Failure",
			testFunc: func(t *testing.T) {
				taken, err := net.Listen("tcp", "127.0.0.1:0")
				require.NoError(t, err)
				defer taken.Close()

				l := callhome.New(&refusingAcceptor{}, nil)
				_, err = l.Add(context.Background(), taken.Addr().String())
				assert.Error(t, err)
				assert.Empty(t, l.Binds())
			},
		},
		{
			name: "Hands Sockets To Acceptor",
			testFunc: func(t *testing.T) {
				acceptor := &refusingAcceptor{}
				l := callhome.New(acceptor, nil)
				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)

				failures := metrics.CallHomeConnections.WithLabelValues("failure")
				before := promtest.ToFloat64(failures)

				stop := serve(t, l)
				dial(t, addr)
				dial(t, addr)

				assert.Eventually(t, func() bool { return acceptor.count() == 2 }, 2*time.Second, 10*time.Millisecond)
				require.NoError(t, stop())
				assert.Equal(t, before+2, promtest.ToFloat64(failures))
				assert.Empty(t, l.Binds(), "Serve closes its bind entries on shutdown")
				assert.Equal(t, []string{"", ""}, acceptor.hosts, "the host is left to the acceptor")
			},
		},
		{
			name: "Add While Serving",
			testFunc: func(t *testing.T) {
				acceptor := &refusingAcceptor{}
				l := callhome.New(acceptor, nil)
				stop := serve(t, l)

				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)
				dial(t, addr)

				assert.Eventually(t, func() bool { return acceptor.count() == 1 }, 2*time.Second, 10*time.Millisecond)
				require.NoError(t, stop())
			},
		},
		{
			name: "Serve Twice",
			testFunc: func(t *testing.T) {
				acceptor := &refusingAcceptor{}
				l := callhome.New(acceptor, nil)
				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)

				stop := serve(t, l)
				dial(t, addr)
				require.Eventually(t, func() bool { return acceptor.count() == 1 }, 2*time.Second, 10*time.Millisecond)

				assert.ErrorIs(t, l.Serve(context.Background()), callhome.ErrServing)
				require.NoError(t, stop())
			},
		},
		{
			name: "Rate Limited",
			testFunc: func(t *testing.T) {
				acceptor := &refusingAcceptor{}
				l := callhome.New(acceptor, nil, callhome.WithRateLimit(rate.Every(time.Hour), 1))
				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)

				stop := serve(t, l)
				dial(t, addr)
				dial(t, addr)

				assert.Eventually(t, func() bool { return acceptor.count() == 1 }, 2*time.Second, 10*time.Millisecond)
				assert.Never(t, func() bool { return acceptor.count() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
				require.NoError(t, stop())
			},
		},
		{
			name: "Zero Burst Still Accepts",
			testFunc: func(t *testing.T) {
				acceptor := &refusingAcceptor{}
				l := callhome.New(acceptor, nil, callhome.WithRateLimit(5, 0))
				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)

				stop := serve(t, l)
				dial(t, addr)

				assert.Eventually(t, func() bool { return acceptor.count() == 1 }, 2*time.Second, 10*time.Millisecond)
				require.NoError(t, stop())
			},
		},
		{
			name: "Add While Shutting Down",
			testFunc: func(t *testing.T) {
				acceptor := newBlockingAcceptor()
				l := callhome.New(acceptor, nil)
				addr, err := l.Add(context.Background(), "127.0.0.1:0")
				require.NoError(t, err)

				ctx, cancel := context.WithCancel(context.Background())
				done := make(chan error, 1)
				go func() { done <- l.Serve(ctx) }()

				dial(t, addr)
				select {
				case <-acceptor.entered:
				case <-time.After(2 * time.Second):
					t.Fatal("socket never reached the acceptor")
				}

				// Serve now waits for the blocked establishment.
				cancel()
				_, err = l.Add(context.Background(), "127.0.0.1:0")
				assert.ErrorIs(t, err, callhome.ErrShuttingDown)

				close(acceptor.release)
				select {
				case err := <-done:
					require.NoError(t, err)
				case <-time.After(5 * time.Second):
					t.Fatal("Serve did not return")
				}
				assert.Empty(t, l.Binds(), "no bind entry may outlive Serve")

				_, err = l.Add(context.Background(), "127.0.0.1:0")
				assert.NoError(t, err, "a stopped listener accepts bind entries again")
				require.NoError(t, l.Del("127.0.0.1:0"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestCallHomeSession(t *testing.T) {
	dir := t.TempDir()
	root := testutil.NewRootCA(t, "call-home root")
	server := root.IssueServer(t, "calling-device")
	client := root.IssueClient(t, "netconf-client")
	files := testutil.WriteClientFiles(t, dir, client, root)

	reg := nctls.NewRegistry()
	t.Cleanup(reg.Destroy)
	require.NoError(t, reg.Responder().SetCertKeyPaths(files.Cert, files.Key))
	require.NoError(t, reg.Responder().SetTrustedCAPaths(files.CAFile, ""))

	sessions := make(chan *session.Session, 1)
	shared := schema.New("")
	l := callhome.New(
		session.NewClient(session.WithRegistry(reg)),
		func(_ context.Context, s *session.Session) { sessions <- s },
		callhome.WithSharedContext(shared),
	)
	addr, err := l.Add(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	stop := serve(t, l)

	peer := testutil.NewPeer(t, server, root)
	peerDone := make(chan struct{})
	go func() {
		defer close(peerDone)
		conn, err := net.Dial("tcp", addr.String())
		if err != nil {
			return
		}
		peer.Serve(conn)
	}()

	var s *session.Session
	select {
	case s = <-sessions:
	case <-time.After(5 * time.Second):
		t.Fatal("no call-home session established")
	}

	assert.Equal(t, nctls.RoleResponder, s.Role())
	assert.Equal(t, session.StatusRunning, s.Status())
	assert.Equal(t, uint64(42), s.SessionID())
	assert.Same(t, shared, s.Context())

	require.NoError(t, s.Close())
	<-peerDone
	require.NoError(t, stop())
	assert.False(t, shared.Closed())
}

func TestListen(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	err = callhome.Listen(context.Background(), &refusingAcceptor{}, nil,
		[]string{"127.0.0.1:0", taken.Addr().String()})
	assert.Error(t, err, "a bind failure aborts Listen")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, callhome.Listen(ctx, &refusingAcceptor{}, nil, []string{"127.0.0.1:0"}))
}
