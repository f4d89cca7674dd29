// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package callhome

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/schema"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/session"
)

// DefaultPort is the NETCONF over TLS call-home port (RFC 8071).
const DefaultPort = 4335

var (
	// ErrBindExists is returned when an address is already bound by the listener.
	ErrBindExists = errors.New("callhome: address already bound")

	// ErrUnknownBind is returned when removing an address that is not bound.
	ErrUnknownBind = errors.New("callhome: address not bound")

	// ErrServing is returned by Serve when the listener is already serving.
	ErrServing = errors.New("callhome: already serving")

	// ErrShuttingDown is returned by Add while Serve is closing its bind entries.
	ErrShuttingDown = errors.New("callhome: listener is shutting down")
)

// Acceptor establishes a session over a socket the server dialed in on.
// [*session.Client] implements it.
type Acceptor interface {
	AcceptFromSocket(ctx context.Context, conn net.Conn, host string, port int, sc *schema.Context) (*session.Session, error)
}

// Handler receives every established session and owns it from then on.
type Handler func(ctx context.Context, s *session.Session)

// Listener accepts call-home connections on a set of bind entries.
type Listener struct {
	acceptor Acceptor
	handler  Handler
	limiter  *rate.Limiter
	logger   logger.Logger
	shared   *schema.Context
	lc       net.ListenConfig

	mu      sync.Mutex
	binds   map[string]net.Listener
	serving *errgroup.Group
	ctx     context.Context
	conns   sync.WaitGroup
}

// Option configures a Listener.
type Option func(*Listener)

// WithRateLimit limits accepts to r per second with the given burst across
// all bind entries. A burst below 1 is raised to 1.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(l *Listener) { l.limiter = rate.NewLimiter(r, max(burst, 1)) }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Listener) { l.logger = log }
}

// WithSharedContext makes every session use sc instead of creating its own schema context.
func WithSharedContext(sc *schema.Context) Option {
	return func(l *Listener) { l.shared = sc }
}

// New returns a listener without bind entries. A nil handler closes every
// session right after it is established.
func New(acceptor Acceptor, handler Handler, opts ...Option) *Listener {
	l := &Listener{
		acceptor: acceptor,
		handler:  handler,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   logger.Discard(),
		binds:    make(map[string]net.Listener),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.handler == nil {
		l.handler = func(_ context.Context, s *session.Session) { _ = s.Close() }
	}
	return l
}

// Add binds addr. If the listener is serving, accepting on addr starts immediately.
func (l *Listener) Add(ctx context.Context, addr string) (net.Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.binds[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrBindExists, addr)
	}
	// Serve has stopped accepting and is about to forget its bind entries.
	if l.serving != nil && l.ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s", ErrShuttingDown, addr)
	}

	ln, err := l.lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("callhome: bind %s: %w", addr, err)
	}
	l.binds[addr] = ln
	l.logger.Printf("call-home listening on %s", ln.Addr())

	if l.serving != nil {
		l.start(ln)
	}
	return ln.Addr(), nil
}

// Del removes the bind entry for addr and closes its socket. Sessions
// already accepted on it are not affected.
func (l *Listener) Del(addr string) error {
	l.mu.Lock()
	ln, ok := l.binds[addr]
	delete(l.binds, addr)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBind, addr)
	}
	l.logger.Printf("call-home stopped listening on %s", ln.Addr())
	return ln.Close()
}

// Binds returns the configured bind addresses in sorted order.
func (l *Listener) Binds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.binds))
	for addr := range l.binds {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Serve accepts on every bind entry until ctx is done or an accept fails,
// then closes and forgets the bind sockets and waits for in-flight
// establishments and handlers to return. Handlers must return once their
// context is done.
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	if l.serving != nil {
		l.mu.Unlock()
		return ErrServing
	}
	g, gctx := errgroup.WithContext(ctx)
	l.serving, l.ctx = g, gctx
	for _, ln := range l.binds {
		l.start(ln)
	}
	l.mu.Unlock()

	<-gctx.Done()
	l.closeAll()
	err := g.Wait()
	l.conns.Wait()

	l.mu.Lock()
	l.serving, l.ctx = nil, nil
	l.mu.Unlock()

	return err
}

// start runs the accept loop of ln. Callers hold l.mu.
func (l *Listener) start(ln net.Listener) {
	ctx := l.ctx
	l.serving.Go(func() error {
		return l.acceptLoop(ctx, ln)
	})
}

func (l *Listener) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("callhome: rate limit on %s: %w", ln.Addr(), err)
		}

		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("callhome: accept on %s: %w", ln.Addr(), err)
		}

		l.conns.Add(1)
		go func() {
			defer l.conns.Done()
			l.establish(ctx, conn)
		}()
	}
}

func (l *Listener) establish(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr()
	s, err := l.acceptor.AcceptFromSocket(ctx, conn, "", 0, l.shared)
	metrics.CallHomeConnections.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		l.logger.Errorf("call-home from %s: %v", remote, err)
		return
	}

	l.logger.Printf("call-home session %d from %s", s.SessionID(), remote)
	l.handler(ctx, s)
}

func (l *Listener) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, ln := range l.binds {
		ln.Close()
		delete(l.binds, addr)
	}
}

// Listen binds every address and serves until ctx is done.
func Listen(ctx context.Context, acceptor Acceptor, handler Handler, addrs []string, opts ...Option) error {
	l := New(acceptor, handler, opts...)
	for _, addr := range addrs {
		if _, err := l.Add(ctx, addr); err != nil {
			l.closeAll()
			return err
		}
	}
	return l.Serve(ctx)
}
