// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/schema"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

// State is a step of session establishment.
type State int

const (
	StateUnstarted State = iota
	StateContextReady
	StateSocketReady
	StateHandshaking
	StateVerifiedOrWarned
	StateProtocolHandshaking
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateContextReady:
		return "context-ready"
	case StateSocketReady:
		return "socket-ready"
	case StateHandshaking:
		return "handshaking"
	case StateVerifiedOrWarned:
		return "verified-or-warned"
	case StateProtocolHandshaking:
		return "protocol-handshaking"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// origin is where the transport of an attempt comes from.
type origin int

const (
	originDial origin = iota
	originSocket
	originHandle
)

func (o origin) String() string {
	switch o {
	case originSocket:
		return "socket"
	case originHandle:
		return "handle"
	default:
		return "dial"
	}
}

type attempt struct {
	role    nctls.Role
	origin  origin
	host    string
	port    int
	conn    net.Conn  // accepted socket, originSocket only
	tlsConn *tls.Conn // handshaken connection, originHandle only
	schema  *schema.Context
}

// establish runs one attempt through the state machine. On failure every
// resource acquired so far is released and a nil session is returned.
func (c *Client) establish(ctx context.Context, a *attempt) (_ *Session, err error) {
	s := &Session{
		id:       uuid.NewString(),
		role:     a.role,
		side:     SideClient,
		host:     a.host,
		port:     a.port,
		username: CertificateUsername,
	}
	s.status.Store(int32(StatusStarting))

	log := attemptLogger(c.logger, s.id)
	state := StateUnstarted
	transition := func(next State) {
		log.Debugf("session %s: %s -> %s", s.id, state, next)
		state = next
	}

	defer func() {
		metrics.SessionsEstablished.WithLabelValues(a.role.String(), a.origin.String(), metrics.Result(err)).Inc()
		if err == nil {
			return
		}
		failedIn := state
		transition(StateFailed)
		log.Errorf("session %s: establishment failed in state %s: %v", s.id, failedIn, err)

		// An accepted socket that never got wrapped is still ours to close.
		if s.conn == nil && a.conn != nil {
			a.conn.Close()
		}
		_ = s.teardown()
	}()

	if a.origin == originHandle {
		s.conn = a.tlsConn
		s.verifyResult = nctls.ErrNotVerified
		transition(StateVerifiedOrWarned)
	} else if err := c.handshake(ctx, a, s, log, transition); err != nil {
		return nil, err
	}

	if a.schema != nil {
		s.schema = a.schema
		s.flags |= FlagSharedContext
	} else {
		sc, err := c.newSchema()
		if err != nil {
			return nil, fmt.Errorf("session: creating schema context: %w", err)
		}
		s.schema = sc
	}

	transition(StateProtocolHandshaking)
	if err := c.handshaker.Handshake(ctx, s); err != nil {
		if errors.Is(err, ErrProtocolHandshake) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProtocolHandshake, err)
	}
	if _, err := s.schema.Fill(s.capabilities); err != nil {
		return nil, fmt.Errorf("%w: filling schema context: %w", ErrProtocolHandshake, err)
	}

	s.status.Store(int32(StatusRunning))
	transition(StateRunning)
	log.Printf("session %s: NETCONF session %d established with %s (base %s)",
		s.id, s.sessionID, net.JoinHostPort(s.host, strconv.Itoa(s.port)), s.base)

	return s, nil
}

// handshake acquires the role's option set, obtains a socket and runs the TLS handshake.
// The option set stays read-locked until the handshake has finished.
func (c *Client) handshake(ctx context.Context, a *attempt, s *Session, log logger.Logger, transition func(State)) error {
	lease, err := c.registry.For(a.role).Acquire()
	if err != nil {
		return err
	}
	defer lease.Release()
	transition(StateContextReady)

	raw := a.conn
	if a.origin == originDial {
		addr := net.JoinHostPort(a.host, strconv.Itoa(a.port))
		raw, err = c.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("%w: connecting to %s: %w", ErrTransport, addr, err)
		}
	}

	config := lease.Config()
	if net.ParseIP(a.host) == nil {
		config.ServerName = a.host
	}
	s.mu.Lock()
	s.conn = tls.Client(raw, config)
	s.mu.Unlock()
	transition(StateSocketReady)

	transition(StateHandshaking)
	start := time.Now()
	err = s.conn.HandshakeContext(ctx)
	metrics.HandshakeDuration.WithLabelValues(a.role.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: TLS handshake with %s:%d: %w", ErrTransport, a.host, a.port, err)
	}

	s.verifyResult = lease.VerifyResult()
	if s.verifyResult == nil {
		log.Debugf("session %s: server certificate verified", s.id)
	} else {
		metrics.VerifyWarnings.WithLabelValues(a.role.String()).Inc()
		log.Warnf("session %s: server certificate verification problem (%v)", s.id, s.verifyResult)
	}
	transition(StateVerifiedOrWarned)

	return nil
}

// attemptLogger tags structured loggers with the attempt ID.
func attemptLogger(l logger.Logger, id string) logger.Logger {
	if jl, ok := l.(*logger.JSONLogger); ok {
		return jl.With("attempt", id)
	}
	return l
}
