// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/schema"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

var (
	// ErrTransport indicates a socket or TLS handshake failure, or an unusable TLS connection.
	ErrTransport = errors.New("session: transport error")

	// ErrProtocolHandshake indicates that the NETCONF handshake after the TLS handshake failed.
	ErrProtocolHandshake = errors.New("session: protocol handshake failed")
)

const (
	// DefaultPort is the NETCONF over TLS port (RFC 7589).
	DefaultPort = 6513
	// DefaultHost is used when Connect is given an empty host.
	DefaultHost = "localhost"
	// CertificateUsername is the username of every TLS session; TLS carries no NETCONF username.
	CertificateUsername = "certificate-based"
)

// Status is the lifecycle status of a session.
type Status int32

const (
	StatusStarting Status = iota
	StatusRunning
	StatusClosing
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusClosing:
		return "closing"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Side tells which end of the NETCONF session this process is. Only SideClient is produced here.
type Side int

const (
	SideClient Side = iota
	SideServer
)

func (s Side) String() string {
	if s == SideServer {
		return "server"
	}
	return "client"
}

// Flags is a set of session flags.
type Flags uint32

const (
	// FlagSharedContext marks a schema context supplied by the caller. It is not closed with the session.
	FlagSharedContext Flags = 1 << iota
)

// Session is an established NETCONF over TLS session.
type Session struct {
	id       string
	role     nctls.Role
	side     Side
	flags    Flags
	host     string
	port     int
	username string
	status   atomic.Int32

	// mu guards conn and serialises use of the transport.
	mu   sync.Mutex
	conn *tls.Conn

	schema       *schema.Context
	verifyResult error

	sessionID    uint64
	base         string
	capabilities []string
}

// ID returns the attempt ID used in logs for this session.
func (s *Session) ID() string { return s.id }

// Role returns the option set role used to establish the session.
func (s *Session) Role() nctls.Role { return s.role }

// Status returns the current status.
func (s *Session) Status() Status { return Status(s.status.Load()) }

// Side returns SideClient.
func (s *Session) Side() Side { return s.side }

// Flags returns the session flags.
func (s *Session) Flags() Flags { return s.flags }

// Host returns the peer host.
func (s *Session) Host() string { return s.host }

// Port returns the peer port.
func (s *Session) Port() int { return s.port }

// Username returns [CertificateUsername].
func (s *Session) Username() string { return s.username }

// Context returns the schema context attached to the session.
func (s *Session) Context() *schema.Context { return s.schema }

// VerifyResult returns the final chain verification result of the TLS
// handshake: nil when the chain verified, otherwise the reason it did not.
// Adopted connections report [nctls.ErrNotVerified].
func (s *Session) VerifyResult() error { return s.verifyResult }

// SessionID returns the NETCONF session-id assigned by the server.
func (s *Session) SessionID() uint64 { return s.sessionID }

// Base returns the negotiated NETCONF base protocol version.
func (s *Session) Base() string { return s.base }

// Capabilities returns the capabilities announced by the server.
func (s *Session) Capabilities() []string { return append([]string(nil), s.capabilities...) }

// SetProtocolInfo records the outcome of a protocol handshake. It is meant
// for ProtocolHandshaker implementations and must not be called once the
// session has been returned to the caller.
func (s *Session) SetProtocolInfo(sessionID uint64, base string, capabilities []string) {
	s.sessionID = sessionID
	s.base = base
	s.capabilities = capabilities
}

// WithTransport runs fn with exclusive use of the session's TLS connection.
func (s *Session) WithTransport(fn func(conn *tls.Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("%w: session has no transport", ErrTransport)
	}
	return fn(s.conn)
}

// ConnectionState returns the TLS state of the transport.
func (s *Session) ConnectionState() (tls.ConnectionState, error) {
	var cs tls.ConnectionState
	err := s.WithTransport(func(conn *tls.Conn) error {
		cs = conn.ConnectionState()
		return nil
	})
	return cs, err
}

// Close shuts the transport down and releases an owned schema context.
func (s *Session) Close() error {
	if !s.status.CompareAndSwap(int32(StatusRunning), int32(StatusClosing)) {
		return nil
	}
	return s.teardown()
}

// teardown releases the transport and owned context and marks the session invalid.
func (s *Session) teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	if s.schema != nil && s.flags&FlagSharedContext == 0 {
		_ = s.schema.Close()
	}
	s.status.Store(int32(StatusInvalid))
	return err
}
