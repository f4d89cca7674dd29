// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/schema"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

// Dialer opens the TCP connection of an outbound session. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProtocolHandshaker runs the NETCONF handshake once the transport is ready.
type ProtocolHandshaker interface {
	Handshake(ctx context.Context, s *Session) error
}

// SchemaFactory creates the schema context of sessions that were not given one.
type SchemaFactory func() (*schema.Context, error)

// Client establishes sessions using the option sets of a registry.
type Client struct {
	registry   *nctls.Registry
	dialer     Dialer
	handshaker ProtocolHandshaker
	newSchema  SchemaFactory
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry selects the option sets. The default is [nctls.Default].
func WithRegistry(r *nctls.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithProtocolHandshaker replaces the NETCONF hello exchange.
func WithProtocolHandshaker(h ProtocolHandshaker) Option {
	return func(c *Client) { c.handshaker = h }
}

// WithSchemaFactory replaces [schema.NewDefault].
func WithSchemaFactory(f SchemaFactory) Option {
	return func(c *Client) { c.newSchema = f }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client with the given options applied over the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		registry:   nctls.Default(),
		dialer:     &net.Dialer{},
		handshaker: &HelloHandshaker{},
		newSchema:  schema.NewDefault,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the client reads its options from.
func (c *Client) Registry() *nctls.Registry { return c.registry }

// Connect dials host:port and establishes a session with the initiator option set.
// An empty host means [DefaultHost] and port 0 means [DefaultPort]. schemaCtx
// may be nil, in which case the session creates and owns its own context.
func (c *Client) Connect(ctx context.Context, host string, port int, schemaCtx *schema.Context) (*Session, error) {
	opts := c.registry.Initiator()
	if cert, _ := opts.CertKeyPaths(); cert == "" {
		return nil, fmt.Errorf("%w: client certificate not set", nctls.ErrInvalidArgument)
	}
	if caFile, caDir := opts.TrustedCAPaths(); caFile == "" && caDir == "" {
		return nil, fmt.Errorf("%w: trusted CA location not set", nctls.ErrInvalidArgument)
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", nctls.ErrInvalidArgument, port)
	}

	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}

	return c.establish(ctx, &attempt{
		role:   nctls.RoleInitiator,
		origin: originDial,
		host:   host,
		port:   port,
		schema: schemaCtx,
	})
}

// AcceptFromSocket establishes a call-home session over conn, which the
// server dialed in on. The responder option set applies and the client acts
// as the TLS client. conn is closed if establishment fails. An empty host
// or zero port is taken from the connection's remote address.
func (c *Client) AcceptFromSocket(ctx context.Context, conn net.Conn, host string, port int, schemaCtx *schema.Context) (*Session, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: no socket", nctls.ErrInvalidArgument)
	}

	if host == "" || port == 0 {
		h, p := splitAddr(conn.RemoteAddr())
		if host == "" {
			host = h
		}
		if port == 0 {
			port = p
		}
	}

	return c.establish(ctx, &attempt{
		role:   nctls.RoleResponder,
		origin: originSocket,
		host:   host,
		port:   port,
		conn:   conn,
		schema: schemaCtx,
	})
}

// ConnectFromHandle adopts a TLS connection whose handshake has completed
// and runs only the protocol handshake over it. A connection that has not
// completed its handshake is rejected and left open; once adopted, the
// connection belongs to the session and is closed on failure.
func (c *Client) ConnectFromHandle(ctx context.Context, conn *tls.Conn, schemaCtx *schema.Context) (*Session, error) {
	if conn == nil || !conn.ConnectionState().HandshakeComplete {
		return nil, fmt.Errorf("%w: TLS connection has not completed its handshake", ErrTransport)
	}

	host, port := splitAddr(conn.RemoteAddr())
	return c.establish(ctx, &attempt{
		role:    nctls.RoleInitiator,
		origin:  originHandle,
		host:    host,
		port:    port,
		tlsConn: conn,
		schema:  schemaCtx,
	})
}

func splitAddr(addr net.Addr) (string, int) {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	if addr == nil {
		return "", 0
	}
	return addr.String(), 0
}
