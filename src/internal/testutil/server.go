// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package testutil

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
)

// ServerHello is the hello message sent by Server.
const ServerHello = `<?xml version="1.0" encoding="UTF-8"?>
<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.0</capability>
    <capability>urn:ietf:params:netconf:base:1.1</capability>
    <capability>urn:ietf:params:xml:ns:yang:ietf-netconf-monitoring?module=ietf-netconf-monitoring&amp;revision=2010-10-04</capability>
  </capabilities>
  <session-id>42</session-id>
</hello>]]>]]>`

// Server is a NETCONF over TLS peer that completes a mutually authenticated
// handshake and a hello exchange, then holds the connection until the client closes it.
type Server struct {
	tb       testing.TB
	config   *tls.Config
	listener net.Listener
	hello    string
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	// Hellos counts client hello messages received.
	Hellos atomic.Int32
}

// NewServerConfig returns the TLS configuration used by Server for id,
// trusting client certificates issued by clientCA.
func NewServerConfig(id *Identity, clientCA *Authority) *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(clientCA.Cert)
	return &tls.Config{
		Certificates: []tls.Certificate{id.TLSCertificate()},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
	}
}

// StartServer listens on a loopback port and serves every accepted connection.
func StartServer(tb testing.TB, id *Identity, clientCA *Authority) *Server {
	tb.Helper()

	s := &Server{tb: tb, config: NewServerConfig(id, clientCA), hello: ServerHello}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.Serve(conn)
			}()
		}
	}()

	tb.Cleanup(s.Close)
	return s
}

// NewPeer returns a Server without a listener, for call-home tests where the
// server side dials out and then calls Serve on the dialed connection.
func NewPeer(tb testing.TB, id *Identity, clientCA *Authority) *Server {
	return &Server{tb: tb, config: NewServerConfig(id, clientCA), hello: ServerHello}
}

// SetHello replaces the hello message sent to clients.
func (s *Server) SetHello(hello string) { s.hello = hello }

// Addr returns the listening address.
func (s *Server) Addr() *net.TCPAddr { return s.listener.Addr().(*net.TCPAddr) }

// Serve runs the TLS server side and the hello exchange on conn.
func (s *Server) Serve(conn net.Conn) {
	tlsConn := tls.Server(conn, s.config)
	s.track(tlsConn, true)
	defer func() {
		s.track(tlsConn, false)
		tlsConn.Close()
	}()

	if err := tlsConn.Handshake(); err != nil {
		return
	}

	if _, err := io.WriteString(tlsConn, s.hello); err != nil {
		return
	}

	r := bufio.NewReader(tlsConn)
	if _, err := readUntil(r, []byte("]]>]]>")); err != nil {
		return
	}
	s.Hellos.Add(1)

	// Hold the session open until the client goes away.
	_, _ = io.Copy(io.Discard, r)
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// Close stops the listener, closes open connections and waits for handlers to exit.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func readUntil(r *bufio.Reader, delim []byte) ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			return buf.Bytes(), fmt.Errorf("read until %q: %w", delim, err)
		}
		buf.WriteByte(b)
		if bytes.HasSuffix(buf.Bytes(), delim) {
			return buf.Bytes(), nil
		}
	}
}
