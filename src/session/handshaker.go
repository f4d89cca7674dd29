// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package session

import (
	"context"
	"crypto/tls"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/netconf/hello"
)

// HelloHandshaker is the default ProtocolHandshaker. It exchanges
// <hello> messages and records the server's session-id and capabilities.
type HelloHandshaker struct {
	// Capabilities advertised to the server. Empty means base:1.0 and base:1.1.
	Capabilities []string
	// MaxSize bounds the server hello. Zero means hello.DefaultMaxSize.
	MaxSize int
}

// Handshake implements ProtocolHandshaker.
func (h *HelloHandshaker) Handshake(ctx context.Context, s *Session) error {
	return s.WithTransport(func(conn *tls.Conn) error {
		res, err := hello.Exchange(ctx, conn, h.Capabilities, h.MaxSize)
		if err != nil {
			return err
		}
		s.SetProtocolInfo(res.SessionID, res.Base, res.Capabilities)
		return nil
	})
}
