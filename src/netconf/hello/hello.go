// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package hello implements the NETCONF <hello> exchange (RFC 6241 section 8.1).
//
// Hello messages are always framed with the base:1.0 end-of-message marker
// "]]>]]>", whichever base version is negotiated afterwards.
package hello

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/helper/gc"
)

const (
	// BaseCapability10 is the base:1.0 capability.
	BaseCapability10 = "urn:ietf:params:netconf:base:1.0"
	// BaseCapability11 is the base:1.1 capability.
	BaseCapability11 = "urn:ietf:params:netconf:base:1.1"
	// EndOfMessage terminates every hello message.
	EndOfMessage = "]]>]]>"
	// DefaultMaxSize bounds the size of a received hello message.
	DefaultMaxSize = 1 << 20
)

var (
	// ErrMalformed indicates a hello message that could not be parsed or is missing required content.
	ErrMalformed = errors.New("hello: malformed hello message")

	// ErrTooLarge indicates a hello message exceeding the size limit.
	ErrTooLarge = errors.New("hello: message too large")

	// ErrNoCommonBase indicates that the peers share no base protocol version.
	ErrNoCommonBase = errors.New("hello: no common base protocol version")
)

// DefaultCapabilities are advertised when no capabilities are configured.
var DefaultCapabilities = []string{BaseCapability10, BaseCapability11}

// Message is a <hello> element.
type Message struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// Result is the outcome of a successful exchange.
type Result struct {
	SessionID    uint64
	Capabilities []string
	// Base is "1.1" when both sides support base:1.1, otherwise "1.0".
	Base string
}

// Encode writes a client hello advertising capabilities, followed by the end-of-message marker.
func Encode(w io.Writer, capabilities []string) error {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	if _, err := buf.WriteString(xml.Header); err != nil {
		return err
	}
	data, err := xml.Marshal(Message{Capabilities: capabilities})
	if err != nil {
		return fmt.Errorf("hello: encoding: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return err
	}
	if _, err := buf.WriteString(EndOfMessage); err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// Read reads one framed hello message of at most maxSize bytes from r.
// It reads byte by byte so nothing after the marker is consumed.
func Read(r io.Reader, maxSize int) (*Message, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	marker := []byte(EndOfMessage)
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("hello: reading: %w", err)
		}
		if _, err := buf.Write(b[:]); err != nil {
			return nil, err
		}
		if bytes.HasSuffix(buf.Bytes(), marker) {
			break
		}
		if buf.Len() > maxSize {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxSize)
		}
	}

	body := buf.Bytes()[:buf.Len()-len(marker)]
	var msg Message
	if err := xml.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &msg, nil
}

// Exchange sends the client hello and reads the server hello concurrently.
// When rw is a net.Conn, cancelling ctx interrupts both directions.
func Exchange(ctx context.Context, rw io.ReadWriter, capabilities []string, maxSize int) (*Result, error) {
	if len(capabilities) == 0 {
		capabilities = DefaultCapabilities
	}

	g, gctx := errgroup.WithContext(ctx)
	if conn, ok := rw.(net.Conn); ok {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}
		// gctx is also cancelled when Wait returns, so the hook may fire on
		// success too. The deadline is cleared once it has finished.
		fired := make(chan struct{})
		stop := context.AfterFunc(gctx, func() {
			defer close(fired)
			_ = conn.SetDeadline(time.Now())
		})
		defer func() {
			if !stop() {
				<-fired
			}
			_ = conn.SetDeadline(time.Time{})
		}()
	}

	var server *Message
	g.Go(func() error { return Encode(rw, capabilities) })
	g.Go(func() error {
		msg, err := Read(rw, maxSize)
		server = msg
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("hello: %w", ctx.Err())
		}
		return nil, err
	}

	return negotiate(capabilities, server)
}

func negotiate(client []string, server *Message) (*Result, error) {
	if server.SessionID == 0 {
		return nil, fmt.Errorf("%w: server hello has no session-id", ErrMalformed)
	}

	serverBase := map[string]bool{}
	for _, c := range server.Capabilities {
		if c == BaseCapability10 || c == BaseCapability11 {
			serverBase[c] = true
		}
	}

	res := &Result{SessionID: server.SessionID, Capabilities: server.Capabilities}
	switch {
	case serverBase[BaseCapability11] && contains(client, BaseCapability11):
		res.Base = "1.1"
	case serverBase[BaseCapability10] && contains(client, BaseCapability10):
		res.Base = "1.0"
	default:
		return nil, ErrNoCommonBase
	}
	return res, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
