// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package hello_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/testutil"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/netconf/hello"
)

// serve answers one exchange on conn with serverHello and returns the client's hello.
func serve(conn net.Conn, serverHello string) <-chan *hello.Message {
	out := make(chan *hello.Message, 1)
	go func() {
		defer close(out)
		if _, err := io.WriteString(conn, serverHello); err != nil {
			return
		}
		msg, err := hello.Read(conn, 0)
		if err != nil {
			return
		}
		out <- msg
	}()
	return out
}

func TestEncodeRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, hello.Encode(&buf, hello.DefaultCapabilities))

	assert.True(t, strings.HasSuffix(buf.String(), hello.EndOfMessage))
	assert.Contains(t, buf.String(), `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">`)
	assert.NotContains(t, buf.String(), "session-id", "clients must not send a session-id")

	buf.WriteString("trailing")
	msg, err := hello.Read(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, hello.DefaultCapabilities, msg.Capabilities)
	assert.Equal(t, "trailing", buf.String(), "bytes after the marker must stay unread")
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxSize int
		wantErr error
	}{
		{name: "Server Hello", input: testutil.ServerHello},
		{name: "Not XML", input: "garbage" + hello.EndOfMessage, wantErr: hello.ErrMalformed},
		{name: "Too Large", input: strings.Repeat("x", 200) + hello.EndOfMessage, maxSize: 100, wantErr: hello.ErrTooLarge},
		{name: "Truncated", input: "<hello>", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := hello.Read(strings.NewReader(tt.input), tt.maxSize)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(42), msg.SessionID)
			assert.Len(t, msg.Capabilities, 3)
		})
	}
}

func TestExchange(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T, client, server net.Conn)
	}{
		{
			name: "Negotiates 1.1",
			testFunc: func(t *testing.T, client, server net.Conn) {
				got := serve(server, testutil.ServerHello)

				res, err := hello.Exchange(context.Background(), client, nil, 0)
				require.NoError(t, err)
				assert.Equal(t, uint64(42), res.SessionID)
				assert.Equal(t, "1.1", res.Base)
				assert.Len(t, res.Capabilities, 3)

				msg := <-got
				require.NotNil(t, msg)
				assert.Contains(t, msg.Capabilities, hello.BaseCapability11)
			},
		},
		{
			name: "Falls Back To 1.0",
			testFunc: func(t *testing.T, client, server net.Conn) {
				serve(server, testutil.ServerHello)

				res, err := hello.Exchange(context.Background(), client, []string{hello.BaseCapability10}, 0)
				require.NoError(t, err)
				assert.Equal(t, "1.0", res.Base)
			},
		},
		{
			name: "Connection Usable Afterwards",
			testFunc: func(t *testing.T, client, server net.Conn) {
				got := serve(server, testutil.ServerHello)

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_, err := hello.Exchange(ctx, client, nil, 0)
				require.NoError(t, err)
				<-got

				go func() { _, _ = io.WriteString(server, "<rpc/>") }()
				buf := make([]byte, len("<rpc/>"))
				_, err = io.ReadFull(client, buf)
				require.NoError(t, err, "no deadline may be left on the connection")
				assert.Equal(t, "<rpc/>", string(buf))
			},
		},
		{
			name: "Missing Session ID",
			testFunc: func(t *testing.T, client, server net.Conn) {
				serve(server, `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities>`+
					`<capability>urn:ietf:params:netconf:base:1.0</capability></capabilities></hello>]]>]]>`)

				_, err := hello.Exchange(context.Background(), client, nil, 0)
				assert.ErrorIs(t, err, hello.ErrMalformed)
			},
		},
		{
			name: "No Common Base",
			testFunc: func(t *testing.T, client, server net.Conn) {
				serve(server, `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities>`+
					`<capability>urn:example:other</capability></capabilities><session-id>7</session-id></hello>]]>]]>`)

				_, err := hello.Exchange(context.Background(), client, nil, 0)
				assert.ErrorIs(t, err, hello.ErrNoCommonBase)
			},
		},
		{
			name: "Context Cancelled",
			testFunc: func(t *testing.T, client, _ net.Conn) {
				// The server never answers.
				ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
				defer cancel()

				_, err := hello.Exchange(ctx, client, nil, 0)
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()
			tt.testFunc(t, client, server)
		})
	}
}
