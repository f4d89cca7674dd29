// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package callhome listens for NETCONF call-home connections (RFC 8071).
//
// In call-home the server opens the TCP connection and the client still
// acts as the TLS client. A [Listener] owns a set of bind entries, accepts
// on all of them and hands every socket to an [Acceptor], usually a
// [session.Client], which establishes the session with the responder option
// set. Accepts are rate limited across all bind entries.
package callhome
