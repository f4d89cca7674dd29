// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package session establishes NETCONF over TLS client sessions.
//
// A [Client] has three entry points that share one establishment routine:
//
//   - [Client.Connect] dials the server with the initiator option set.
//   - [Client.AcceptFromSocket] takes a socket accepted by a call-home
//     listener and handshakes over it with the responder option set. The
//     client still acts as the TLS client.
//   - [Client.ConnectFromHandle] adopts a TLS connection that already
//     completed its handshake and only runs the NETCONF hello exchange.
//
// The routine walks the states listed by [State]. A failure in any state
// tears down everything acquired so far and returns a nil session, so a
// caller never holds a partially built [Session].
//
// Peer certificates are checked while the TLS handshake runs, against the
// trust anchors and CRLs of the role's option set. A non-OK final
// verification result after a successful handshake is logged as a warning
// and exposed through [Session.VerifyResult]; it does not stop the session.
package session
