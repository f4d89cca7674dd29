// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package nctls manages the TLS configuration of NETCONF client sessions.
//
// There is one [OptionSet] per [Role]: the initiator role is used for
// sessions the client dials itself, the responder role for call-home sessions
// where the server dialed in. Each option set holds paths (client
// certificate, private key, trust anchors, CRLs) and lazily builds two things
// from them: a TLS context and a revocation store.
//
// Setters take the option set's write lock and only mark the derived objects
// dirty. [OptionSet.Acquire] rebuilds whatever is dirty and returns a [Lease]
// holding the read lock, so the paths cannot change while a handshake that
// depends on them is running. The lease's TLS configuration carries its own
// verification closure bound to that option set, which means concurrent
// initiator and responder handshakes never see each other's revocation policy.
//
// Example:
//
//	opts := nctls.Default().Initiator()
//	if err := opts.SetCertKeyPaths("client.pem", "client.key"); err != nil {
//		return err
//	}
//	if err := opts.SetTrustedCAPaths("ca.pem", ""); err != nil {
//		return err
//	}
//
//	lease, err := opts.Acquire()
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
//
//	conn := tls.Client(rawConn, lease.Config())
//	err = conn.HandshakeContext(ctx)
package nctls
