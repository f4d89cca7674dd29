// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509crl builds revocation stores from a CRL file and a CRL directory.
//
// A [Store] answers one question: which CRL was issued by the entity with a
// given distinguished name. Two kinds of sources feed it:
//
//   - [FileSource] loads every CRL from a single PEM or DER file when the store is built.
//   - [DirSource] scans a directory on every lookup, so CRLs dropped into the
//     directory later are picked up without a rebuild. Parsed files are kept in
//     a [Cache] and re-read only when their size or modification time changes.
//
// A [Watcher] can be attached to the configured paths to learn about changes
// to the CRL file, which a FileSource would otherwise only see after a rebuild.
package x509crl
