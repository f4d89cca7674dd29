// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509revocation checks peer certificates against a CRL store while
// a TLS handshake is in progress.
//
// Each certificate is checked twice:
//
//  1. The CRL issued by the certificate itself (looked up by its subject) is
//     validated: its signature must verify with the certificate's public key
//     and its nextUpdate must be present and in the future. This rejects
//     forged or stale CRLs before any of them is trusted.
//  2. The CRL issued by the certificate's issuer is scanned for the
//     certificate's serial number.
//
// A missing CRL skips the corresponding step. A failing store lookup rejects
// the certificate. With no store at all every certificate that passed chain
// verification is accepted.
package x509revocation
