// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509certs provides specialized decoding operations for [X.509] material.
// It supports certificates in [PEM], DER and [PKCS7] form, certificate revocation
// lists, and private keys, and is used by the TLS option sets to load client
// identities, trust anchors and revocation sources from disk.
//
// [X.509]: https://grokipedia.com/page/X.509
// [PKCS7]: https://grokipedia.com/page/PKCS_7
// [PEM]: https://grokipedia.com/page/PEM#privacy-enhanced-mail
package x509certs
