// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package gc provides reusable byte buffer pooling to reduce garbage collection overhead.
// It abstracts the [bytebufferpool] library behind a small interface and is used
// to read certificate, key and CRL files. CRL directories are re-read on every
// revocation lookup, so the reads happen once per verified certificate and
// pooling keeps the allocation rate flat under concurrent handshakes.
//
// [bytebufferpool]: https://github.com/valyala/bytebufferpool
package gc
