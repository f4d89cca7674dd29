// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package posix provides [POSIX] style helpers for the command-line front end.
//
// [POSIX]: https://grokipedia.com/page/POSIX
package posix
