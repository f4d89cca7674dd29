// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package logger provides abstraction and implementation for logging operations.
// It defines the leveled Logger interface and provides two implementations: CLILogger for
// human-readable command-line output and JSONLogger for structured JSON lines
// in long-running call-home listeners. Both implementations are safe for
// concurrent use by the goroutines that establish sessions in parallel.
package logger
