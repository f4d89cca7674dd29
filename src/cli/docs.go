// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli provides the command-line interface of the NETCONF over TLS client.
// It implements a Cobra-based CLI with three commands: connect opens an
// outbound session, callhome accepts sessions from servers that dial in, and
// config show prints the effective configuration. Settings come from the
// configuration file (see package config) and are overridden by flags.
// Results are rendered as markdown tables.
package cli
