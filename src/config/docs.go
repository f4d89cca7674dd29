// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads the client configuration file.
//
// The file may be JSON (.json), YAML (.yaml, .yml) or TOML (.toml). It is
// validated against an embedded JSON Schema before it is decoded, so unknown
// keys and wrong types are reported with their location. Relative paths are
// resolved against the directory holding the file.
//
// Example (YAML):
//
//	initiator:
//	  cert: client.pem
//	  key: client.key
//	  caFile: ca.pem
//	  crlDir: crl.d
//	client:
//	  host: router1.example.net
//	  timeoutSeconds: 10
//	log:
//	  level: debug
//	  format: json
//
// [Config.Apply] hands the per-role paths to a transport registry.
package config
