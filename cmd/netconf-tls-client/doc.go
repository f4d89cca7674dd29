// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// netconf-tls-client opens NETCONF over TLS sessions (RFC 7589) with mutual
// certificate authentication and CRL based revocation checking.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/netconf-tls-client/cmd/netconf-tls-client@latest
//
// # Usage
//
//	netconf-tls-client connect [HOST] [FLAGS]
//	netconf-tls-client callhome [FLAGS]
//	netconf-tls-client config show [FLAGS]
//
// # Flags
//
//	-c, --config      Configuration file (.json, .yaml, .yml, .toml)
//	    --cert        Client certificate file
//	    --key         Private key file (default: the certificate file)
//	    --ca-file     Trusted CA certificates file
//	    --ca-dir      Directory of trusted CA certificates
//	    --crl-file    Certificate revocation list file
//	    --crl-dir     Directory of certificate revocation lists
//	    --log-level   debug, info, warn or error
//
// # Examples
//
// Connect to a server on the default port 6513:
//
//	netconf-tls-client connect router1.example.net \
//	  --cert client.pem --key client.key --ca-file ca.pem --crl-dir /etc/netconf/crl
//
// Accept one call-home session and expose metrics while waiting:
//
//	netconf-tls-client callhome --listen :4335 --count 1 --metrics-addr 127.0.0.1:9100 \
//	  --cert client.pem --ca-file ca.pem
package main
