// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package metrics holds the Prometheus collectors shared by the transport,
// revocation and call-home packages.
//
// Collectors are always updated. They only become visible once [Register]
// has been called with a registerer, which the CLI does when a metrics
// address is configured.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricNamespace = "netconf_tls"

var (
	// SessionsEstablished counts establishment attempts by role, origin and result.
	SessionsEstablished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "sessions_established_total",
			Help:      "Session establishment attempts",
		},
		[]string{"role", "origin", "result"},
	)
	// HandshakeDuration observes the TLS handshake time per role.
	HandshakeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "tls_handshake_duration_seconds",
			Help:      "Duration of the TLS handshake",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"role"},
	)
	// VerifyWarnings counts sessions that continued with a non-OK final verification result.
	VerifyWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "verify_warnings_total",
			Help:      "Sessions established with a non-OK final verification result",
		},
		[]string{"role"},
	)
	// RevocationRejections counts certificates rejected by the revocation engine.
	RevocationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "revocation_rejections_total",
			Help:      "Certificates rejected during revocation checking",
		},
		[]string{"reason"},
	)
	// OptionRebuilds counts TLS context and revocation store rebuilds.
	OptionRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "option_rebuilds_total",
			Help:      "Rebuilds of TLS contexts and revocation stores",
		},
		[]string{"role", "kind", "result"},
	)
	// CRLCacheLookups counts directory CRL cache hits and misses.
	CRLCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "crl_cache_lookups_total",
			Help:      "Directory CRL cache lookups",
		},
		[]string{"result"},
	)
	// CallHomeConnections counts sockets accepted by call-home listeners.
	CallHomeConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "callhome_connections_total",
			Help:      "Connections accepted by call-home listeners",
		},
		[]string{"result"},
	)
)

// Collectors returns every collector defined by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SessionsEstablished,
		HandshakeDuration,
		VerifyWarnings,
		RevocationRejections,
		OptionRebuilds,
		CRLCacheLookups,
		CallHomeConnections,
	}
}

// Register registers all collectors with registerer.
// Collectors that are already registered are skipped.
func Register(registerer prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := registerer.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				return err
			}
		}
	}
	return nil
}

// Handler returns an HTTP handler exposing the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
