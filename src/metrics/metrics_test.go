// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Twice",
			testFunc: func(t *testing.T) {
				reg := prometheus.NewRegistry()
				require.NoError(t, metrics.Register(reg))
				require.NoError(t, metrics.Register(reg), "already registered collectors must be skipped")
			},
		},
		{
			name: "Handler",
			testFunc: func(t *testing.T) {
				reg := prometheus.NewRegistry()
				require.NoError(t, metrics.Register(reg))

				metrics.RevocationRejections.WithLabelValues("test").Inc()

				srv := httptest.NewServer(metrics.Handler(reg))
				defer srv.Close()

				resp, err := http.Get(srv.URL)
				require.NoError(t, err)
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), `netconf_tls_revocation_rejections_total{reason="test"}`)
			},
		},
		{
			name: "Counter",
			testFunc: func(t *testing.T) {
				c := metrics.CallHomeConnections.WithLabelValues("test")
				before := testutil.ToFloat64(c)
				c.Inc()
				assert.Equal(t, before+1, testutil.ToFloat64(c))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestResult(t *testing.T) {
	assert.Equal(t, "success", metrics.Result(nil))
	assert.Equal(t, "failure", metrics.Result(errors.New("boom")))
}
