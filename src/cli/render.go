// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/config"
	x509certs "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/session"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

// renderTable renders rows as a markdown table.
func renderTable(headers []string, rows [][]string) string {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header(headers)
	table.Bulk(rows)
	table.Render()
	return buf.String()
}

// renderSession renders an established session and the modules its server announced.
func renderSession(s *session.Session) string {
	verify := "ok"
	if err := s.VerifyResult(); err != nil {
		verify = err.Error()
	}

	out := renderTable([]string{"Field", "Value"}, [][]string{
		{"Session ID", strconv.FormatUint(s.SessionID(), 10)},
		{"Peer", fmt.Sprintf("%s:%d", s.Host(), s.Port())},
		{"Role", s.Role().String()},
		{"Username", s.Username()},
		{"Base", s.Base()},
		{"Verify", verify},
		{"Capabilities", strconv.Itoa(len(s.Capabilities()))},
	})

	modules := s.Context().Modules()
	if len(modules) == 0 {
		return out
	}

	rows := make([][]string, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, []string{m.Name, m.Revision, strings.Join(m.Features, ",")})
	}
	return out + "\n" + renderTable([]string{"Module", "Revision", "Features"}, rows)
}

// renderChain renders the certificates the server presented, leaf first, as PEM.
func renderChain(s *session.Session) (string, error) {
	cs, err := s.ConnectionState()
	if err != nil {
		return "", err
	}
	data, err := x509certs.New().EncodePEM(cs.PeerCertificates...)
	if err != nil {
		return "", fmt.Errorf("encoding server chain: %w", err)
	}
	return string(data), nil
}

// renderOptions renders the paths of both option sets of reg.
func renderOptions(reg *nctls.Registry) string {
	var rows [][]string
	for _, opts := range []*nctls.OptionSet{reg.Initiator(), reg.Responder()} {
		snap := opts.Snapshot()
		rows = append(rows, []string{
			snap.Role.String(),
			orDash(snap.CertPath),
			orDash(snap.KeyPath),
			orDash(snap.CAFile),
			orDash(snap.CADir),
			orDash(snap.CRLFile),
			orDash(snap.CRLDir),
		})
	}
	return renderTable([]string{"Role", "Cert", "Key", "CA File", "CA Dir", "CRL File", "CRL Dir"}, rows)
}

// renderSettings renders the non-path settings of cfg.
func renderSettings(cfg *config.Config) string {
	source := cfg.Path
	if source == "" {
		source = "defaults"
	}
	port := "-"
	if cfg.Client.Port != 0 {
		port = strconv.Itoa(cfg.Client.Port)
	}

	return renderTable([]string{"Setting", "Value"}, [][]string{
		{"Source", source},
		{"Host", orDash(cfg.Client.Host)},
		{"Port", port},
		{"Timeout", cfg.Client.Timeout().String()},
		{"Schema Dir", orDash(cfg.Client.SchemaDir)},
		{"Call-home Addresses", orDash(strings.Join(cfg.CallHome.Addresses, ", "))},
		{"Accept Rate", strconv.FormatFloat(cfg.CallHome.AcceptRate, 'g', -1, 64) + "/s"},
		{"Metrics Address", orDash(cfg.CallHome.MetricsAddr)},
		{"Watch CRL", strconv.FormatBool(cfg.CallHome.WatchCRL)},
		{"Log", cfg.Log.Level + " (" + cfg.Log.Format + ")"},
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
