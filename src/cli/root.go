// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/config"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

// ErrHostRequired is returned by connect when neither an argument nor the configuration names a host.
var ErrHostRequired = errors.New("cli: host is required")

// app carries the state shared by the commands of one invocation.
type app struct {
	ctx     context.Context
	version string
	log     logger.Logger
	out     io.Writer
	errOut  io.Writer

	configPath string
	logLevel   string
	paths      config.Role
}

// Execute runs the command line in os.Args against stdout and stderr.
func Execute(ctx context.Context, version string, log logger.Logger) error {
	return Run(ctx, version, log, os.Args[1:], os.Stdout, os.Stderr)
}

// Run runs the command line in args.
func Run(ctx context.Context, version string, log logger.Logger, args []string, out, errOut io.Writer) error {
	cmd := newRootCommand(&app{ctx: ctx, version: version, log: log, out: out, errOut: errOut})
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           posix.ExecutableName(),
		Short:         "NETCONF over TLS client",
		Long:          "Establishes mutually authenticated NETCONF over TLS sessions, outbound or by call-home, with CRL based revocation checking.",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (.json, .yaml, .yml, .toml); defaults to $"+config.EnvFile)
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.paths.Cert, "cert", "", "client certificate file (PEM, DER or PKCS7)")
	flags.StringVar(&a.paths.Key, "key", "", "private key file (default: read from the certificate file)")
	flags.StringVar(&a.paths.CAFile, "ca-file", "", "trusted CA certificates file")
	flags.StringVar(&a.paths.CADir, "ca-dir", "", "directory of trusted CA certificates")
	flags.StringVar(&a.paths.CRLFile, "crl-file", "", "certificate revocation list file")
	flags.StringVar(&a.paths.CRLDir, "crl-dir", "", "directory of certificate revocation lists")

	root.AddCommand(newConnectCommand(a), newCallHomeCommand(a), newConfigCommand(a))
	return root
}

// load reads the configuration, overlays path flags onto role and sets up the logger.
func (a *app) load(role nctls.Role) (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}

	target := &cfg.Initiator
	if role == nctls.RoleResponder {
		target = &cfg.Responder
	}
	overlay(target, a.paths)

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "json" {
		if _, ok := a.log.(*logger.JSONLogger); !ok {
			a.log = logger.NewJSONLogger(a.errOut)
		}
	}
	a.log.SetLevel(level)

	return cfg, nil
}

// registry returns a registry with cfg applied.
func (a *app) registry(cfg *config.Config) (*nctls.Registry, error) {
	reg := nctls.NewRegistry(nctls.WithLogger(a.log))
	if err := cfg.Apply(reg); err != nil {
		reg.Destroy()
		return nil, err
	}
	return reg, nil
}

// overlay copies the non-empty flag values over dst. A certificate given by
// flag without a key drops the configured key, which belonged to the old certificate.
func overlay(dst *config.Role, flags config.Role) {
	if flags.Cert != "" {
		dst.Cert, dst.Key = flags.Cert, flags.Key
	} else if flags.Key != "" {
		dst.Key = flags.Key
	}
	if flags.CAFile != "" || flags.CADir != "" {
		dst.CAFile, dst.CADir = flags.CAFile, flags.CADir
	}
	if flags.CRLFile != "" || flags.CRLDir != "" {
		dst.CRLFile, dst.CRLDir = flags.CRLFile, flags.CRLDir
	}
}

func (a *app) printf(format string, v ...any) {
	fmt.Fprintf(a.out, format, v...)
}
