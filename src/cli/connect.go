// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/config"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/schema"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/session"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

func newConnectCommand(a *app) *cobra.Command {
	var (
		port      int
		timeout   time.Duration
		showChain bool
	)

	cmd := &cobra.Command{
		Use:   "connect [HOST]",
		Short: "Open a NETCONF over TLS session and print what the server announced",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(nctls.RoleInitiator)
			if err != nil {
				return err
			}

			host := cfg.Client.Host
			if len(args) == 1 {
				host = args[0]
			}
			if host == "" {
				return ErrHostRequired
			}
			if cmd.Flags().Changed("port") {
				cfg.Client.Port = port
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Client.TimeoutSeconds = int(timeout / time.Second)
			}

			reg, err := a.registry(cfg)
			if err != nil {
				return err
			}
			defer reg.Destroy()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.Timeout())
			defer cancel()

			s, err := a.newClient(reg, cfg).Connect(ctx, host, cfg.Client.Port, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			a.printf("%s", renderSession(s))
			if showChain {
				chain, err := renderChain(s)
				if err != nil {
					return err
				}
				a.printf("\n%s", chain)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", session.DefaultPort, "server port")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "time allowed for establishing the session")
	cmd.Flags().BoolVar(&showChain, "show-chain", false, "also print the server certificate chain as PEM")
	return cmd
}

// newClient returns a session client wired to reg and the client settings of cfg.
func (a *app) newClient(reg *nctls.Registry, cfg *config.Config) *session.Client {
	opts := []session.Option{
		session.WithRegistry(reg),
		session.WithLogger(a.log),
		session.WithProtocolHandshaker(&session.HelloHandshaker{
			Capabilities: cfg.Client.Capabilities,
			MaxSize:      cfg.Client.MaxHelloBytes,
		}),
	}
	if dir := cfg.Client.SchemaDir; dir != "" {
		opts = append(opts, session.WithSchemaFactory(func() (*schema.Context, error) {
			return schema.New(dir), nil
		}))
	}
	return session.NewClient(opts...)
}
