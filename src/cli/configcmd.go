// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	var role string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective option sets and client settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := nctls.RoleInitiator
			if role == nctls.RoleResponder.String() {
				target = nctls.RoleResponder
			}

			cfg, err := a.load(target)
			if err != nil {
				return err
			}
			reg, err := a.registry(cfg)
			if err != nil {
				return err
			}
			defer reg.Destroy()

			a.printf("%s\n%s", renderOptions(reg), renderSettings(cfg))
			return nil
		},
	}
	show.Flags().StringVar(&role, "role", nctls.RoleInitiator.String(), "option set the path flags apply to: initiator or responder")

	cmd.AddCommand(show)
	return cmd
}
