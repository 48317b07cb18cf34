package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newKeygenCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the Ethereum signing key and the RSA key exchange key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ethKey, err := loadOrGenerateEthereumKey(a.log, a.cfg.EthKeyPath, force)
			if err != nil {
				return fmt.Errorf("failed to load/generate Ethereum key: %w", err)
			}
			if _, err := loadOrGenerateRSAKey(a.log, a.cfg.RSAKeyPath, force); err != nil {
				return fmt.Errorf("failed to load/generate RSA key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Publisher address: %s\n", ethKey.Address())
			fmt.Fprintf(out, "Signing key:       %s\n", a.cfg.EthKeyPath)
			fmt.Fprintf(out, "RSA key:           %s\n", a.cfg.RSAKeyPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace existing keys")
	return cmd
}
