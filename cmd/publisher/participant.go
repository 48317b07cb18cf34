package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

func (a *app) newParticipantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participant",
		Short: "Manage the RSA public keys of key exchange participants",
	}
	cmd.AddCommand(a.newParticipantAddCommand(), a.newParticipantListCommand())
	return cmd
}

func (a *app) newParticipantAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <address> <publicKey.pem>",
		Short: "Store the RSA public key of a participant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, err := protocol.ParseAddress(args[0])
			if err != nil {
				return err
			}
			pemData, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read public key: %w", err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.PutPublicKey(cmd.Context(), participant, string(pemData))
		},
	}
}

func (a *app) newParticipantListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List participants with a stored public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			participants, err := store.ListParticipants(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS")
			for _, p := range participants {
				fmt.Fprintln(w, p.Address)
			}
			return w.Flush()
		},
	}
}
