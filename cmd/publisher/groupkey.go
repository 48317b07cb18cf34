package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-streams/pkg/crypto"
)

func (a *app) newGroupKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groupkey",
		Short: "Manage the AES group keys of a stream",
	}
	cmd.AddCommand(
		a.newGroupKeyGenerateCommand(),
		a.newGroupKeyAddCommand(),
		a.newGroupKeyListCommand(),
		a.newGroupKeyDeleteCommand(),
	)
	return cmd
}

func (a *app) newGroupKeyGenerateCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "generate <streamId>",
		Short: "Generate a random group key for a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateGroupKey(id)
			if err != nil {
				return err
			}
			if err := a.putGroupKey(cmd, args[0], key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Group key id (default random UUID)")
	return cmd
}

func (a *app) newGroupKeyAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <streamId> <groupKeyId> <hexKey>",
		Short: "Store an existing 256-bit group key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.NewGroupKey(args[1], args[2])
			if err != nil {
				return err
			}
			return a.putGroupKey(cmd, args[0], key)
		},
	}
}

func (a *app) putGroupKey(cmd *cobra.Command, streamID string, key *crypto.GroupKey) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	return store.PutGroupKey(cmd.Context(), streamID, key)
}

func (a *app) newGroupKeyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <streamId>",
		Short: "List the group keys of a stream, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListGroupKeys(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP KEY ID\tCREATED")
			for _, record := range records {
				created := time.UnixMilli(record.CreatedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\n", record.GroupKeyID, created)
			}
			return w.Flush()
		},
	}
}

func (a *app) newGroupKeyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <streamId> <groupKeyId>",
		Short: "Delete a group key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.DeleteGroupKey(cmd.Context(), args[0], args[1])
		},
	}
}
