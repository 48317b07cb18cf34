package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
)

func (a *app) newStreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Manage the streams this node publishes to",
	}
	cmd.AddCommand(
		a.newStreamAddCommand(),
		a.newStreamListCommand(),
		a.newStreamTrustCommand(),
		a.newStreamPublishersCommand(),
	)
	return cmd
}

func (a *app) newStreamAddCommand() *cobra.Command {
	var partitions int

	cmd := &cobra.Command{
		Use:   "add <streamId>",
		Short: "Register a stream and its partition count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.PutStream(cmd.Context(), protocol.Stream{ID: args[0], Partitions: partitions})
		},
	}

	cmd.Flags().IntVar(&partitions, "partitions", 1, "Number of partitions")
	return cmd
}

func (a *app) newStreamListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			streams, err := store.ListStreams(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STREAM\tPARTITIONS")
			for _, stream := range streams {
				fmt.Fprintf(w, "%s\t%d\n", stream.ID, stream.Partitions)
			}
			return w.Flush()
		},
	}
}

func (a *app) newStreamTrustCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trust <streamId> <publisher>",
		Short: "Accept group key announcements from a publisher of a stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisherID, err := protocol.ParseAddress(args[1])
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.TrustPublisher(cmd.Context(), args[0], publisherID)
		},
	}
}

func (a *app) newStreamPublishersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publishers <streamId>",
		Short: "List the trusted publishers of a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			publishers, err := store.ListTrustedPublishers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, publisherID := range publishers {
				fmt.Fprintln(cmd.OutOrStdout(), publisherID)
			}
			return nil
		},
	}
}
