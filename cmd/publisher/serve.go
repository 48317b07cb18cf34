package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-streams/pkg/api"
	"github.com/ZentaChain/zentalk-streams/pkg/protocol"
	"github.com/ZentaChain/zentalk-streams/pkg/publisher"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the publisher HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&a.cfg.Port, "port", a.cfg.Port, "Port to listen on")
	flags.BoolVar(&a.cfg.Unsigned, "unsigned", a.cfg.Unsigned, "Publish unsigned messages (disables key exchange)")
	flags.StringVar(&a.cfg.PublisherID, "publisher-id", a.cfg.PublisherID, "Publisher address for unsigned mode")
	flags.IntVar(&a.cfg.RateLimit, "rate-limit", a.cfg.RateLimit, "Requests per minute per client, 0 to disable")
	flags.StringSliceVar(&a.cfg.APIKeys, "api-key", a.cfg.APIKeys, "Accepted X-API-Key values")

	return cmd
}

func (a *app) serve(ctx context.Context, out io.Writer) error {
	printBanner(out)

	rsaKey, err := loadOrGenerateRSAKey(a.log, a.cfg.RSAKeyPath, false)
	if err != nil {
		return fmt.Errorf("failed to load/generate RSA key: %w", err)
	}
	a.log.Infof("✓ RSA key loaded from %s", a.cfg.RSAKeyPath)

	creatorConfig := publisher.Config{Logger: a.log}
	if a.cfg.Unsigned {
		publisherID, err := protocol.ParseAddress(a.cfg.PublisherID)
		if err != nil {
			return fmt.Errorf("unsigned mode needs --publisher-id: %w", err)
		}
		creatorConfig.PublisherID = publisherID
		a.log.Warn("⚠️  Unsigned mode, key exchange is disabled")
	} else {
		ethKey, err := loadOrGenerateEthereumKey(a.log, a.cfg.EthKeyPath, false)
		if err != nil {
			return fmt.Errorf("failed to load/generate Ethereum key: %w", err)
		}
		creatorConfig.Signer = publisher.NewEthereumSigner(ethKey)
	}

	creator, err := publisher.NewMessageCreator(creatorConfig)
	if err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	a.log.Infof("📦 Key store opened at %s", a.cfg.databasePath())

	serverConfig := api.DefaultConfig()
	serverConfig.Port = a.cfg.Port
	serverConfig.EnableCORS = a.cfg.EnableCORS
	serverConfig.RateLimit = a.cfg.RateLimit
	serverConfig.APIKeys = a.cfg.APIKeys

	server, err := api.NewServer(api.Deps{
		Creator: creator,
		Backend: store,
		RSAKey:  rsaKey,
		Logger:  a.log,
	}, serverConfig)
	if err != nil {
		return err
	}

	printStatus(out, a.cfg, creator)

	if err := server.Start(ctx); err != nil {
		return err
	}
	a.log.Info("✓ Publisher stopped")
	return nil
}

func printBanner(out io.Writer) {
	fmt.Fprintln(out, "╔═══════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║          Zentalk Stream Publisher v1.0            ║")
	fmt.Fprintln(out, "║     Sequenced, encrypted and signed messages      ║")
	fmt.Fprintln(out, "╚═══════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
}

func printStatus(out io.Writer, cfg *Config, creator *publisher.MessageCreator) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out, "🚀 Publisher Status")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(out, "   Port: %d\n", cfg.Port)
	fmt.Fprintf(out, "   Publisher: %s\n", creator.PublisherID())
	fmt.Fprintf(out, "   Message chain: %s\n", creator.MsgChainID())
	if creator.IsSigned() {
		fmt.Fprintln(out, "   Signing: ✅ ENABLED")
	} else {
		fmt.Fprintln(out, "   Signing: ⚠️  DISABLED")
	}
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)
}
