package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-streams/pkg/storage"
)

// app carries the configuration shared by every command
type app struct {
	cfg *Config
	log *logrus.Logger
}

func newRootCommand(cfg *Config) *cobra.Command {
	a := &app{cfg: cfg}

	cmd := &cobra.Command{
		Use:           "publisher",
		Short:         "Sequenced, encrypted and signed stream message publisher",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := a.cfg.newLogger()
			if err != nil {
				return err
			}
			a.log = logger
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Data directory")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Key store path (default <data-dir>/publisher.db)")
	flags.StringVar(&cfg.StorePassword, "password", cfg.StorePassword, "Key store password")
	flags.StringVar(&cfg.EthKeyPath, "eth-key", cfg.EthKeyPath, "Path to Ethereum signing key")
	flags.StringVar(&cfg.RSAKeyPath, "rsa-key", cfg.RSAKeyPath, "Path to RSA key exchange key")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		a.newServeCommand(),
		a.newKeygenCommand(),
		a.newGroupKeyCommand(),
		a.newStreamCommand(),
		a.newParticipantCommand(),
	)

	return cmd
}

// openStore opens the key store, creating the data directory if needed
func (a *app) openStore() (*storage.Store, error) {
	if a.cfg.DBPath == "" {
		if err := os.MkdirAll(a.cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return storage.Open(a.cfg.databasePath(), a.cfg.StorePassword, a.log)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if err := newRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
