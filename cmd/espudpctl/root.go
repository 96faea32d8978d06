package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/opd-ai/espudp/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds the global flags and the configuration loaded before every command.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "espudpctl",
		Short: "Tools for the CRTP-over-UDP link to an ESP SoftAP quadcopter",
		Long: `espudpctl frames and validates CRTP payloads the way the UDP driver does,
and can run a live driver session that waits for the host to join the
device's SoftAP before opening its socket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.espudp/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newFrameCmd(),
		newUnframeCmd(),
		newLinkCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	a.cfg = cfg
	return nil
}

// parseHex accepts hex bytes with optional spaces, colons or a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}
