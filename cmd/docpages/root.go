package main

import (
	"fmt"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docpages",
		Short: "Document page conversion tools",
		Long: `docpages converts office documents into per-page PNG or PDF artifacts
using the same pipeline and configuration as the HTTP service.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.BaseConfigFile, "config file path")

	cmd.AddCommand(newConvertCmd(opts))
	cmd.AddCommand(newSweepCmd(opts))
	return cmd
}

// loadConfig reads and finalizes the configuration named by --config.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}
