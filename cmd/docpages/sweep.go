package main

import (
	"fmt"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/infrastructure"
	"github.com/spf13/cobra"
)

func newSweepCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove every document directory under the storage root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			infra, err := infrastructure.New(cfg)
			if err != nil {
				return err
			}
			if err := infra.Start(); err != nil {
				return err
			}
			defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())

			removed, err := artifacts.New(infra.Storage, infra.Logger).Sweep(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d document(s) from %s\n", removed, cfg.Storage.BasePath)
			return nil
		},
	}
}
