package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/system"
)

func newPlanCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the batch schedule of a demo, sync units included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			sim, closeSim, err := newSim(cfg, root.demo, root.tokens, system.Options{}, zap.NewNop())
			if err != nil {
				return err
			}
			defer closeSim()
			_, err = sim.Runner.Plan().WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}
