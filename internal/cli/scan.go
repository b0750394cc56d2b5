package cli

import (
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single monitoring cycle and exit",
	Long:  "Run a single monitoring cycle and exit. Intended for cron or CI-driven invocation where the process is not resident; note that single-shot runs only seed history, so comparison rules need a prior run's state to trigger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context())
	},
}
