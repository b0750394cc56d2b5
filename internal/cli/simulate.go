package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrevOI    float64
	simulateCurrentOI float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次持仓激增并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrevOI <= 0 || simulateCurrentOI <= 0 {
			return errors.New("--prev-oi 与 --current-oi 必须大于 0")
		}

		prev := decimal.NewFromFloat(simulatePrevOI)
		current := decimal.NewFromFloat(simulateCurrentOI)
		return getApp().SimulateAlert(cmd.Context(), prev, current)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrevOI, "prev-oi", 0, "基准持仓量")
	simulateCmd.Flags().Float64Var(&simulateCurrentOI, "current-oi", 0, "当前持仓量")
}
