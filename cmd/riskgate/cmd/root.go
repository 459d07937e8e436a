package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "riskgate",
	Short: "A risk-gated execution loop for a single instrument",
	Long: `Riskgate polls a broker for quotes, asks a strategy for a target position
and only sends the orders that pass the daily loss, drawdown and position
limits. Trading stops outside the configured window and the position is
flattened when a limit is breached.

Brokers:
  sim      - simulated fills (random walk or scripted prices)
  topstep  - TopstepX futures gateway
  alpaca   - Alpaca equities`,
	SilenceUsage: true,
}

var configPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "riskgate.yaml", "path to config file")
}
