package cmd

import (
	"fmt"

	"github.com/rustyeddy/riskgate/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage riskgate configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  riskgate config init -o riskgate.yaml
  riskgate config validate -c riskgate.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "riskgate.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  riskgate run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configPath)
	fmt.Fprintf(out, "  Account:    %s (starting equity %.2f)\n", cfg.Account.ID, cfg.Account.StartingEquity)
	fmt.Fprintf(out, "  Instrument: %s x%d\n", cfg.Instrument.Symbol, cfg.Instrument.OrderSize)
	fmt.Fprintf(out, "  Risk:       daily loss %.2f, drawdown %.2f, max position %d\n",
		cfg.Risk.DailyLossLimit, cfg.Risk.MaxDrawdown, cfg.Risk.MaxPositionSize)
	fmt.Fprintf(out, "  Window:     %s-%s %s\n", cfg.TradingWindow.Start, cfg.TradingWindow.End, cfg.TradingWindow.Timezone)
	fmt.Fprintf(out, "  Strategy:   %s\n", cfg.Strategy.Name)
	fmt.Fprintf(out, "  Broker:     %s\n", cfg.Broker.Type)
	fmt.Fprintf(out, "  Journal:    %s\n", cfg.Journal.Type)
	return nil
}
