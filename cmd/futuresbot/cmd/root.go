package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "futuresbot",
	Short: "A BNB/USDT futures signal and position bot",
	Long: `Futuresbot trades BNB/USDT perpetual futures in simulation from candle files
written by a separate streamer.

It provides tools for:
  - Running the Bollinger breakout strategy with a daily loss cap
  - Operating the bot from Telegram (/start, /stop, /status)
  - Generating and validating configuration files
  - Reporting journaled trades and daily equity`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
