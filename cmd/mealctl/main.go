// Command mealctl is the operator CLI of the meal plan backend. It talks to the
// database directly and shares configuration with the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagLogLevel string
	flagTenant   string
)

var rootCmd = &cobra.Command{
	Use:   "mealctl",
	Short: "Operate the meal subscription engine",
	Long: `mealctl runs maintenance tasks against the meal plan database:
completing past orders, checking ledger chains, inspecting freeze quotas
and signing development tokens. Configuration is read the same way as the
server (config.toml and MEAL_ environment variables).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Tenant ID")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
