package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "paramwatch",
	Short: "Encode, decode and dry-run Aragon ACL permission parameters",
	Long: "Compiles permission policies into the uint256[] parameter lists passed to\n" +
		"ACL.grantPermissionP, decodes on-chain parameters back into readable\n" +
		"conditions, and evaluates programs locally before a vote goes live.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
