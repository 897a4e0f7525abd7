package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	parammcp "github.com/ppiankov/paramwatch/internal/mcp"
)

var (
	mcpPolicy   string
	mcpAuditLog string
	mcpVerbose  bool
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to policy YAML (optional)")
	mcpCmd.Flags().StringVar(&mcpAuditLog, "audit-log", "", "Path to audit log JSONL file")
	mcpCmd.Flags().BoolVarP(&mcpVerbose, "verbose", "v", false, "Log every tool call to stderr")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs paramwatch as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: params_encode, params_decode, params_evaluate, params_check.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := newLogger(mcpVerbose)
	srv, err := parammcp.New(parammcp.Config{
		PolicyPath:   mcpPolicy,
		AuditLogPath: mcpAuditLog,
		Version:      version,
		Logger:       &logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info().Msg("shutting down MCP server")
		cancel()
	}()

	return srv.Run(ctx)
}
