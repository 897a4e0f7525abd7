package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/alert"
	"github.com/ppiankov/paramwatch/internal/server"
)

var (
	servePort     int
	servePolicy   string
	serveAuditLog string
	serveVerbose  bool
	serveWebhooks []string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 50051, "gRPC listen port")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "Path to policy YAML (default ~/.paramwatch/policy.yaml)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file")
	serveCmd.Flags().StringArrayVar(&serveWebhooks, "alert-webhook", nil, "Alert webhook as url[,format[,event...]] (repeatable)")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Log every RPC")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start gRPC parameter server",
	Long: "Serves the compiled policy over gRPC (Encode, Decode, Evaluate, Info).\n" +
		"Clients dry-run calls against the served program; an unreachable server\n" +
		"means deny. The policy file is hot-reloaded on change.",
	RunE: runServe,
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

func parseWebhooks(flags []string) ([]alert.AlertConfig, error) {
	out := make([]alert.AlertConfig, 0, len(flags))
	for _, f := range flags {
		cfg, err := alert.ParseWebhook(f)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(serveVerbose)
	alerts, err := parseWebhooks(serveWebhooks)
	if err != nil {
		return err
	}
	cfg := server.Config{
		Port:         servePort,
		PolicyPath:   servePolicy,
		AuditLogPath: serveAuditLog,
		Alerts:       alerts,
		Logger:       &logger,
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	policyPath := servePolicy
	if policyPath == "" {
		// New already loaded it from here.
		policyPath, _ = defaultPolicyPath()
	}
	reloader, err := server.NewReloader(srv, []string{policyPath})
	if err != nil {
		logger.Warn().Err(err).Msg("hot-reload disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if reloader != nil {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info().Msg("shutting down parameter server")
		cancel()
		srv.GracefulStop()
	}()

	return srv.Serve()
}
