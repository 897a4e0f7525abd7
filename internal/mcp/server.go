package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/paramwatch/internal/audit"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

// Config holds MCP server configuration.
type Config struct {
	// PolicyPath is optional. Without it every tool call must carry its
	// own params.
	PolicyPath   string
	AuditLogPath string
	Version      string
	Logger       *zerolog.Logger
}

// Server wraps the MCP SDK server with the paramwatch tools.
type Server struct {
	mcpServer  *mcpsdk.Server
	policy     *policy.Policy
	grant      model.Grant
	program    []params.Param
	policyHash string
	auditLog   *audit.Log
	log        zerolog.Logger
}

// New creates an MCP server and registers its tools.
func New(cfg Config) (*Server, error) {
	s := &Server{}

	if cfg.PolicyPath != "" {
		p, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy: %w", err)
		}
		grant, err := p.Grant.Resolve()
		if err != nil {
			return nil, fmt.Errorf("invalid policy grant: %w", err)
		}
		ps, err := p.Build()
		if err != nil {
			return nil, fmt.Errorf("invalid policy program: %w", err)
		}
		s.policy, s.grant, s.program, s.policyHash = p, grant, ps, policyHash
	}

	if cfg.AuditLogPath != "" {
		auditLog, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		s.auditLog = auditLog
	}

	if cfg.Logger != nil {
		s.log = *cfg.Logger
	} else {
		s.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	s.log = s.log.With().Str("component", "mcp").Logger()

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "paramwatch",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.policy != nil {
		s.log.Info().Str("policy", s.policy.Name).Int("length", len(s.program)).Msg("serving policy over stdio")
	}
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

func (s *Server) recordAudit(entry audit.AuditEntry) {
	if s.auditLog == nil || s.policy == nil {
		return
	}
	entry.Policy = s.policy.Name
	entry.Grant = audit.GrantOf(s.grant)
	entry.PolicyHash = s.policyHash
	if err := s.auditLog.Record(entry); err != nil {
		s.log.Error().Err(err).Str("type", entry.Type).Msg("audit record failed")
	}
}

// registerTools adds all paramwatch tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "params_encode",
		Description: "Encode ACL permission parameters into the uint256[] words passed to grantPermissionP. Omit params to encode the loaded policy.",
	}, s.handleEncode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "params_decode",
		Description: "Decode uint256 permission parameter words (hex or decimal) into selector, operator and value.",
	}, s.handleDecode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "params_evaluate",
		Description: "Dry-run a permission program against call arguments the way the ACL contract would. Returns allow or deny with the visited nodes.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "params_check",
		Description: "Check a permission program for out-of-range jumps, cycles, misplaced logic nodes and undefined selectors.",
	}, s.handleCheck)
}
