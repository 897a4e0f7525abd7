package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/paramwatch/internal/alert"
	"github.com/ppiankov/paramwatch/internal/audit"
	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/rpc"
)

// Config holds gRPC server configuration.
type Config struct {
	Port         int
	PolicyPath   string
	AuditLogPath string
	// Alerts receive deny and reload events.
	Alerts []alert.AlertConfig
	// Logger defaults to a console logger on stderr.
	Logger *zerolog.Logger
}

// served is one compiled policy. It is replaced whole on reload.
type served struct {
	policy     *policy.Policy
	grant      model.Grant
	program    []params.Param
	words      params.Program
	policyHash string
}

// Server implements the ParamService gRPC server.
type Server struct {
	mu       sync.RWMutex
	current  *served
	auditLog *audit.Log
	alerts   *alert.Dispatcher
	cfg      Config
	log      zerolog.Logger

	grpcServer *grpc.Server
}

// New creates a gRPC server serving the compiled policy at cfg.PolicyPath.
func New(cfg Config) (*Server, error) {
	cur, err := load(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	var log zerolog.Logger
	if cfg.Logger != nil {
		log = *cfg.Logger
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	s := &Server{
		current:  cur,
		auditLog: auditLog,
		alerts:   alert.NewDispatcher(cfg.Alerts, log),
		cfg:      cfg,
		log:      log.With().Str("component", "server").Logger(),
	}
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))

	rpc.RegisterParamServiceServer(s.grpcServer, s)
	return s, nil
}

func load(path string) (*served, error) {
	p, policyHash, err := policy.LoadConfigWithHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	grant, err := p.Grant.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid policy grant: %w", err)
	}
	ps, words, err := p.Program()
	if err != nil {
		return nil, fmt.Errorf("invalid policy program: %w", err)
	}
	return &served{policy: p, grant: grant, program: ps, words: words, policyHash: policyHash}, nil
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.ServeOn(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	cur := s.snapshot()
	s.log.Info().
		Str("addr", lis.Addr().String()).
		Str("policy", cur.policy.Name).
		Int("length", len(cur.words)).
		Str("policy_hash", cur.policyHash).
		Msg("serving")
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Close waits for pending alerts and closes the audit log.
func (s *Server) Close() error {
	s.alerts.Wait()
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

func (s *Server) snapshot() *served {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Encode implements the Encode RPC. An empty request encodes the served
// policy.
func (s *Server) Encode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.EncodeRequest
	if err := rpc.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	cur := s.snapshot()
	ps := cur.program
	if len(req.Params) > 0 {
		var err error
		ps, err = rpc.BuildParams(req.Params)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	resp, err := rpc.Encode(ps)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(req.Params) == 0 {
		resp.PolicyHash = cur.policyHash
		s.recordAudit(audit.AuditEntry{
			Type:       audit.TypeEncode,
			Policy:     cur.policy.Name,
			Grant:      audit.GrantOf(cur.grant),
			Length:     len(resp.Words),
			ParamsHash: resp.ParamsHash,
			PolicyHash: cur.policyHash,
		})
	}
	return toStruct(resp)
}

// Decode implements the Decode RPC.
func (s *Server) Decode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.DecodeRequest
	if err := rpc.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := rpc.Decode(req.Words)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return toStruct(resp)
}

// Evaluate implements the Evaluate RPC. Malformed arguments deny with the
// parse error as the reason instead of failing the call.
func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.EvaluateRequest
	if err := rpc.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	cur := s.snapshot()
	resp, err := rpc.Evaluate(cur.program, req)
	if err != nil {
		resp = rpc.EvaluateResponse{Decision: string(model.Deny), Reason: err.Error()}
	}
	resp.PolicyHash = cur.policyHash
	paramsHash := calldata.ParamsHash(cur.words).Hex()

	s.recordAudit(audit.AuditEntry{
		Type:       audit.TypeEvaluate,
		Policy:     cur.policy.Name,
		Grant:      audit.GrantOf(cur.grant),
		Length:     len(cur.words),
		ParamsHash: paramsHash,
		Decision:   resp.Decision,
		Reason:     resp.Reason,
		PolicyHash: cur.policyHash,
	})
	if resp.Decision == string(model.Deny) {
		s.alerts.Dispatch(alert.AlertEvent{
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
			Type:       alert.EventDeny,
			Policy:     cur.policy.Name,
			Grant:      cur.grant.String(),
			Args:       req.Args,
			Decision:   resp.Decision,
			Reason:     resp.Reason,
			ParamsHash: paramsHash,
			PolicyHash: cur.policyHash,
		})
	}
	return toStruct(resp)
}

// Info implements the Info RPC.
func (s *Server) Info(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cur := s.snapshot()
	return toStruct(rpc.InfoResponse{
		Name:       cur.policy.Name,
		Entity:     cur.grant.Entity.Hex(),
		App:        cur.grant.App.Hex(),
		Role:       cur.grant.Role.Hex(),
		Length:     len(cur.words),
		ParamsHash: calldata.ParamsHash(cur.words).Hex(),
		PolicyHash: cur.policyHash,
	})
}

// ReloadPolicy re-reads and recompiles the policy file. On error the
// previously served policy stays in place.
func (s *Server) ReloadPolicy() error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	cur, err := load(s.cfg.PolicyPath)
	if err != nil {
		old := s.snapshot()
		s.alerts.Dispatch(alert.AlertEvent{
			Timestamp:  now,
			Type:       alert.EventReloadFailed,
			Policy:     old.policy.Name,
			Reason:     err.Error(),
			PolicyHash: old.policyHash,
		})
		return err
	}

	s.mu.Lock()
	s.current = cur
	s.mu.Unlock()

	s.alerts.Dispatch(alert.AlertEvent{
		Timestamp:  now,
		Type:       alert.EventReloaded,
		Policy:     cur.policy.Name,
		Grant:      cur.grant.String(),
		Reason:     fmt.Sprintf("%d nodes", len(cur.words)),
		ParamsHash: calldata.ParamsHash(cur.words).Hex(),
		PolicyHash: cur.policyHash,
	})
	return nil
}

// PolicyHash returns the hash of the currently served policy file.
func (s *Server) PolicyHash() string {
	return s.snapshot().policyHash
}

func (s *Server) recordAudit(entry audit.AuditEntry) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.Record(entry); err != nil {
		s.log.Error().Err(err).Str("type", entry.Type).Msg("audit record failed")
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	ev := s.log.Debug()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("method", info.FullMethod).Dur("took", time.Since(start)).Msg("rpc")
	return resp, err
}

func toStruct(v any) (*structpb.Struct, error) {
	out, err := rpc.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
