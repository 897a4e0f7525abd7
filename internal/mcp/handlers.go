package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/paramwatch/internal/audit"
	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/rpc"
	"github.com/ppiankov/paramwatch/internal/scenario"
)

var errNoProgram = errors.New("no params given and no policy loaded")

// --- Input/Output types ---

// EncodeInput defines parameters for the params_encode tool.
type EncodeInput struct {
	Params []policy.ParamSpec `json:"params,omitempty" jsonschema:"program nodes; omit to encode the loaded policy"`
}

// DecodeInput defines parameters for the params_decode tool.
type DecodeInput struct {
	Words []string `json:"words" jsonschema:"uint256 words as 0x hex or decimal"`
}

// EvaluateInput defines parameters for the params_evaluate tool.
type EvaluateInput struct {
	Args   []string           `json:"args" jsonschema:"call arguments: addresses, 0x hex or decimal"`
	Env    scenario.EnvSpec   `json:"env,omitempty" jsonschema:"block number, timestamp and oracle answer (allow/deny)"`
	Params []policy.ParamSpec `json:"params,omitempty" jsonschema:"program nodes; omit to use the loaded policy"`
}

// CheckInput defines parameters for the params_check tool. Exactly one of
// Params or Words is used; Params wins when both are set.
type CheckInput struct {
	Params []policy.ParamSpec `json:"params,omitempty" jsonschema:"program nodes"`
	Words  []string           `json:"words,omitempty" jsonschema:"encoded words as 0x hex or decimal"`
}

// CheckOutput lists well-formedness issues.
type CheckOutput struct {
	Clean  bool           `json:"clean"`
	Length int            `json:"length"`
	Issues []params.Issue `json:"issues,omitempty"`
}

// --- Handlers ---

func (s *Server) resolve(specs []policy.ParamSpec) ([]params.Param, bool, error) {
	if len(specs) > 0 {
		ps, err := rpc.BuildParams(specs)
		return ps, false, err
	}
	if s.policy == nil {
		return nil, false, errNoProgram
	}
	return s.program, true, nil
}

func (s *Server) handleEncode(ctx context.Context, req *mcpsdk.CallToolRequest, input EncodeInput) (*mcpsdk.CallToolResult, rpc.EncodeResponse, error) {
	ps, served, err := s.resolve(input.Params)
	if err != nil {
		return nil, rpc.EncodeResponse{}, err
	}
	out, err := rpc.Encode(ps)
	if err != nil {
		return nil, rpc.EncodeResponse{}, err
	}
	if served {
		out.PolicyHash = s.policyHash
		s.recordAudit(audit.AuditEntry{
			Type:       audit.TypeEncode,
			Length:     len(out.Words),
			ParamsHash: out.ParamsHash,
		})
	}
	s.log.Debug().Int("length", len(out.Words)).Int("issues", len(out.Issues)).Msg("encode")
	return nil, out, nil
}

func (s *Server) handleDecode(ctx context.Context, req *mcpsdk.CallToolRequest, input DecodeInput) (*mcpsdk.CallToolResult, rpc.DecodeResponse, error) {
	out, err := rpc.Decode(input.Words)
	if err != nil {
		return nil, rpc.DecodeResponse{}, err
	}
	return nil, out, nil
}

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, rpc.EvaluateResponse, error) {
	ps, served, err := s.resolve(input.Params)
	if err != nil {
		return nil, rpc.EvaluateResponse{}, err
	}

	out, err := rpc.Evaluate(ps, rpc.EvaluateRequest{Args: input.Args, Env: input.Env})
	if err != nil {
		out = rpc.EvaluateResponse{Decision: string(model.Deny), Reason: err.Error()}
	}

	if served {
		out.PolicyHash = s.policyHash
		prog, encErr := params.EncodeProgram(ps)
		if encErr == nil {
			s.recordAudit(audit.AuditEntry{
				Type:       audit.TypeEvaluate,
				Length:     len(prog),
				ParamsHash: calldata.ParamsHash(prog).Hex(),
				Decision:   out.Decision,
				Reason:     out.Reason,
			})
		}
	}
	s.log.Debug().Str("decision", out.Decision).Str("reason", out.Reason).Msg("evaluate")

	if model.ParseDecision(out.Decision) == model.Deny {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	var ps []params.Param
	var err error
	switch {
	case len(input.Params) > 0:
		ps, err = rpc.BuildParams(input.Params)
	case len(input.Words) > 0:
		var prog params.Program
		prog, err = params.ParseProgram(input.Words)
		if err == nil {
			ps, err = params.DecodeProgram(prog)
		}
	default:
		ps, _, err = s.resolve(nil)
	}
	if err != nil {
		return nil, CheckOutput{}, err
	}

	issues := params.Check(ps)
	out := CheckOutput{Clean: len(issues) == 0, Length: len(ps), Issues: issues}
	if !out.Clean {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}
