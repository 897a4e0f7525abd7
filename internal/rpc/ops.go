package rpc

import (
	"fmt"

	"github.com/ppiankov/paramwatch/internal/acl"
	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/scenario"
)

// BuildParams compiles raw node specs.
func BuildParams(specs []policy.ParamSpec) ([]params.Param, error) {
	out := make([]params.Param, len(specs))
	for i, spec := range specs {
		p, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("params[%d]: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Encode encodes ps and runs the well-formedness checker over it.
func Encode(ps []params.Param) (EncodeResponse, error) {
	prog, err := params.EncodeProgram(ps)
	if err != nil {
		return EncodeResponse{}, err
	}
	return EncodeResponse{
		Words:      prog.Hex(),
		ParamsHash: calldata.ParamsHash(prog).Hex(),
		Issues:     params.Check(ps),
	}, nil
}

// Decode parses and decodes hex or decimal words.
func Decode(words []string) (DecodeResponse, error) {
	prog, err := params.ParseProgram(words)
	if err != nil {
		return DecodeResponse{}, err
	}
	ps, err := params.DecodeProgram(prog)
	if err != nil {
		return DecodeResponse{}, err
	}
	resp := DecodeResponse{Params: make([]DecodedParam, len(ps))}
	for i, p := range ps {
		resp.Params[i] = DecodedParam{
			Index:       i,
			ID:          p.ID.String(),
			Op:          p.Op.String(),
			Value:       p.Value.String(),
			Description: params.Describe(p),
		}
	}
	return resp, nil
}

// Evaluate dry-runs program against the call in req.
func Evaluate(program []params.Param, req EvaluateRequest) (EvaluateResponse, error) {
	how, err := scenario.ParseArgs(req.Args)
	if err != nil {
		return EvaluateResponse{}, err
	}
	env, err := req.Env.Env()
	if err != nil {
		return EvaluateResponse{}, err
	}
	res, err := acl.Evaluate(program, how, env)
	if err != nil {
		return EvaluateResponse{}, err
	}
	return EvaluateResponse{
		Decision: string(res.Decision),
		Reason:   res.Reason(),
		Trace:    res.Trace,
	}, nil
}
