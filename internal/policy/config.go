package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
)

// ErrNoProgram is returned when a policy defines neither amount_limits nor
// params, or both.
var ErrNoProgram = errors.New("policy must define exactly one of amount_limits or params")

// GrantSpec names the permission a policy targets. Role is either a role
// name (hashed with keccak256) or a 0x-prefixed 32-byte identifier.
type GrantSpec struct {
	Entity string `yaml:"entity"`
	App    string `yaml:"app"`
	Role   string `yaml:"role"`
}

// ParamSpec is one raw program node. Exactly one of Value, IfElse or Logic
// supplies the operand.
type ParamSpec struct {
	ID      string   `yaml:"id" json:"id"`
	Op      string   `yaml:"op" json:"op"`
	Value   string   `yaml:"value,omitempty" json:"value,omitempty"`
	IfElse  []uint64 `yaml:"if_else,omitempty" json:"if_else,omitempty"`
	Logic   []uint64 `yaml:"logic,omitempty" json:"logic,omitempty"`
	Comment string   `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// Limit is one token ceiling. Limit is scaled by 10^Decimals, so
// "5_000_000" with decimals 18 means five million whole tokens.
type Limit struct {
	Symbol   string `yaml:"symbol,omitempty"`
	Token    string `yaml:"token"`
	Limit    string `yaml:"limit"`
	Decimals uint8  `yaml:"decimals,omitempty"`
}

// AmountLimits describes the per-token ceiling chain used by payment
// permissions: the call argument at TokenArg selects a branch and the one
// at AmountArg must not exceed that branch's limit.
type AmountLimits struct {
	TokenArg  int        `yaml:"token_arg"`
	AmountArg int        `yaml:"amount_arg"`
	Limits    []Limit    `yaml:"limits"`
	Fallback  *ParamSpec `yaml:"fallback,omitempty"`
}

// Policy is one permission program file.
type Policy struct {
	Name         string        `yaml:"name"`
	Grant        GrantSpec     `yaml:"grant"`
	AmountLimits *AmountLimits `yaml:"amount_limits,omitempty"`
	Params       []ParamSpec   `yaml:"params,omitempty"`
}

// DefaultPath is where LoadConfig looks when given an empty path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".paramwatch", "policy.yaml"), nil
}

// LoadConfig loads a policy from a YAML file.
// Empty path falls back to ~/.paramwatch/policy.yaml. Unlike a tool policy
// there is no safe default program, so a missing file is an error.
func LoadConfig(path string) (*Policy, error) {
	p, _, err := LoadConfigWithHash(path)
	return p, err
}

// LoadConfigWithHash loads a policy and returns the SHA-256 hash of the raw
// YAML bytes on disk.
func LoadConfigWithHash(path string) (*Policy, string, error) {
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = def
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read policy: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	return p, HashBytes(data), nil
}

// Parse decodes a policy document. Unknown fields are rejected so a typo
// cannot silently drop a limit.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	return &p, nil
}

// HashBytes returns "sha256:<hex>" for raw policy bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// Resolve parses the grant target.
func (g GrantSpec) Resolve() (model.Grant, error) {
	entity, err := model.ParseAddress("grant.entity", g.Entity)
	if err != nil {
		return model.Grant{}, err
	}
	app, err := model.ParseAddress("grant.app", g.App)
	if err != nil {
		return model.Grant{}, err
	}
	role, err := calldata.RoleHash(g.Role)
	if err != nil {
		return model.Grant{}, fmt.Errorf("grant.%w", err)
	}
	return model.Grant{Entity: entity, App: app, Role: role}, nil
}

// Build compiles the policy into its parameter list. Every node is checked
// with Param.Validate; whole-program checks are left to params.Check.
func (p *Policy) Build() ([]params.Param, error) {
	if (p.AmountLimits == nil) == (len(p.Params) == 0) {
		return nil, ErrNoProgram
	}
	if p.AmountLimits != nil {
		return p.AmountLimits.build()
	}

	out := make([]params.Param, len(p.Params))
	for i, spec := range p.Params {
		node, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("params[%d]: %w", i, err)
		}
		out[i] = node
	}
	return out, nil
}

// Program builds and encodes the policy.
func (p *Policy) Program() ([]params.Param, params.Program, error) {
	ps, err := p.Build()
	if err != nil {
		return nil, nil, err
	}
	prog, err := params.EncodeProgram(ps)
	if err != nil {
		return nil, nil, err
	}
	return ps, prog, nil
}

func (a *AmountLimits) build() ([]params.Param, error) {
	tokenArg, err := params.ArgumentIDFromInt(a.TokenArg)
	if err != nil {
		return nil, fmt.Errorf("amount_limits.token_arg: %w", err)
	}
	amountArg, err := params.ArgumentIDFromInt(a.AmountArg)
	if err != nil {
		return nil, fmt.Errorf("amount_limits.amount_arg: %w", err)
	}

	limits := make([]params.TokenLimit, len(a.Limits))
	for i, l := range a.Limits {
		tl, err := l.resolve()
		if err != nil {
			return nil, fmt.Errorf("amount_limits.limits[%d]: %w", i, err)
		}
		limits[i] = tl
	}

	var fallback *params.Param
	if a.Fallback != nil {
		node, err := a.Fallback.Build()
		if err != nil {
			return nil, fmt.Errorf("amount_limits.fallback: %w", err)
		}
		fallback = &node
	}
	return params.AmountLimits(tokenArg, amountArg, limits, fallback)
}

func (l Limit) resolve() (params.TokenLimit, error) {
	token, err := model.ParseAddress("token", l.Token)
	if err != nil {
		return params.TokenLimit{}, err
	}
	base, err := params.ParseValue(l.Limit)
	if err != nil {
		return params.TokenLimit{}, fmt.Errorf("limit: %w", err)
	}
	scaled := base.Big()
	if l.Decimals > 0 {
		scaled.Mul(scaled, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(l.Decimals)), nil))
	}
	if scaled.BitLen() > params.ValueBits {
		return params.TokenLimit{}, fmt.Errorf("limit: %s with %d decimals exceeds 240 bits", l.Limit, l.Decimals)
	}
	return params.TokenLimit{Token: token, Limit: params.ValueFromBig(scaled)}, nil
}

// Build compiles one raw node.
func (s ParamSpec) Build() (params.Param, error) {
	id, err := params.ParseArgumentID(s.ID)
	if err != nil {
		return params.Param{}, fmt.Errorf("id: %w", err)
	}
	op, err := params.ParseOp(s.Op)
	if err != nil {
		return params.Param{}, fmt.Errorf("op: %w", err)
	}

	operands := 0
	for _, set := range []bool{s.Value != "", s.IfElse != nil, s.Logic != nil} {
		if set {
			operands++
		}
	}
	if operands > 1 {
		return params.Param{}, fmt.Errorf("only one of value, if_else or logic may be set")
	}

	var value params.Value
	switch {
	case s.IfElse != nil:
		if len(s.IfElse) != 3 {
			return params.Param{}, fmt.Errorf("if_else: expected [condition, success, failure], got %d indices", len(s.IfElse))
		}
		value, err = params.EncodeIfElse(s.IfElse[0], s.IfElse[1], s.IfElse[2])
	case s.Logic != nil:
		switch len(s.Logic) {
		case 1:
			value, err = params.EncodeLogicOp(s.Logic[0], 0)
		case 2:
			value, err = params.EncodeLogicOp(s.Logic[0], s.Logic[1])
		default:
			return params.Param{}, fmt.Errorf("logic: expected [left, right], got %d indices", len(s.Logic))
		}
	case s.Value != "":
		value, err = params.ParseValue(s.Value)
	}
	if err != nil {
		return params.Param{}, err
	}

	node := params.Param{ID: id, Op: op, Value: value}
	if err := node.Validate(); err != nil {
		return params.Param{}, err
	}
	return node, nil
}

// ExampleYAML returns a commented policy for init-policy.
func ExampleYAML() string {
	return `# paramwatch permission policy
# Generated by: paramwatch init-policy
#
# A policy compiles to the uint256[] passed to ACL.grantPermissionP.
# Define either amount_limits (per-token payment ceilings) or params
# (raw nodes), not both.

name: finance-payment-limits

# The permission being parameterized. role is a role name (hashed with
# keccak256) or a 0x-prefixed 32-byte role identifier.
grant:
  entity: "0xFE5986E06210aC1eCC1aDCafc0cc7f8D63B3F977"
  app: "0xB9E5CBB9CA5b0d659238807E84D0176930753d86"
  role: CREATE_PAYMENTS_ROLE

# Finance.newImmediatePayment(token, receiver, amount, reference):
# argument 0 selects the token, argument 2 is the amount.
# limit is multiplied by 10^decimals. Tokens not listed are denied
# unless a fallback node is given.
amount_limits:
  token_arg: 0
  amount_arg: 2
  limits:
    - symbol: LDO
      token: "0x5A98FcBEA516Cf06857215779Fd812CA3beF1B32"
      limit: "5_000_000"
      decimals: 18
    - symbol: ETH
      token: "0x0000000000000000000000000000000000000000"
      limit: "1_000"
      decimals: 18
    - symbol: DAI
      token: "0x6B175474E89094C44Da98b954EedeAC495271d0F"
      limit: "100_000"
      decimals: 18

# Raw form, equivalent to a single-token chain:
# params:
#   - {id: LOGIC_OP, op: IF_ELSE, if_else: [1, 2, 3]}
#   - {id: 0, op: EQ, value: "0x5A98FcBEA516Cf06857215779Fd812CA3beF1B32"}
#   - {id: 2, op: LTE, value: "5_000_000_000_000_000_000_000_000"}
#   - {id: PARAM_VALUE, op: RET, value: "0"}
`
}
