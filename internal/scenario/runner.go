package scenario

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/paramwatch/internal/acl"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

// Run evaluates all cases in a scenario against the given program.
// Cases are independent.
func Run(s *Scenario, program []params.Param) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		expected := string(model.ParseDecision(c.Expect))
		cr := CaseResult{
			Index:    i + 1,
			Name:     c.Name,
			Args:     strings.Join(c.Args, ", "),
			Expected: expected,
		}

		env := s.Env
		if c.Env != nil {
			env = *c.Env
		}

		how, err := ParseArgs(c.Args)
		var aclEnv acl.Env
		if err == nil {
			aclEnv, err = env.Env()
		}
		if err == nil {
			var res acl.Result
			res, err = acl.Evaluate(program, how, aclEnv)
			if err == nil {
				cr.Actual = string(res.Decision)
				cr.Reason = res.Reason()
			}
		}
		if err != nil {
			cr.Actual = "error"
			cr.Reason = err.Error()
		}

		if cr.Actual == expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// Env converts the spec into evaluator context. An empty oracle means no
// oracle is configured; any value other than allow, deny, true or false is
// rejected.
func (e EnvSpec) Env() (acl.Env, error) {
	env := acl.Env{BlockNumber: e.BlockNumber, Timestamp: e.Timestamp}
	switch strings.ToLower(strings.TrimSpace(e.Oracle)) {
	case "":
	case "allow", "true":
		env.Oracle = acl.OracleFunc(func(common.Address, []uint256.Int) bool { return true })
	case "deny", "false":
		env.Oracle = acl.OracleFunc(func(common.Address, []uint256.Int) bool { return false })
	default:
		return acl.Env{}, fmt.Errorf("unknown oracle %q (want allow, deny, true or false)", e.Oracle)
	}
	return env, nil
}

// ParseArgs converts call arguments to words. Each argument is an address,
// 0x hex, or a decimal number with optional '_' separators and an optional
// eN exponent ("5_000_000e18").
func ParseArgs(args []string) ([]uint256.Int, error) {
	out := make([]uint256.Int, len(args))
	for i, a := range args {
		w, err := parseArg(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

func parseArg(s string) (uint256.Int, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || !strings.Contains(lower, "e") {
		return params.ParseWord(s)
	}

	mantissa, exp, _ := strings.Cut(lower, "e")
	m, err := params.ParseWord(mantissa)
	if err != nil {
		return uint256.Int{}, err
	}
	n, err := strconv.ParseUint(exp, 10, 8)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("parse %q: bad exponent: %w", s, err)
	}
	scaled := new(big.Int).Mul(m.ToBig(), new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(n), nil))
	var w uint256.Int
	if overflow := w.SetFromBig(scaled); overflow {
		return uint256.Int{}, fmt.Errorf("parse %q: exceeds 256 bits", s)
	}
	return w, nil
}

// Load reads a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadAndRun loads a scenario YAML file and its policy, and runs it.
// policyPath overrides the scenario's own policy reference.
func LoadAndRun(path, policyPath string) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	if policyPath == "" && s.Policy != "" {
		policyPath = s.Policy
		if !filepath.IsAbs(policyPath) {
			policyPath = filepath.Join(filepath.Dir(path), policyPath)
		}
	}

	pol, hash, err := policy.LoadConfigWithHash(policyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	program, err := pol.Build()
	if err != nil {
		return nil, fmt.Errorf("build policy: %w", err)
	}

	result := Run(s, program)
	result.File = path
	result.PolicyHash = hash

	return result, nil
}
