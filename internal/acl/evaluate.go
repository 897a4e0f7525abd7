package acl

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
)

// MaxDepth bounds how deeply logic nodes may nest before evaluation gives up.
// On chain the same program would run out of gas.
const MaxDepth = 256

// MaxSteps bounds the number of node visits in one evaluation. Logic nodes
// that share an operand visit it once per path, so a short program can
// still demand exponential work. The trace holds at most MaxSteps entries.
const MaxSteps = 10_000

var (
	// ErrDepthExceeded is returned when a program nests logic nodes deeper
	// than MaxDepth, which includes every program whose jumps form a cycle.
	ErrDepthExceeded = errors.New("acl: evaluation depth exceeded")

	// ErrStepsExceeded is returned when an evaluation visits more than
	// MaxSteps nodes.
	ErrStepsExceeded = errors.New("acl: evaluation step budget exceeded")
)

// Oracle answers nodes with the ORACLE selector. addr is the oracle contract
// taken from the node's value; how is the call's argument list.
type Oracle interface {
	CanPerform(addr common.Address, how []uint256.Int) bool
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(addr common.Address, how []uint256.Int) bool

func (f OracleFunc) CanPerform(addr common.Address, how []uint256.Int) bool {
	return f(addr, how)
}

// Env is the block context read by BLOCK_NUMBER, TIMESTAMP and ORACLE nodes.
// A nil Oracle answers false.
type Env struct {
	BlockNumber uint64
	Timestamp   uint64
	Oracle      Oracle
}

// Step records one visited node.
type Step struct {
	Index  int    `json:"index"`
	Depth  int    `json:"depth"`
	Node   string `json:"node"`
	Leaf   bool   `json:"leaf"`
	Result bool   `json:"result"`
}

// Result is the outcome of evaluating a program against one call.
type Result struct {
	Decision model.Decision `json:"decision"`
	Trace    []Step         `json:"trace"`
}

// Reason names the leaf that decided the outcome. Logic nodes are recorded
// after their operands, so the last leaf in the trace is the deciding one.
func (r Result) Reason() string {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].Leaf {
			return r.Trace[i].Node
		}
	}
	return "empty program"
}

// Evaluate runs a permission program the way the ACL contract does when
// checking a parameterized permission. Evaluation starts at node 0. An
// empty program allows.
//
// Rules:
//   - a jump to an index past the end evaluates false
//   - argument selectors read how[id] truncated to 240 bits; a missing
//     argument evaluates false
//   - RET is true when its operand is non-zero
//   - AND and OR short-circuit on the left operand
//   - nesting past MaxDepth or more than MaxSteps visits is an error and denies
func Evaluate(program []params.Param, how []uint256.Int, env Env) (Result, error) {
	if len(program) == 0 {
		return Result{Decision: model.Allow}, nil
	}

	e := &evaluator{program: program, how: how, env: env}
	ok, err := e.eval(0, 0)
	if err != nil {
		return Result{Decision: model.Deny, Trace: e.trace}, err
	}
	return Result{Decision: model.DecisionFromBool(ok), Trace: e.trace}, nil
}

type evaluator struct {
	program []params.Param
	how     []uint256.Int
	env     Env
	trace   []Step
	steps   int
}

func (e *evaluator) eval(idx uint64, depth int) (bool, error) {
	if depth > MaxDepth {
		return false, fmt.Errorf("%w: node %d at depth %d", ErrDepthExceeded, idx, depth)
	}
	e.steps++
	if e.steps > MaxSteps {
		return false, fmt.Errorf("%w: %d visits at node %d", ErrStepsExceeded, MaxSteps, idx)
	}
	if idx >= uint64(len(e.program)) {
		e.record(int(idx), depth, "out of range", false)
		return false, nil
	}

	p := e.program[idx]
	if p.ID == params.LogicOpParamID {
		ok, err := e.logic(p, depth)
		if err != nil {
			return false, err
		}
		e.trace = append(e.trace, Step{Index: int(idx), Depth: depth, Node: params.Describe(p), Result: ok})
		return ok, nil
	}

	var value uint256.Int
	comparedTo := p.Value.Uint256()

	switch p.ID {
	case params.OracleParamID:
		if e.oracle(p.Value) {
			value.SetOne()
		}
		comparedTo = uint256.NewInt(1)
	case params.BlockNumberParamID:
		value.SetUint64(e.env.BlockNumber)
	case params.TimestampParamID:
		value.SetUint64(e.env.Timestamp)
	case params.ParamValueParamID:
		value.Set(comparedTo)
	default:
		if int(p.ID) >= len(e.how) {
			e.record(int(idx), depth, params.Describe(p), false)
			return false, nil
		}
		value = *params.ValueFromUint256(&e.how[p.ID]).Uint256()
	}

	var ok bool
	if p.Op == params.OpRet {
		ok = !value.IsZero()
	} else {
		ok = compare(&value, p.Op, comparedTo)
	}
	e.record(int(idx), depth, params.Describe(p), ok)
	return ok, nil
}

func (e *evaluator) logic(p params.Param, depth int) (bool, error) {
	c, s, f := params.DecodeIfElse(p.Value)

	if p.Op == params.OpIfElse {
		cond, err := e.eval(uint64(c), depth+1)
		if err != nil {
			return false, err
		}
		if cond {
			return e.eval(uint64(s), depth+1)
		}
		return e.eval(uint64(f), depth+1)
	}

	r1, err := e.eval(uint64(c), depth+1)
	if err != nil {
		return false, err
	}
	if p.Op == params.OpNot {
		return !r1, nil
	}
	if r1 && p.Op == params.OpOr {
		return true, nil
	}
	if !r1 && p.Op == params.OpAnd {
		return false, nil
	}

	r2, err := e.eval(uint64(s), depth+1)
	if err != nil {
		return false, err
	}
	if p.Op == params.OpXor {
		return r1 != r2, nil
	}
	// AND and OR reach here only when r2 decides. Any other operator under
	// LOGIC_OP also yields r2, as the contract does.
	return r2, nil
}

func (e *evaluator) oracle(v params.Value) bool {
	if e.env.Oracle == nil {
		return false
	}
	addr, _ := v.Address()
	return e.env.Oracle.CanPerform(addr, e.how)
}

func (e *evaluator) record(idx, depth int, node string, ok bool) {
	e.trace = append(e.trace, Step{Index: idx, Depth: depth, Node: node, Leaf: true, Result: ok})
}

func compare(a *uint256.Int, op params.Op, b *uint256.Int) bool {
	switch op {
	case params.OpEq:
		return a.Eq(b)
	case params.OpNeq:
		return !a.Eq(b)
	case params.OpGt:
		return a.Gt(b)
	case params.OpLt:
		return a.Lt(b)
	case params.OpGte:
		return !a.Lt(b)
	case params.OpLte:
		return !a.Gt(b)
	}
	return false
}
