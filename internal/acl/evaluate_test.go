package acl

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
)

var (
	ldoToken  = common.HexToAddress("0x5A98FcBEA516Cf06857215779Fd812CA3beF1B32")
	daiToken  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	usdcToken = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	recipient = common.HexToAddress("0x3e40D73EB977Dc6a537aF587D48316feE66E9C8c")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func limitsProgram(tb testing.TB) []params.Param {
	tb.Helper()
	ps, err := params.AmountLimits(0, 2, []params.TokenLimit{
		{Token: ldoToken, Limit: params.ValueFromBig(ether(5_000_000))},
		{Token: daiToken, Limit: params.ValueFromBig(ether(100_000))},
	}, nil)
	if err != nil {
		tb.Fatal(err)
	}
	return ps
}

func call(token common.Address, amount *big.Int) []uint256.Int {
	how := make([]uint256.Int, 3)
	how[0].SetBytes20(token[:])
	how[1].SetBytes20(recipient[:])
	how[2].SetFromBig(amount)
	return how
}

func mustEval(t *testing.T, program []params.Param, how []uint256.Int, env Env) Result {
	t.Helper()
	res, err := Evaluate(program, how, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestEmptyProgramAllows(t *testing.T) {
	res := mustEval(t, nil, nil, Env{})
	if res.Decision != model.Allow {
		t.Errorf("expected allow, got %s", res.Decision)
	}
	if len(res.Trace) != 0 {
		t.Errorf("expected empty trace, got %v", res.Trace)
	}
}

func TestAmountLimits(t *testing.T) {
	program := limitsProgram(t)
	over := new(big.Int).Add(ether(5_000_000), big.NewInt(1))

	cases := []struct {
		name  string
		how   []uint256.Int
		allow bool
	}{
		{"ldo at limit", call(ldoToken, ether(5_000_000)), true},
		{"ldo one wei over", call(ldoToken, over), false},
		{"dai below limit", call(daiToken, ether(1)), true},
		{"dai over limit", call(daiToken, ether(100_001)), false},
		{"unlisted token", call(usdcToken, big.NewInt(1)), false},
		{"missing amount", call(ldoToken, big.NewInt(1))[:1], false},
		{"no arguments", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := mustEval(t, program, tc.how, Env{})
			want := model.DecisionFromBool(tc.allow)
			if res.Decision != want {
				t.Errorf("expected %s, got %s (trace %v)", want, res.Decision, res.Trace)
			}
		})
	}
}

func TestArgumentTruncatedTo240Bits(t *testing.T) {
	program := []params.Param{params.Compare(0, params.OpEq, params.ValueFromUint64(5))}
	how := make([]uint256.Int, 1)
	how[0].Lsh(uint256.NewInt(1), 240)
	how[0].Or(&how[0], uint256.NewInt(5))

	if res := mustEval(t, program, how, Env{}); res.Decision != model.Allow {
		t.Errorf("expected allow after truncation, got %s", res.Decision)
	}
}

func TestRetOnArgument(t *testing.T) {
	program := []params.Param{{ID: 1, Op: params.OpRet}}
	how := make([]uint256.Int, 2)

	if res := mustEval(t, program, how, Env{}); res.Decision != model.Deny {
		t.Errorf("expected deny for zero argument, got %s", res.Decision)
	}
	how[1].SetUint64(7)
	if res := mustEval(t, program, how, Env{}); res.Decision != model.Allow {
		t.Errorf("expected allow for non-zero argument, got %s", res.Decision)
	}
}

func TestRetLiteral(t *testing.T) {
	if res := mustEval(t, []params.Param{params.Ret(true)}, nil, Env{}); res.Decision != model.Allow {
		t.Errorf("expected allow, got %s", res.Decision)
	}
	if res := mustEval(t, []params.Param{params.Ret(false)}, nil, Env{}); res.Decision != model.Deny {
		t.Errorf("expected deny, got %s", res.Decision)
	}
}

func TestEnvironmentSelectors(t *testing.T) {
	env := Env{BlockNumber: 19_000_000, Timestamp: 1_700_000_000}

	cases := []struct {
		p     params.Param
		allow bool
	}{
		{params.Compare(params.BlockNumberParamID, params.OpGte, params.ValueFromUint64(19_000_000)), true},
		{params.Compare(params.BlockNumberParamID, params.OpGt, params.ValueFromUint64(19_000_000)), false},
		{params.Compare(params.TimestampParamID, params.OpLt, params.ValueFromUint64(1_800_000_000)), true},
		{params.Compare(params.TimestampParamID, params.OpNeq, params.ValueFromUint64(1_700_000_000)), false},
		{params.Compare(params.ParamValueParamID, params.OpEq, params.ValueFromUint64(3)), true},
	}
	for i, tc := range cases {
		res := mustEval(t, []params.Param{tc.p}, nil, env)
		if want := model.DecisionFromBool(tc.allow); res.Decision != want {
			t.Errorf("case %d (%s): expected %s, got %s", i, params.Describe(tc.p), want, res.Decision)
		}
	}
}

func TestOracle(t *testing.T) {
	oracleAddr := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	program := []params.Param{params.Compare(params.OracleParamID, params.OpEq, params.ValueFromAddress(oracleAddr))}

	var gotAddr common.Address
	allowAll := OracleFunc(func(addr common.Address, how []uint256.Int) bool {
		gotAddr = addr
		return true
	})
	if res := mustEval(t, program, nil, Env{Oracle: allowAll}); res.Decision != model.Allow {
		t.Errorf("expected allow from oracle, got %s", res.Decision)
	}
	if gotAddr != oracleAddr {
		t.Errorf("expected oracle %s, got %s", oracleAddr.Hex(), gotAddr.Hex())
	}

	if res := mustEval(t, program, nil, Env{}); res.Decision != model.Deny {
		t.Errorf("expected deny without oracle, got %s", res.Decision)
	}

	// NEQ against the implicit 1 inverts the oracle's answer.
	program[0].Op = params.OpNeq
	if res := mustEval(t, program, nil, Env{}); res.Decision != model.Allow {
		t.Errorf("expected allow for NEQ with refusing oracle, got %s", res.Decision)
	}
}

func logicNode(t *testing.T, op params.Op, left, right uint64) params.Param {
	t.Helper()
	p, err := params.LogicOp(op, left, right)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func visited(res Result, idx int) bool {
	for _, s := range res.Trace {
		if s.Index == idx {
			return true
		}
	}
	return false
}

func TestLogicOperators(t *testing.T) {
	yes, no := params.Ret(true), params.Ret(false)

	cases := []struct {
		name        string
		op          params.Op
		left, right params.Param
		allow       bool
		rightRuns   bool
	}{
		{"and true true", params.OpAnd, yes, yes, true, true},
		{"and false short-circuits", params.OpAnd, no, yes, false, false},
		{"or true short-circuits", params.OpOr, yes, no, true, false},
		{"or false false", params.OpOr, no, no, false, true},
		{"or false true", params.OpOr, no, yes, true, true},
		{"xor differs", params.OpXor, yes, no, true, true},
		{"xor equal", params.OpXor, yes, yes, false, true},
		{"not", params.OpNot, no, yes, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			program := []params.Param{logicNode(t, tc.op, 1, 2), tc.left, tc.right}
			res := mustEval(t, program, nil, Env{})
			if want := model.DecisionFromBool(tc.allow); res.Decision != want {
				t.Errorf("expected %s, got %s", want, res.Decision)
			}
			if got := visited(res, 2); got != tc.rightRuns {
				t.Errorf("expected right operand visited=%v, got %v", tc.rightRuns, got)
			}
		})
	}
}

func TestNonLogicOperatorUnderLogicSelectorYieldsRight(t *testing.T) {
	v, err := params.EncodeLogicOp(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	program := []params.Param{
		{ID: params.LogicOpParamID, Op: params.OpEq, Value: v},
		params.Ret(false),
		params.Ret(true),
	}
	if res := mustEval(t, program, nil, Env{}); res.Decision != model.Allow {
		t.Errorf("expected allow from right operand, got %s", res.Decision)
	}
}

func TestUndefinedOperatorIsFalse(t *testing.T) {
	program := []params.Param{{ID: params.ParamValueParamID, Op: params.OpNone}}
	if res := mustEval(t, program, nil, Env{}); res.Decision != model.Deny {
		t.Errorf("expected deny for NONE, got %s", res.Decision)
	}
}

func TestJumpPastEndIsFalse(t *testing.T) {
	branch, err := params.IfElse(9, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	program := []params.Param{branch, params.Ret(false), params.Ret(true)}
	res := mustEval(t, program, nil, Env{})
	if res.Decision != model.Allow {
		t.Errorf("expected failure branch to allow, got %s", res.Decision)
	}
	if !visited(res, 9) {
		t.Errorf("expected trace to record the out-of-range jump, got %v", res.Trace)
	}
}

func TestCycleExceedsDepth(t *testing.T) {
	branch, err := params.IfElse(0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Evaluate([]params.Param{branch, params.Ret(true)}, nil, Env{})
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
	if res.Decision != model.Deny {
		t.Errorf("expected deny on error, got %s", res.Decision)
	}
}

// sharedAndChain builds n-1 AND nodes whose operands both point at the next
// node, ending in an allow leaf. Node 0 is visited once, node k 2^k times.
func sharedAndChain(t *testing.T, n int) []params.Param {
	t.Helper()
	program := make([]params.Param, 0, n)
	for i := 0; i < n-1; i++ {
		p, err := params.LogicOp(params.OpAnd, uint64(i+1), uint64(i+1))
		if err != nil {
			t.Fatal(err)
		}
		program = append(program, p)
	}
	return append(program, params.Ret(true))
}

func TestSharedOperandChainHitsStepBudget(t *testing.T) {
	program := sharedAndChain(t, 40)
	if issues := params.Check(program); len(issues) != 0 {
		t.Fatalf("expected well-formed program, got %v", issues)
	}
	res, err := Evaluate(program, nil, Env{})
	if !errors.Is(err, ErrStepsExceeded) {
		t.Fatalf("expected ErrStepsExceeded, got %v", err)
	}
	if res.Decision != model.Deny {
		t.Errorf("expected deny on error, got %s", res.Decision)
	}
	if len(res.Trace) > MaxSteps {
		t.Errorf("expected trace capped at %d, got %d", MaxSteps, len(res.Trace))
	}
}

func TestSharedOperandChainWithinBudget(t *testing.T) {
	// 2^8-1 visits.
	res := mustEval(t, sharedAndChain(t, 8), nil, Env{})
	if res.Decision != model.Allow {
		t.Errorf("expected allow, got %s", res.Decision)
	}
}

func TestTraceOrder(t *testing.T) {
	program := limitsProgram(t)
	res := mustEval(t, program, call(daiToken, ether(1)), Env{})

	var order []int
	for _, s := range res.Trace {
		order = append(order, s.Index)
	}
	// ldo branch fails at node 1, falls through to node 3, dai matches at 4
	// and the amount check at 5 decides.
	want := []int{1, 4, 5, 3, 0}
	if len(order) != len(want) {
		t.Fatalf("expected trace %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected trace %v, got %v", want, order)
		}
	}
}
