package params

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Ret returns the terminal node that makes the program evaluate to allow
// (true) or deny (false).
func Ret(allow bool) Param {
	if allow {
		return Param{ID: ParamValueParamID, Op: OpRet, Value: ValueFromUint64(1)}
	}
	return Param{ID: ParamValueParamID, Op: OpRet, Value: ValueFromUint64(0)}
}

// Compare returns a leaf comparing call argument arg against v.
func Compare(arg ArgumentID, op Op, v Value) Param {
	return Param{ID: arg, Op: op, Value: v}
}

// IfElse returns an IF_ELSE node jumping to success or failure depending on
// the result of the node at condition.
func IfElse(condition, success, failure uint64) (Param, error) {
	v, err := EncodeIfElse(condition, success, failure)
	if err != nil {
		return Param{}, err
	}
	return Param{ID: LogicOpParamID, Op: OpIfElse, Value: v}, nil
}

// LogicOp returns a NOT, AND, OR or XOR node over the nodes at left and right.
func LogicOp(op Op, left, right uint64) (Param, error) {
	switch op {
	case OpNot, OpAnd, OpOr, OpXor:
	default:
		return Param{}, fmt.Errorf("%w: %s is not a binary logic operator", ErrInvalidOperator, op)
	}
	v, err := EncodeLogicOp(left, right)
	if err != nil {
		return Param{}, err
	}
	return Param{ID: LogicOpParamID, Op: op, Value: v}, nil
}

// TokenLimit is one branch of an amount-limit program: payments in Token may
// not exceed Limit.
type TokenLimit struct {
	Token common.Address
	Limit Value
}

// AmountLimits builds the canonical per-token ceiling chain:
//
//	i+0: if (i+1) then (i+2) else (i+3)
//	i+1: arg[tokenArg] == token
//	i+2: arg[amountArg] <= limit
//
// repeated for each limit and closed by fallback, or by RET false when
// fallback is nil. The result has 3*len(limits)+1 nodes.
func AmountLimits(tokenArg, amountArg ArgumentID, limits []TokenLimit, fallback *Param) ([]Param, error) {
	if !tokenArg.IsArgument() {
		return nil, fmt.Errorf("%w: token selector %s is not a call argument", ErrInvalidSelector, tokenArg)
	}
	if !amountArg.IsArgument() {
		return nil, fmt.Errorf("%w: amount selector %s is not a call argument", ErrInvalidSelector, amountArg)
	}

	out := make([]Param, 0, 3*len(limits)+1)
	for _, l := range limits {
		base := uint64(len(out))
		branch, err := IfElse(base+1, base+2, base+3)
		if err != nil {
			return nil, err
		}
		out = append(out,
			branch,
			Compare(tokenArg, OpEq, ValueFromAddress(l.Token)),
			Compare(amountArg, OpLte, l.Limit),
		)
	}

	last := Ret(false)
	if fallback != nil {
		last = *fallback
	}
	return append(out, last), nil
}
