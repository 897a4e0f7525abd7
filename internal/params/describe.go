package params

import (
	"fmt"
)

// Describe renders a parameter the way vote scripts annotate them, e.g.
// "if (1) then (2) else (3)" or "arg[2] <= 1000".
func Describe(p Param) string {
	switch {
	case p.ID == LogicOpParamID && p.Op == OpIfElse:
		c, s, f := DecodeIfElse(p.Value)
		return fmt.Sprintf("if (%d) then (%d) else (%d)", c, s, f)
	case p.ID == LogicOpParamID && p.Op == OpNot:
		l, _, _ := DecodeIfElse(p.Value)
		return fmt.Sprintf("not (%d)", l)
	case p.ID == LogicOpParamID && p.Op.IsLogic():
		l, r, _ := DecodeIfElse(p.Value)
		return fmt.Sprintf("(%d) %s (%d)", l, p.Op, r)
	case p.Op == OpRet && p.ID == ParamValueParamID:
		if p.Value.IsZero() {
			return "return false"
		}
		return "return true"
	case p.Op == OpRet:
		return fmt.Sprintf("return %s > 0", operand(p.ID))
	}
	return fmt.Sprintf("%s %s %s", operand(p.ID), p.Op.Symbol(), formatValue(p.Value))
}

func operand(id ArgumentID) string {
	switch {
	case id.IsArgument():
		return fmt.Sprintf("arg[%d]", uint8(id))
	case id == BlockNumberParamID:
		return "block.number"
	case id == TimestampParamID:
		return "block.timestamp"
	case id == OracleParamID:
		return "oracle"
	}
	return id.String()
}

// formatValue prints small numbers in decimal and address-sized ones as a
// checksummed address.
func formatValue(v Value) string {
	if _, small := v.Uint64(); small {
		return v.String()
	}
	if addr, ok := v.Address(); ok && v.u.BitLen() > 128 {
		return addr.Hex()
	}
	return v.String()
}
