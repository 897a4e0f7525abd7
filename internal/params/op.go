package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is the comparison or logic operator of a parameter. The numeric values
// are fixed by the deployed ACL contract and must not be renumbered.
type Op uint8

const (
	OpNone Op = iota
	OpEq
	OpNeq
	OpGt
	OpLt
	OpGte
	OpLte
	OpRet
	OpNot
	OpAnd
	OpOr
	OpXor
	OpIfElse
)

// MaxOp is the highest defined operator tag.
const MaxOp = OpIfElse

var opNames = [...]string{
	OpNone:   "NONE",
	OpEq:     "EQ",
	OpNeq:    "NEQ",
	OpGt:     "GT",
	OpLt:     "LT",
	OpGte:    "GTE",
	OpLte:    "LTE",
	OpRet:    "RET",
	OpNot:    "NOT",
	OpAnd:    "AND",
	OpOr:     "OR",
	OpXor:    "XOR",
	OpIfElse: "IF_ELSE",
}

// Valid reports whether o is a defined operator tag.
func (o Op) Valid() bool {
	return o <= MaxOp
}

// IsLogic reports whether o is evaluated on other parameters rather than on
// an argument value.
func (o Op) IsLogic() bool {
	switch o {
	case OpNot, OpAnd, OpOr, OpXor, OpIfElse:
		return true
	}
	return false
}

// IsComparison reports whether o compares an argument against the value.
func (o Op) IsComparison() bool {
	return o >= OpEq && o <= OpLte
}

func (o Op) String() string {
	if o.Valid() {
		return opNames[o]
	}
	return fmt.Sprintf("OP(%d)", uint8(o))
}

// Symbol returns the infix form used in previews ("==", "<=", ...).
func (o Op) Symbol() string {
	switch o {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	}
	return o.String()
}

// ParseOp accepts an operator name (case-insensitive, "IF-ELSE" and
// "IFELSE" are tolerated) or a decimal tag.
func ParseOp(s string) (Op, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return OpFromInt(n)
	}
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	if name == "IFELSE" {
		name = "IF_ELSE"
	}
	for i, n := range opNames {
		if n == name {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// OpFromInt converts an untyped tag, rejecting anything that is not a
// defined operator.
func OpFromInt(n int) (Op, error) {
	if n < 0 || n > int(MaxOp) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOperator, n)
	}
	return Op(n), nil
}

func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Op) UnmarshalText(text []byte) error {
	v, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
