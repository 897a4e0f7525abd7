package params

import (
	"fmt"
)

// Param is one node of a permission program: where the operand comes from,
// how it is compared, and what it is compared against.
type Param struct {
	ID    ArgumentID `json:"id"`
	Op    Op         `json:"op"`
	Value Value      `json:"value"`
}

// NewParam is a convenience constructor mirroring the Param(id, op, value)
// form used in vote scripts.
func NewParam(id ArgumentID, op Op, value Value) Param {
	return Param{ID: id, Op: op, Value: value}
}

// Word encodes the parameter into its 256-bit form.
func (p Param) Word() (Word, error) {
	return EncodeWord(p.ID, p.Op, p.Value)
}

// Validate checks the fields individually. It does not look at jump targets;
// use Check for whole-program validation.
func (p Param) Validate() error {
	if !p.ID.Defined() {
		return fmt.Errorf("%w: %d is reserved", ErrInvalidSelector, uint8(p.ID))
	}
	if !p.Op.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOperator, uint8(p.Op))
	}
	return nil
}

// IfElseTargets returns the packed jump targets of an IF_ELSE node.
func (p Param) IfElseTargets() (condition, success, failure uint32) {
	return DecodeIfElse(p.Value)
}
