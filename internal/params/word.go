package params

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Word is one 256-bit element of an encoded permission program:
//
//	[ id: 8 bits ][ op: 8 bits ][ value: 240 bits ]
type Word = uint256.Int

const (
	idShift = 248
	opShift = 240

	indexBits = 32
	indexMask = math.MaxUint32
)

// EncodeWord packs a selector, an operator and a value into one word. The
// value is truncated to 240 bits; the operator must be a defined tag.
// Any selector is packed as given, including the undefined reserved ids 202
// and 206-255; use Param.Validate or ParseArgumentID to reject those.
func EncodeWord(id ArgumentID, op Op, value Value) (Word, error) {
	if !op.Valid() {
		return Word{}, fmt.Errorf("%w: %d", ErrInvalidOperator, uint8(op))
	}

	var w, field Word
	w.Set(&value.u)
	w[3] &= valueMask

	field.SetUint64(uint64(id))
	field.Lsh(&field, idShift)
	w.Or(&w, &field)

	field.SetUint64(uint64(op))
	field.Lsh(&field, opShift)
	w.Or(&w, &field)

	return w, nil
}

// DecodeWord splits a word back into its parameter fields. Words from
// untrusted sources may carry operator bytes with no defined tag; those fail
// with ErrUnknownOperator.
func DecodeWord(w *Word) (Param, error) {
	var field Word
	field.Rsh(w, idShift)
	id := ArgumentID(field.Uint64() & 0xff)

	field.Rsh(w, opShift)
	op := Op(field.Uint64() & 0xff)
	if !op.Valid() {
		return Param{}, fmt.Errorf("%w: %d", ErrUnknownOperator, uint8(op))
	}

	return Param{ID: id, Op: op, Value: ValueFromUint256(w)}, nil
}

// EncodeIfElse packs three jump targets into an IF_ELSE value:
// condition in bits 0-31, success in bits 32-63, failure in bits 64-95.
func EncodeIfElse(condition, success, failure uint64) (Value, error) {
	for _, idx := range [...]struct {
		name string
		v    uint64
	}{{"condition", condition}, {"success", success}, {"failure", failure}} {
		if idx.v > indexMask {
			return Value{}, fmt.Errorf("%w: %s index %d does not fit 32 bits", ErrIndexOutOfRange, idx.name, idx.v)
		}
	}

	var v, field uint256.Int
	v.SetUint64(condition)
	field.SetUint64(success)
	field.Lsh(&field, indexBits)
	v.Or(&v, &field)
	field.SetUint64(failure)
	field.Lsh(&field, 2*indexBits)
	v.Or(&v, &field)

	return ValueFromUint256(&v), nil
}

// EncodeLogicOp packs the two operands of NOT, AND, OR and XOR nodes. NOT
// only reads left.
func EncodeLogicOp(left, right uint64) (Value, error) {
	return EncodeIfElse(left, right, 0)
}

// DecodeIfElse extracts the three jump targets from a value. Any value can be
// decoded; the result is only meaningful for values built by EncodeIfElse.
func DecodeIfElse(v Value) (condition, success, failure uint32) {
	var field uint256.Int
	condition = uint32(v.u.Uint64() & indexMask)
	field.Rsh(&v.u, indexBits)
	success = uint32(field.Uint64() & indexMask)
	field.Rsh(&v.u, 2*indexBits)
	failure = uint32(field.Uint64() & indexMask)
	return condition, success, failure
}
