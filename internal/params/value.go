package params

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ValueBits is the width of the comparison value inside a parameter word.
const ValueBits = 240

// valueMask clears the top 16 bits of the most significant limb.
const valueMask = 0x0000ffffffffffff

var valueMaskBig = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), ValueBits), big.NewInt(1))

// Value is the uint240 operand of a parameter: a limit, a truncated
// address, or packed jump targets. It is always reduced to 240 bits.
type Value struct {
	u uint256.Int
}

// ValueFromUint64 returns v as a Value.
func ValueFromUint64(v uint64) Value {
	var out Value
	out.u.SetUint64(v)
	return out
}

// ValueFromUint256 truncates u to its low 240 bits.
func ValueFromUint256(u *uint256.Int) Value {
	var out Value
	out.u.Set(u)
	out.u[3] &= valueMask
	return out
}

// ValueFromBig truncates b to its low 240 bits. Negative numbers are taken
// in two's complement, so -1 becomes 2^240-1.
func ValueFromBig(b *big.Int) Value {
	masked := new(big.Int).And(b, valueMaskBig)
	var out Value
	out.u.SetFromBig(masked)
	return out
}

// ValueFromAddress widens a 160-bit address. Addresses always fit.
func ValueFromAddress(addr common.Address) Value {
	var out Value
	out.u.SetBytes20(addr[:])
	return out
}

// ParseValue accepts 0x-prefixed hex (addresses, hashes, raw numbers) or a
// decimal integer, optionally signed and with '_' digit separators. The
// result is truncated to 240 bits.
func ParseValue(s string) (Value, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if raw == "" {
		return Value{}, fmt.Errorf("parse value: empty input")
	}
	neg := false
	if raw[0] == '-' {
		neg = true
		raw = raw[1:]
	}
	b := new(big.Int)
	var ok bool
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		digits := raw[2:]
		if digits == "" {
			digits = "0"
		}
		_, ok = b.SetString(digits, 16)
	} else {
		_, ok = b.SetString(raw, 10)
	}
	if !ok {
		return Value{}, fmt.Errorf("parse value %q: not a hex or decimal integer", s)
	}
	if neg {
		b.Neg(b)
	}
	return ValueFromBig(b), nil
}

// MustParseValue is ParseValue for literals known to be valid.
func MustParseValue(s string) Value {
	v, err := ParseValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Uint256 returns a copy of the value.
func (v Value) Uint256() *uint256.Int {
	return v.u.Clone()
}

// Big returns the value as a big integer.
func (v Value) Big() *big.Int {
	return v.u.ToBig()
}

// Uint64 returns the value and whether it fits in 64 bits.
func (v Value) Uint64() (uint64, bool) {
	return v.u.Uint64(), v.u.IsUint64()
}

func (v Value) IsZero() bool {
	return v.u.IsZero()
}

// Address interprets the low 160 bits as an address. The second result is
// false when higher bits are set.
func (v Value) Address() (common.Address, bool) {
	b := v.u.Bytes32()
	return common.BytesToAddress(b[12:]), v.u.BitLen() <= 160
}

// String renders the value in decimal.
func (v Value) String() string {
	return v.u.Dec()
}

// Hex renders the value as 0x-prefixed hex without leading zeros.
func (v Value) Hex() string {
	return v.u.Hex()
}

func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalText(text []byte) error {
	parsed, err := ParseValue(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
