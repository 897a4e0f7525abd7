package params

import (
	"fmt"
	"math/big"
	"strings"
)

// Program is the flat, index-addressed array of words attached to a
// permission. IF_ELSE and logic nodes refer to other elements by position,
// so order is significant.
type Program []Word

// EncodeProgram encodes params element by element, preserving order. Jump
// targets are taken as given; see Check for graph validation.
func EncodeProgram(ps []Param) (Program, error) {
	out := make(Program, len(ps))
	for i, p := range ps {
		w, err := p.Word()
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// DecodeProgram is the inverse of EncodeProgram.
func DecodeProgram(prog Program) ([]Param, error) {
	out := make([]Param, len(prog))
	for i := range prog {
		p, err := DecodeWord(&prog[i])
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Hex renders each word as a zero-padded 32-byte hex string.
func (p Program) Hex() []string {
	out := make([]string, len(p))
	for i := range p {
		out[i] = WordHex(&p[i])
	}
	return out
}

// Decimal renders each word in decimal, the form block explorers show for
// uint256[] arguments.
func (p Program) Decimal() []string {
	out := make([]string, len(p))
	for i := range p {
		out[i] = p[i].Dec()
	}
	return out
}

// WordHex renders w as 0x followed by 64 hex digits.
func WordHex(w *Word) string {
	b := w.Bytes32()
	return fmt.Sprintf("0x%x", b[:])
}

// ParseWord accepts a 0x-prefixed hex or a decimal string of at most 256
// bits. '_' separators are ignored.
func ParseWord(s string) (Word, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	b := new(big.Int)
	var ok bool
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		_, ok = b.SetString(raw[2:], 16)
	} else {
		_, ok = b.SetString(raw, 10)
	}
	if !ok || b.Sign() < 0 {
		return Word{}, fmt.Errorf("parse word %q: not an unsigned integer", s)
	}
	var w Word
	if overflow := w.SetFromBig(b); overflow {
		return Word{}, fmt.Errorf("parse word %q: exceeds 256 bits", s)
	}
	return w, nil
}

// ParseProgram parses a list of words as produced by Hex or Decimal.
func ParseProgram(words []string) (Program, error) {
	out := make(Program, len(words))
	for i, s := range words {
		w, err := ParseWord(s)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}
