package params

import (
	"fmt"
)

// Issue is one well-formedness problem found by Check.
type Issue struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("#%d: %s", i.Index, i.Message)
}

// Check inspects a program for problems the encoder deliberately ignores:
// undefined selectors, logic nodes without the LOGIC_OP selector, jump
// targets outside the program, unreachable nodes and cycles. An empty
// result means every path from node 0 terminates in a leaf.
//
// Check is advisory. EncodeProgram never calls it.
func Check(ps []Param) []Issue {
	var issues []Issue
	add := func(i int, format string, args ...any) {
		issues = append(issues, Issue{Index: i, Message: fmt.Sprintf(format, args...)})
	}

	n := len(ps)
	edges := make([][]int, n)
	for i, p := range ps {
		if !p.ID.Defined() {
			add(i, "selector %d has no defined meaning", uint8(p.ID))
		}
		if !p.Op.Valid() {
			add(i, "operator %d is not defined", uint8(p.Op))
			continue
		}

		switch {
		case p.Op.IsLogic() && p.ID != LogicOpParamID:
			add(i, "%s requires selector LOGIC_OP, got %s", p.Op, p.ID)
		case !p.Op.IsLogic() && p.ID == LogicOpParamID:
			add(i, "selector LOGIC_OP used with non-logic operator %s", p.Op)
		case p.Op == OpNone:
			add(i, "operator NONE always evaluates to false")
		}
		if p.ID != LogicOpParamID || !p.Op.IsLogic() {
			continue
		}

		c, s, f := DecodeIfElse(p.Value)
		if p.Value.u.BitLen() > 3*indexBits {
			add(i, "jump payload has bits set above bit 95")
		}
		var targets []uint32
		switch p.Op {
		case OpIfElse:
			targets = []uint32{c, s, f}
		case OpNot:
			targets = []uint32{c}
		default:
			targets = []uint32{c, s}
		}
		for _, t := range targets {
			if int64(t) >= int64(n) {
				add(i, "jump target %d is outside the program (len %d)", t, n)
				continue
			}
			edges[i] = append(edges[i], int(t))
		}
	}
	if n == 0 {
		return issues
	}

	// Depth-first walk from the entry node: gray nodes are on the current
	// path, so reaching one again is a cycle.
	const (
		white = iota
		gray
		black
	)
	color := make([]int, n)
	var visit func(i int)
	visit = func(i int) {
		color[i] = gray
		for _, t := range edges[i] {
			switch color[t] {
			case gray:
				add(i, "jump to %d forms a cycle", t)
			case white:
				visit(t)
			}
		}
		color[i] = black
	}
	visit(0)

	for i, c := range color {
		if c == white {
			add(i, "node is unreachable from 0")
		}
	}
	return issues
}
