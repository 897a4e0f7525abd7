package paramdiff

import (
	"fmt"

	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// NodeChange represents a program node addition, removal, or modification.
// Nodes are compared by position, since jump targets refer to positions.
type NodeChange struct {
	Type    string `json:"type"` // "added", "removed", "changed"
	Index   int    `json:"index"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
	OldWord string `json:"old_word,omitempty"`
	NewWord string `json:"new_word,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// DiffResult holds the comparison of two programs.
type DiffResult struct {
	OldPath     string       `json:"old_path"`
	NewPath     string       `json:"new_path"`
	Changes     []Change     `json:"changes"`
	NodeChanges []NodeChange `json:"node_changes"`
	HasChanges  bool         `json:"has_changes"`
}

// Diff compares two programs node by node.
func Diff(old, new []params.Param) *DiffResult {
	r := &DiffResult{}
	diffNodes(r, old, new)
	r.HasChanges = len(r.Changes) > 0 || len(r.NodeChanges) > 0
	return r
}

// DiffPolicies compares the grant targets and compiled programs of two
// policies.
func DiffPolicies(old, new *policy.Policy) (*DiffResult, error) {
	oldProg, err := old.Build()
	if err != nil {
		return nil, fmt.Errorf("build old policy: %w", err)
	}
	newProg, err := new.Build()
	if err != nil {
		return nil, fmt.Errorf("build new policy: %w", err)
	}

	r := &DiffResult{}
	diffString(r, "name", old.Name, new.Name)
	diffString(r, "grant.entity", old.Grant.Entity, new.Grant.Entity)
	diffString(r, "grant.app", old.Grant.App, new.Grant.App)
	diffString(r, "grant.role", old.Grant.Role, new.Grant.Role)
	if len(oldProg) != len(newProg) {
		r.Changes = append(r.Changes, Change{
			Field: "length",
			Old:   fmt.Sprintf("%d", len(oldProg)),
			New:   fmt.Sprintf("%d", len(newProg)),
		})
	}

	diffNodes(r, oldProg, newProg)
	r.HasChanges = len(r.Changes) > 0 || len(r.NodeChanges) > 0
	return r, nil
}

func diffString(r *DiffResult, field, old, new string) {
	if old != new {
		r.Changes = append(r.Changes, Change{Field: field, Old: old, New: new})
	}
}

func wordHex(p params.Param) string {
	w, err := p.Word()
	if err != nil {
		return "invalid: " + err.Error()
	}
	return params.WordHex(&w)
}

func diffNodes(r *DiffResult, old, new []params.Param) {
	n := len(old)
	if len(new) > n {
		n = len(new)
	}

	for i := 0; i < n; i++ {
		switch {
		case i >= len(old):
			r.NodeChanges = append(r.NodeChanges, NodeChange{
				Type: "added", Index: i,
				New: params.Describe(new[i]), NewWord: wordHex(new[i]),
			})
		case i >= len(new):
			r.NodeChanges = append(r.NodeChanges, NodeChange{
				Type: "removed", Index: i,
				Old: params.Describe(old[i]), OldWord: wordHex(old[i]),
			})
		case old[i] != new[i]:
			r.NodeChanges = append(r.NodeChanges, NodeChange{
				Type: "changed", Index: i,
				Old: params.Describe(old[i]), OldWord: wordHex(old[i]),
				New: params.Describe(new[i]), NewWord: wordHex(new[i]),
				Comment: limitComment(old[i], new[i]),
			})
		}
	}
}

// limitComment classifies a changed bound on the same operand and
// operator. Lowering an upper bound or raising a lower bound is stricter.
func limitComment(old, new params.Param) string {
	if old.ID != new.ID || old.Op != new.Op || old.ID == params.LogicOpParamID {
		return ""
	}
	cmp := new.Value.Big().Cmp(old.Value.Big())
	switch old.Op {
	case params.OpLt, params.OpLte:
		if cmp < 0 {
			return "stricter"
		}
		return "looser"
	case params.OpGt, params.OpGte:
		if cmp > 0 {
			return "stricter"
		}
		return "looser"
	}
	return ""
}
