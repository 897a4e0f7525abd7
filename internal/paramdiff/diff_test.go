package paramdiff

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

func examplePolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.Parse([]byte(policy.ExampleYAML()))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func build(t *testing.T, p *policy.Policy) []params.Param {
	t.Helper()
	ps, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}
	return ps
}

func TestIdenticalProgramsNoChanges(t *testing.T) {
	a := build(t, examplePolicy(t))
	b := build(t, examplePolicy(t))

	r := Diff(a, b)
	if r.HasChanges {
		t.Errorf("expected no changes, got %d node changes", len(r.NodeChanges))
	}
}

func TestLoweredLimitIsStricter(t *testing.T) {
	oldP, newP := examplePolicy(t), examplePolicy(t)
	newP.AmountLimits.Limits[2].Limit = "50_000"

	r, err := DiffPolicies(oldP, newP)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.NodeChanges) != 1 {
		t.Fatalf("expected 1 node change, got %+v", r.NodeChanges)
	}
	nc := r.NodeChanges[0]
	if nc.Type != "changed" || nc.Index != 8 {
		t.Errorf("expected changed #8, got %s #%d", nc.Type, nc.Index)
	}
	if nc.Comment != "stricter" {
		t.Errorf("expected 'stricter', got %q", nc.Comment)
	}
	if !strings.HasPrefix(nc.NewWord, "0x0206") {
		t.Errorf("expected LTE word on arg 2, got %s", nc.NewWord)
	}
}

func TestRaisedLowerBoundIsStricter(t *testing.T) {
	old := []params.Param{params.Compare(params.TimestampParamID, params.OpGte, params.ValueFromUint64(100))}
	new := []params.Param{params.Compare(params.TimestampParamID, params.OpGte, params.ValueFromUint64(200))}
	r := Diff(old, new)
	if len(r.NodeChanges) != 1 || r.NodeChanges[0].Comment != "stricter" {
		t.Errorf("expected stricter change, got %+v", r.NodeChanges)
	}

	r = Diff(new, old)
	if len(r.NodeChanges) != 1 || r.NodeChanges[0].Comment != "looser" {
		t.Errorf("expected looser change, got %+v", r.NodeChanges)
	}
}

func TestAddedTokenBranch(t *testing.T) {
	oldP, newP := examplePolicy(t), examplePolicy(t)
	newP.AmountLimits.Limits = append(newP.AmountLimits.Limits, policy.Limit{
		Symbol: "USDC", Token: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Limit: "100_000", Decimals: 6,
	})

	r, err := DiffPolicies(oldP, newP)
	if err != nil {
		t.Fatal(err)
	}

	var added, changed int
	for _, nc := range r.NodeChanges {
		switch nc.Type {
		case "added":
			added++
		case "changed":
			changed++
		}
	}
	// old terminal at #9 becomes the USDC branch, three nodes appended
	if added != 3 || changed != 1 {
		t.Errorf("expected 3 added and 1 changed, got %d and %d", added, changed)
	}

	found := false
	for _, c := range r.Changes {
		if c.Field == "length" {
			found = true
			if c.Old != "10" || c.New != "13" {
				t.Errorf("expected 10→13, got %s→%s", c.Old, c.New)
			}
		}
	}
	if !found {
		t.Error("length change not found")
	}
}

func TestRemovedNodes(t *testing.T) {
	old := []params.Param{params.Ret(true), params.Ret(false)}
	r := Diff(old, old[:1])
	if len(r.NodeChanges) != 1 || r.NodeChanges[0].Type != "removed" || r.NodeChanges[0].Index != 1 {
		t.Errorf("expected removed #1, got %+v", r.NodeChanges)
	}
}

func TestGrantChange(t *testing.T) {
	oldP, newP := examplePolicy(t), examplePolicy(t)
	newP.Grant.Role = "CHANGE_PERIOD_ROLE"

	r, err := DiffPolicies(oldP, newP)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Changes) != 1 || r.Changes[0].Field != "grant.role" {
		t.Errorf("expected grant.role change, got %+v", r.Changes)
	}
	if len(r.NodeChanges) != 0 {
		t.Errorf("expected no node changes, got %+v", r.NodeChanges)
	}
}

func TestDiffPoliciesBuildError(t *testing.T) {
	if _, err := DiffPolicies(&policy.Policy{}, examplePolicy(t)); err == nil {
		t.Error("expected error for empty old policy")
	}
}

func TestFormatText(t *testing.T) {
	old := []params.Param{params.Compare(2, params.OpLte, params.ValueFromUint64(1000)), params.Ret(false)}
	new := []params.Param{params.Compare(2, params.OpLte, params.ValueFromUint64(500))}

	r := Diff(old, new)
	r.OldPath, r.NewPath = "before.yaml", "after.yaml"
	out := FormatText(r)

	for _, want := range []string{
		"Program diff: before.yaml → after.yaml",
		"~ #0 arg[2] <= 1000 → arg[2] <= 500  (stricter)",
		"- #1 return false",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	empty := FormatText(Diff(old, old))
	if !strings.Contains(empty, "No changes detected.") {
		t.Errorf("expected no-change message, got %s", empty)
	}
}

func TestFormatJSON(t *testing.T) {
	r := Diff([]params.Param{params.Ret(true)}, nil)
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	var back DiffResult
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !back.HasChanges || len(back.NodeChanges) != 1 {
		t.Errorf("unexpected round trip %+v", back)
	}
}
