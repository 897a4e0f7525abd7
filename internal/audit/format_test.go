package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Policy: "payments"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "Policy: payments | 2025-01-15 14:00:00–14:00:10 UTC") {
		t.Errorf("expected header with policy and range, got:\n%s", out)
	}
	if !strings.Contains(out, "Summary: 1 encode, 2 evaluate, 1 grant, 1 store_put | 1 allow, 1 deny") {
		t.Errorf("unexpected summary, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Type: TypeEvaluate})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)
	if !strings.Contains(out, "14:00:02") || !strings.Contains(out, "ALLOW") {
		t.Errorf("expected allow row at 14:00:02, got:\n%s", out)
	}
	if !strings.Contains(out, "DENY") {
		t.Errorf("expected deny row, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "Audit |") {
		t.Errorf("expected generic header without policy filter, got:\n%s", out)
	}
}

func TestFormatEntryWithoutDecision(t *testing.T) {
	row := FormatEntry(AuditEntry{Timestamp: "2025-01-15T14:00:00.000Z", Type: TypeEncode, Policy: "payments", Length: 10})
	if !strings.HasSuffix(strings.TrimSpace(row), "-") {
		t.Errorf("expected '-' placeholder for missing decision, got %q", row)
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	out := FormatTimeline(&ReplayResult{})
	if out != "No entries found.\n" {
		t.Errorf("unexpected empty output %q", out)
	}
}

func TestFormatJSONRoundTrip(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Policy: "timelock"})
	if err != nil {
		t.Fatal(err)
	}

	out, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}
	var back ReplayResult
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if back.Summary.Total != 1 || len(back.Entries) != 1 {
		t.Errorf("unexpected round trip %+v", back)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("0123456789abcdef", 10); got != "0123456..." {
		t.Errorf("expected truncated, got %q", got)
	}
}
