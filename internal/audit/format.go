package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return "No entries found.\n"
	}

	var b strings.Builder

	first := result.Summary.FirstTimestamp
	last := result.Summary.LastTimestamp
	header := "Audit"
	if result.Policy != "" {
		header = "Policy: " + result.Policy
	}
	fmt.Fprintf(&b, "%s | %s–%s UTC\n", header, formatDateRange(first), formatTimeOnly(last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		b.WriteString(FormatEntry(e))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatEntry renders one entry as a timeline row.
func FormatEntry(e AuditEntry) string {
	outcome := strings.ToUpper(e.Decision)
	if outcome == "" {
		outcome = "-"
	}
	return fmt.Sprintf("%-10s %-13s %-24s %3d  %-14s %s\n",
		formatTimeOnly(e.Timestamp), e.Type, truncate(e.Policy, 24), e.Length,
		truncate(e.ParamsHash, 14), outcome)
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%d %s", s.ByType[t], t))
	}

	out := fmt.Sprintf("Summary: %s", strings.Join(parts, ", "))
	if s.AllowCount > 0 || s.DenyCount > 0 {
		out += fmt.Sprintf(" | %d allow, %d deny", s.AllowCount, s.DenyCount)
	}
	return out + "\n"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
