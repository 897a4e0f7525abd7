package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter holds filtering criteria for replay. Empty fields match
// everything.
type ReplayFilter struct {
	Policy string
	Type   string
	From   time.Time // zero value = no lower bound
	To     time.Time // zero value = no upper bound
}

// ReplaySummary holds per-type counts and metadata for replayed entries.
type ReplaySummary struct {
	Total          int            `json:"total"`
	ByType         map[string]int `json:"by_type"`
	AllowCount     int            `json:"allow_count"`
	DenyCount      int            `json:"deny_count"`
	FirstTimestamp string         `json:"first_timestamp"`
	LastTimestamp  string         `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and summary.
type ReplayResult struct {
	Policy  string        `json:"policy,omitempty"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		Policy:  filter.Policy,
		Summary: ReplaySummary{ByType: map[string]int{}},
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		if filter.Policy != "" && entry.Policy != filter.Policy {
			continue
		}
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}

		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue // skip unparseable timestamps
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

// Tail returns the last n entries of the log, oldest first.
func Tail(path string, n int) ([]AuditEntry, error) {
	result, err := Replay(path, ReplayFilter{})
	if err != nil {
		return nil, err
	}
	entries := result.Entries
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

func updateSummary(s *ReplaySummary, entry AuditEntry) {
	s.Total++
	s.ByType[entry.Type]++

	switch strings.ToLower(entry.Decision) {
	case "allow":
		s.AllowCount++
	case "deny":
		s.DenyCount++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
