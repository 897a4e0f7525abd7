package paramdiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Program diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Program diff: %s → %s\n", r.OldPath, r.NewPath)

	if len(r.Changes) > 0 {
		b.WriteString("\n")
		for _, c := range r.Changes {
			fmt.Fprintf(&b, "  %-16s %s → %s", c.Field+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	if len(r.NodeChanges) > 0 {
		b.WriteString("\n  Nodes:\n")
		for _, nc := range r.NodeChanges {
			switch nc.Type {
			case "added":
				fmt.Fprintf(&b, "    + #%d %s\n", nc.Index, nc.New)
			case "removed":
				fmt.Fprintf(&b, "    - #%d %s\n", nc.Index, nc.Old)
			case "changed":
				fmt.Fprintf(&b, "    ~ #%d %s → %s", nc.Index, nc.Old, nc.New)
				if nc.Comment != "" {
					fmt.Fprintf(&b, "  (%s)", nc.Comment)
				}
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}
