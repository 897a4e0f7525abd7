package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/paramwatch/internal/audit"
)

const rule = "──────────────────────────────────────────────────────────────────"

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// appendAudit records entry when path is set. Failures are reported on
// stderr but do not fail the command; the output was already produced.
func appendAudit(path string, entry audit.AuditEntry) {
	if path == "" {
		return
	}
	log, err := audit.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log: %v\n", err)
		return
	}
	defer log.Close()
	if err := log.Record(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log: %v\n", err)
	}
}
