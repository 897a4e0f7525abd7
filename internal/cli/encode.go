package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/audit"
	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

var (
	encodePolicy   string
	encodeFormat   string
	encodeAuditLog string
	encodeDecimal  bool
)

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVar(&encodePolicy, "policy", "", "Path to policy YAML (default ~/.paramwatch/policy.yaml)")
	encodeCmd.Flags().StringVarP(&encodeFormat, "format", "f", "text", "Output format (text|json)")
	encodeCmd.Flags().StringVar(&encodeAuditLog, "audit-log", "", "Append an encode entry to this audit log")
	encodeCmd.Flags().BoolVar(&encodeDecimal, "decimal", false, "Print words in decimal instead of hex")
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Compile a policy into ACL permission parameters",
	Long: "Builds the policy's program, encodes every node into its uint256 word and\n" +
		"prints them with a readable condition next to each, followed by the params\n" +
		"hash emitted in the SetPermissionParams event.",
	RunE: runEncode,
}

type encodedParam struct {
	Index     int    `json:"index"`
	Word      string `json:"word"`
	Condition string `json:"condition"`
}

type encodeReport struct {
	Policy     string         `json:"policy"`
	Entity     string         `json:"entity"`
	App        string         `json:"app"`
	Role       string         `json:"role"`
	Length     int            `json:"length"`
	Params     []encodedParam `json:"params"`
	ParamsHash string         `json:"params_hash"`
	PolicyHash string         `json:"policy_hash"`
	Issues     []params.Issue `json:"issues,omitempty"`
}

func buildEncodeReport(path string, decimal bool) (*encodeReport, error) {
	pol, hash, err := policy.LoadConfigWithHash(path)
	if err != nil {
		return nil, err
	}
	grant, err := pol.Grant.Resolve()
	if err != nil {
		return nil, err
	}
	ps, prog, err := pol.Program()
	if err != nil {
		return nil, err
	}

	words := prog.Hex()
	if decimal {
		words = prog.Decimal()
	}

	r := &encodeReport{
		Policy:     pol.Name,
		Entity:     grant.Entity.Hex(),
		App:        grant.App.Hex(),
		Role:       grant.Role.Hex(),
		Length:     len(prog),
		Params:     make([]encodedParam, len(ps)),
		ParamsHash: calldata.ParamsHash(prog).Hex(),
		PolicyHash: hash,
		Issues:     params.Check(ps),
	}
	for i, p := range ps {
		r.Params[i] = encodedParam{Index: i, Word: words[i], Condition: params.Describe(p)}
	}
	return r, nil
}

func formatEncodeText(r *encodeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Policy: %s (%s)\n", r.Policy, r.PolicyHash)
	fmt.Fprintf(&b, "Grant:  entity %s\n        app    %s\n        role   %s\n", r.Entity, r.App, r.Role)
	b.WriteString(rule + "\n")
	for _, p := range r.Params {
		fmt.Fprintf(&b, "%3d  %s\n     %s\n", p.Index, p.Word, p.Condition)
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Length:      %d\n", r.Length)
	fmt.Fprintf(&b, "Params hash: %s\n", r.ParamsHash)
	return b.String()
}

func runEncode(cmd *cobra.Command, args []string) error {
	r, err := buildEncodeReport(encodePolicy, encodeDecimal)
	if err != nil {
		return err
	}

	switch encodeFormat {
	case "json":
		if err := printJSON(r); err != nil {
			return err
		}
	default:
		fmt.Print(formatEncodeText(r))
	}

	for _, issue := range r.Issues {
		fmt.Fprintf(os.Stderr, "warning: %s\n", issue)
	}

	appendAudit(encodeAuditLog, audit.AuditEntry{
		Type:       audit.TypeEncode,
		Policy:     r.Policy,
		Grant:      audit.AuditGrant{Entity: r.Entity, App: r.App, Role: r.Role},
		Length:     r.Length,
		ParamsHash: r.ParamsHash,
		PolicyHash: r.PolicyHash,
	})
	return nil
}
