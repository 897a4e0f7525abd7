package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/audit"
	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/paramdiff"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

var (
	grantPolicy      string
	grantRevokeFirst bool
	grantVerify      string
	grantFormat      string
	grantAuditLog    string
)

func init() {
	rootCmd.AddCommand(grantCmd)
	grantCmd.Flags().StringVar(&grantPolicy, "policy", "", "Path to policy YAML (default ~/.paramwatch/policy.yaml)")
	grantCmd.Flags().BoolVar(&grantRevokeFirst, "revoke-first", false, "Prepend revokePermission, as when replacing an existing grant")
	grantCmd.Flags().StringVar(&grantVerify, "verify", "", "Check existing grantPermissionP calldata against the policy instead of printing calls")
	grantCmd.Flags().StringVarP(&grantFormat, "format", "f", "text", "Output format (text|json)")
	grantCmd.Flags().StringVar(&grantAuditLog, "audit-log", "", "Append a grant entry to this audit log")
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Produce ACL calldata granting the policy's permission",
	Long: "Encodes grantPermissionP(entity, app, role, params) for the policy, optionally\n" +
		"preceded by revokePermission. With --verify, decodes calldata taken from a\n" +
		"vote script and reports any difference from the policy.\n\n" +
		"With --verify, exit code 1 if the calldata does not match.",
	RunE: runGrant,
}

type grantCall struct {
	Method string `json:"method"`
	Data   string `json:"data"`
}

type grantPlan struct {
	Policy     string      `json:"policy"`
	Calls      []grantCall `json:"calls"`
	Length     int         `json:"length"`
	ParamsHash string      `json:"params_hash"`
	PolicyHash string      `json:"policy_hash"`
	grant      audit.AuditGrant
}

func buildGrantPlan(path string, revokeFirst bool) (*grantPlan, error) {
	pol, hash, err := policy.LoadConfigWithHash(path)
	if err != nil {
		return nil, err
	}
	g, err := pol.Grant.Resolve()
	if err != nil {
		return nil, err
	}
	_, prog, err := pol.Program()
	if err != nil {
		return nil, err
	}

	plan := &grantPlan{
		Policy:     pol.Name,
		Length:     len(prog),
		ParamsHash: calldata.ParamsHash(prog).Hex(),
		PolicyHash: hash,
		grant:      audit.GrantOf(g),
	}
	if revokeFirst {
		data, err := calldata.RevokePermission(g)
		if err != nil {
			return nil, err
		}
		plan.Calls = append(plan.Calls, grantCall{Method: calldata.MethodRevokePermission, Data: calldata.Hex(data)})
	}
	data, err := calldata.GrantPermissionP(g, prog)
	if err != nil {
		return nil, err
	}
	plan.Calls = append(plan.Calls, grantCall{Method: calldata.MethodGrantPermissionP, Data: calldata.Hex(data)})
	return plan, nil
}

// verifyGrant decodes grantPermissionP calldata and diffs it against the
// policy. The grant target counts as a change too.
func verifyGrant(path, hexData string) (*paramdiff.DiffResult, error) {
	pol, err := policy.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	want, err := pol.Grant.Resolve()
	if err != nil {
		return nil, err
	}
	expected, err := pol.Build()
	if err != nil {
		return nil, err
	}

	data, err := calldata.ParseHex(hexData)
	if err != nil {
		return nil, fmt.Errorf("calldata: %w", err)
	}
	call, err := calldata.Decode(data)
	if err != nil {
		return nil, err
	}
	if call.Method != calldata.MethodGrantPermissionP {
		return nil, fmt.Errorf("calldata is %s, expected %s", call.Method, calldata.MethodGrantPermissionP)
	}
	actual, err := params.DecodeProgram(call.Program)
	if err != nil {
		return nil, err
	}

	result := paramdiff.Diff(expected, actual)
	result.OldPath = path
	result.NewPath = "calldata"
	if call.Grant.Key() != want.Key() {
		result.Changes = append(result.Changes, paramdiff.Change{
			Field: "grant",
			Old:   want.String(),
			New:   call.Grant.String(),
		})
		result.HasChanges = true
	}
	return result, nil
}

func formatGrantText(p *grantPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Policy: %s (%s)\n", p.Policy, p.PolicyHash)
	b.WriteString(rule + "\n")
	for i, c := range p.Calls {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, c.Method, c.Data)
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Length:      %d\n", p.Length)
	fmt.Fprintf(&b, "Params hash: %s\n", p.ParamsHash)
	return b.String()
}

func runGrant(cmd *cobra.Command, args []string) error {
	if grantVerify != "" {
		result, err := verifyGrant(grantPolicy, grantVerify)
		if err != nil {
			return err
		}
		if !result.HasChanges {
			fmt.Println("OK: calldata matches policy")
			return nil
		}
		fmt.Print(paramdiff.FormatText(result))
		os.Exit(1)
	}

	plan, err := buildGrantPlan(grantPolicy, grantRevokeFirst)
	if err != nil {
		return err
	}

	switch grantFormat {
	case "json":
		if err := printJSON(plan); err != nil {
			return err
		}
	default:
		fmt.Print(formatGrantText(plan))
	}

	appendAudit(grantAuditLog, audit.AuditEntry{
		Type:       audit.TypeGrant,
		Policy:     plan.Policy,
		Grant:      plan.grant,
		Length:     plan.Length,
		ParamsHash: plan.ParamsHash,
		PolicyHash: plan.PolicyHash,
	})
	return nil
}
