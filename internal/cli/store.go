package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/audit"
	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/paramdiff"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/store"
)

var (
	storeDB       string
	storePolicy   string
	storeEntity   string
	storeApp      string
	storeRole     string
	storeFormat   string
	storeAuditLog string
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storePutCmd, storeShowCmd, storeListCmd, storeRevokeCmd, storeDiffCmd)

	storeCmd.PersistentFlags().StringVar(&storeDB, "db", "", "Snapshot database (default ~/.paramwatch/params.db)")
	storeCmd.PersistentFlags().StringVar(&storePolicy, "policy", "", "Policy YAML supplying the program or grant target")
	storeCmd.PersistentFlags().StringVar(&storeEntity, "entity", "", "Grantee address")
	storeCmd.PersistentFlags().StringVar(&storeApp, "app", "", "App address")
	storeCmd.PersistentFlags().StringVar(&storeRole, "role", "", "Role name or 0x-prefixed role hash")
	storeCmd.PersistentFlags().StringVarP(&storeFormat, "format", "f", "text", "Output format (text|json)")
	storeCmd.PersistentFlags().StringVar(&storeAuditLog, "audit-log", "", "Append put/revoke entries to this audit log")
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep snapshots of granted parameter lists",
	Long: "A local SQLite record of the parameters each (entity, app, role) grant\n" +
		"carries, read back by length and index the way the ACL exposes them.\n" +
		"Use it to capture the state before a vote and compare after.",
}

var storePutCmd = &cobra.Command{
	Use:   "put",
	Short: "Record the policy's program as the grant's current parameters",
	RunE:  runStorePut,
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a grant's stored parameters",
	Long:  "Selects the grant by --entity/--app/--role, or by the grant of --policy.",
	RunE:  runStoreShow,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored grants",
	RunE:  runStoreList,
}

var storeRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Remove a grant and its parameters",
	RunE:  runStoreRevoke,
}

var storeDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare a grant's stored parameters with the policy's program",
	Long:  "Exit code 0 if they match, 1 if they differ.",
	RunE:  runStoreDiff,
}

func defaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".paramwatch", "params.db"), nil
}

func openStore() (*store.Store, error) {
	path := storeDB
	if path == "" {
		def, err := defaultStorePath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("cannot create store directory: %w", err)
	}
	return store.Open(path)
}

// selectGrant resolves the target from explicit flags, falling back to the
// policy's grant when none of them is set.
func selectGrant(entity, app, role, policyPath string) (model.Grant, error) {
	if entity == "" && app == "" && role == "" {
		if policyPath == "" {
			return model.Grant{}, fmt.Errorf("select a grant with --entity, --app and --role, or --policy")
		}
		pol, err := policy.LoadConfig(policyPath)
		if err != nil {
			return model.Grant{}, err
		}
		return pol.Grant.Resolve()
	}
	return policy.GrantSpec{Entity: entity, App: app, Role: role}.Resolve()
}

// readStored reads a grant back node by node.
func readStored(ctx context.Context, s *store.Store, g model.Grant) ([]params.Param, error) {
	n, err := s.ParamsLength(ctx, g)
	if err != nil {
		return nil, err
	}
	out := make([]params.Param, n)
	for i := 0; i < n; i++ {
		p, err := s.Param(ctx, g, i)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func runStorePut(cmd *cobra.Command, args []string) error {
	pol, hash, err := policy.LoadConfigWithHash(storePolicy)
	if err != nil {
		return err
	}
	g, err := pol.Grant.Resolve()
	if err != nil {
		return err
	}
	_, prog, err := pol.Program()
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Put(cmd.Context(), g, prog, hash); err != nil {
		return err
	}
	paramsHash := calldata.ParamsHash(prog).Hex()
	fmt.Printf("Stored %d params for %s\nParams hash: %s\n", len(prog), pol.Name, paramsHash)

	appendAudit(storeAuditLog, audit.AuditEntry{
		Type:       audit.TypeStorePut,
		Policy:     pol.Name,
		Grant:      audit.GrantOf(g),
		Length:     len(prog),
		ParamsHash: paramsHash,
		PolicyHash: hash,
	})
	return nil
}

type storedGrant struct {
	store.Snapshot
	Params []string `json:"params"`
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	g, err := selectGrant(storeEntity, storeApp, storeRole, storePolicy)
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	snap, err := s.Get(ctx, g)
	if err != nil {
		return err
	}
	ps, err := readStored(ctx, s, g)
	if err != nil {
		return err
	}

	out := storedGrant{Snapshot: snap, Params: make([]string, len(ps))}
	for i, p := range ps {
		out.Params[i] = params.Describe(p)
	}

	if storeFormat == "json" {
		return printJSON(out)
	}
	fmt.Print(formatStoredText(out))
	return nil
}

func formatStoredText(sg storedGrant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grant:       %s\n", sg.Grant)
	fmt.Fprintf(&b, "Length:      %d\n", sg.Length)
	fmt.Fprintf(&b, "Params hash: %s\n", sg.ParamsHash.Hex())
	if sg.PolicyHash != "" {
		fmt.Fprintf(&b, "Policy hash: %s\n", sg.PolicyHash)
	}
	fmt.Fprintf(&b, "Updated:     %s\n", sg.UpdatedAt.Format("2006-01-02 15:04:05 UTC"))
	b.WriteString(rule + "\n")
	for i, p := range sg.Params {
		fmt.Fprintf(&b, "%3d  %s\n", i, p)
	}
	return b.String()
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	snaps, err := s.List(cmd.Context())
	if err != nil {
		return err
	}
	if storeFormat == "json" {
		return printJSON(snaps)
	}
	if len(snaps) == 0 {
		fmt.Println("No grants stored.")
		return nil
	}
	for _, snap := range snaps {
		fmt.Printf("%s  %3d params  %s\n", snap.ParamsHash.Hex()[:14], snap.Length, snap.Grant)
	}
	return nil
}

func runStoreRevoke(cmd *cobra.Command, args []string) error {
	g, err := selectGrant(storeEntity, storeApp, storeRole, storePolicy)
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Revoke(cmd.Context(), g); err != nil {
		return err
	}
	fmt.Printf("Revoked %s\n", g)

	appendAudit(storeAuditLog, audit.AuditEntry{
		Type:  audit.TypeRevoke,
		Grant: audit.GrantOf(g),
	})
	return nil
}

func runStoreDiff(cmd *cobra.Command, args []string) error {
	pol, err := policy.LoadConfig(storePolicy)
	if err != nil {
		return err
	}
	g, err := selectGrant(storeEntity, storeApp, storeRole, storePolicy)
	if err != nil {
		return err
	}
	expected, err := pol.Build()
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	stored, err := readStored(cmd.Context(), s, g)
	if err != nil {
		return err
	}

	result := paramdiff.Diff(stored, expected)
	result.OldPath = "store"
	result.NewPath = storePolicy

	if storeFormat == "json" {
		out, err := paramdiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else {
		fmt.Print(paramdiff.FormatText(result))
	}
	if result.HasChanges {
		os.Exit(1)
	}
	return nil
}
