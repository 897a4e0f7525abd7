package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
)

var lintPolicy string

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().StringVar(&lintPolicy, "policy", "", "Path to policy YAML (default ~/.paramwatch/policy.yaml)")
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check a policy's program for structural mistakes",
	Long: "Builds the policy and checks the program: jump targets in range, no\n" +
		"cycles, logic operators under LOGIC_OP, defined reserved selectors and\n" +
		"a leaf at the end of every reachable path.\n\n" +
		"Exit code 0 if clean, 1 if any issue is found.",
	RunE: runLint,
}

func lintIssues(path string) ([]params.Issue, int, error) {
	pol, err := policy.LoadConfig(path)
	if err != nil {
		return nil, 0, err
	}
	ps, err := pol.Build()
	if err != nil {
		return nil, 0, err
	}
	return params.Check(ps), len(ps), nil
}

func runLint(cmd *cobra.Command, args []string) error {
	issues, n, err := lintIssues(lintPolicy)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Printf("OK: %d nodes, no issues\n", n)
		return nil
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	fmt.Fprintf(os.Stderr, "%d issue(s) in %d nodes\n", len(issues), n)
	os.Exit(1)
	return nil
}
