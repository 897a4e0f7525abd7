package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/policy"
)

var (
	initPolicyOutput string
	initPolicyForce  bool
)

func init() {
	rootCmd.AddCommand(initPolicyCmd)
	initPolicyCmd.Flags().StringVarP(&initPolicyOutput, "output", "o", "", "Where to write the policy (default ~/.paramwatch/policy.yaml)")
	initPolicyCmd.Flags().BoolVar(&initPolicyForce, "force", false, "Overwrite an existing file")
}

var initPolicyCmd = &cobra.Command{
	Use:   "init-policy",
	Short: "Generate an example policy.yaml with comments",
	Long:  "Writes a commented payment-limits policy to start from.\nEdit the grant target and limits before encoding.",
	RunE:  runInitPolicy,
}

func defaultPolicyPath() (string, error) {
	return policy.DefaultPath()
}

func runInitPolicy(cmd *cobra.Command, args []string) error {
	path := initPolicyOutput
	if path == "" {
		def, err := defaultPolicyPath()
		if err != nil {
			return err
		}
		path = def
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil && !initPolicyForce {
		return fmt.Errorf("policy already exists at %s (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(policy.ExampleYAML()), 0644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	return nil
}
