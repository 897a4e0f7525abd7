package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/paramdiff"
	"github.com/ppiankov/paramwatch/internal/policy"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare the programs of two policy files",
	Long: "Builds both policies and compares grant targets and program nodes by\n" +
		"position, marking lowered ceilings and raised floors as stricter.",
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func diffFiles(oldPath, newPath string) (*paramdiff.DiffResult, error) {
	oldPol, err := policy.LoadConfig(oldPath)
	if err != nil {
		return nil, fmt.Errorf("load old policy: %w", err)
	}
	newPol, err := policy.LoadConfig(newPath)
	if err != nil {
		return nil, fmt.Errorf("load new policy: %w", err)
	}

	result, err := paramdiff.DiffPolicies(oldPol, newPol)
	if err != nil {
		return nil, err
	}
	result.OldPath = oldPath
	result.NewPath = newPath
	return result, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	result, err := diffFiles(args[0], args[1])
	if err != nil {
		return err
	}

	switch diffFormat {
	case "json":
		out, err := paramdiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(paramdiff.FormatText(result))
	}

	return nil
}
