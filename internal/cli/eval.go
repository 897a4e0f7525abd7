package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/client"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/rpc"
	"github.com/ppiankov/paramwatch/internal/scenario"
)

var (
	evalPolicy    string
	evalRemote    string
	evalBlock     uint64
	evalTimestamp uint64
	evalOracle    string
	evalFormat    string
	evalTrace     bool
)

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalPolicy, "policy", "", "Path to policy YAML (default ~/.paramwatch/policy.yaml)")
	evalCmd.Flags().StringVar(&evalRemote, "remote", "", "Evaluate on a paramwatch server (host:port) instead of locally")
	evalCmd.Flags().Uint64Var(&evalBlock, "block", 0, "Block number seen by BLOCK_NUMBER nodes")
	evalCmd.Flags().Uint64Var(&evalTimestamp, "timestamp", 0, "Timestamp seen by TIMESTAMP nodes")
	evalCmd.Flags().StringVar(&evalOracle, "oracle", "", "Oracle answer for ORACLE nodes (allow|deny)")
	evalCmd.Flags().StringVarP(&evalFormat, "format", "f", "text", "Output format (text|json)")
	evalCmd.Flags().BoolVar(&evalTrace, "trace", false, "Print every visited node")
}

var evalCmd = &cobra.Command{
	Use:   "eval <arg>...",
	Short: "Dry-run one call against a policy",
	Long: "Evaluates the program for a call with the given arguments (addresses,\n" +
		"0x hex or decimals, with an optional e18-style exponent) the way the ACL\n" +
		"would. With --remote the served policy is used and an unreachable server\n" +
		"denies.\n\n" +
		"Exit code 0 on allow, 1 on deny.",
	RunE: runEval,
}

func evaluateLocal(policyPath string, req rpc.EvaluateRequest) (rpc.EvaluateResponse, error) {
	pol, hash, err := policy.LoadConfigWithHash(policyPath)
	if err != nil {
		return rpc.EvaluateResponse{}, err
	}
	ps, err := pol.Build()
	if err != nil {
		return rpc.EvaluateResponse{}, err
	}
	resp, err := rpc.Evaluate(ps, req)
	if err != nil {
		return rpc.EvaluateResponse{}, err
	}
	resp.PolicyHash = hash
	return resp, nil
}

func evaluateRemote(addr string, req rpc.EvaluateRequest) (rpc.EvaluateResponse, error) {
	c, err := client.New(addr)
	if err != nil {
		return rpc.EvaluateResponse{}, err
	}
	defer c.Close()
	return c.Evaluate(req.Args, req.Env)
}

func formatEvalText(resp rpc.EvaluateResponse, trace bool) string {
	var b strings.Builder
	if trace {
		for _, s := range resp.Trace {
			mark := "false"
			if s.Result {
				mark = "true"
			}
			fmt.Fprintf(&b, "%s#%d %s => %s\n", strings.Repeat("  ", s.Depth), s.Index, s.Node, mark)
		}
	}
	fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(resp.Decision), resp.Reason)
	return b.String()
}

func runEval(cmd *cobra.Command, args []string) error {
	req := rpc.EvaluateRequest{
		Args: args,
		Env:  scenario.EnvSpec{BlockNumber: evalBlock, Timestamp: evalTimestamp, Oracle: evalOracle},
	}

	var resp rpc.EvaluateResponse
	var err error
	if evalRemote != "" {
		resp, err = evaluateRemote(evalRemote, req)
	} else {
		resp, err = evaluateLocal(evalPolicy, req)
	}
	if err != nil {
		return err
	}

	if evalFormat == "json" {
		if err := printJSON(resp); err != nil {
			return err
		}
	} else {
		fmt.Print(formatEvalText(resp, evalTrace))
	}

	if model.ParseDecision(resp.Decision) != model.Allow {
		os.Exit(1)
	}
	return nil
}
