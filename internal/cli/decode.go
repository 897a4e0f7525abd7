package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/paramwatch/internal/rpc"
)

var decodeFormat string

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", "text", "Output format (text|json)")
}

var decodeCmd = &cobra.Command{
	Use:   "decode <word>...",
	Short: "Decode permission parameter words",
	Long: "Splits each uint256 word (0x hex or decimal, as returned by\n" +
		"ACL.getPermissionParam or shown by a block explorer) into its argument\n" +
		"selector, operator and 240-bit value. Arguments may also be a single\n" +
		"comma-separated list.",
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func splitWords(args []string) []string {
	var words []string
	for _, a := range args {
		for _, w := range strings.Split(strings.Trim(a, "[] "), ",") {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
	}
	return words
}

func formatDecodeText(r rpc.DecodeResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3s  %-12s %-8s %s\n", "#", "ID", "OP", "CONDITION")
	for _, p := range r.Params {
		fmt.Fprintf(&b, "%3d  %-12s %-8s %s\n", p.Index, p.ID, p.Op, p.Description)
	}
	return b.String()
}

func runDecode(cmd *cobra.Command, args []string) error {
	resp, err := rpc.Decode(splitWords(args))
	if err != nil {
		return err
	}

	switch decodeFormat {
	case "json":
		return printJSON(resp)
	default:
		fmt.Print(formatDecodeText(resp))
	}
	return nil
}
