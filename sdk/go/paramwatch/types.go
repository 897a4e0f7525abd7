package paramwatch

import (
	"fmt"
	"strings"

	"github.com/ppiankov/paramwatch/internal/acl"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/rpc"
	"github.com/ppiankov/paramwatch/internal/scenario"
)

// Decision is the outcome the ACL contract would reach.
type Decision string

const (
	Allow Decision = Decision(model.Allow)
	Deny  Decision = Decision(model.Deny)
)

// Env is the block context read by BLOCK_NUMBER, TIMESTAMP and ORACLE nodes.
// Oracle is "allow" or "deny"; empty means no oracle, which denies.
type Env struct {
	BlockNumber uint64
	Timestamp   uint64
	Oracle      string
}

func (e Env) spec() scenario.EnvSpec {
	return scenario.EnvSpec{BlockNumber: e.BlockNumber, Timestamp: e.Timestamp, Oracle: e.Oracle}
}

// Call describes the arguments a transaction will pass to the
// permission check.
type Call struct {
	Args []string // addresses, 0x hex, or decimal with optional _ and eN
	Env  *Env     // optional: overrides the client and wrap context
}

// Step is one visited program node.
type Step = acl.Step

// Result is a program evaluation outcome.
type Result struct {
	Decision   Decision
	Reason     string
	Trace      []Step
	PolicyHash string
}

// Allowed returns true if the ACL would let the call through.
func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// BlockedError is returned when the program denies a call.
type BlockedError struct {
	Call     Call
	Decision Decision
	Reason   string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("paramwatch blocked (%s): %s args=[%s]", e.Decision, e.Reason, strings.Join(e.Call.Args, ", "))
}

// toResult maps a wire response to an SDK Result.
func toResult(resp rpc.EvaluateResponse) Result {
	return Result{
		Decision:   Decision(model.ParseDecision(resp.Decision)),
		Reason:     resp.Reason,
		Trace:      resp.Trace,
		PolicyHash: resp.PolicyHash,
	}
}
