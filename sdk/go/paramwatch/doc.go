// Package paramwatch provides in-process permission parameter checks for Go
// services that submit ACL-gated transactions. It loads a policy, compiles
// it to the uint256[] words the ACL contract stores, and evaluates calls
// against that program before they are sent, so a call the ACL would revert
// is caught off chain.
//
// Usage:
//
//	pw, err := paramwatch.New(paramwatch.WithPolicy("policy.yaml"))
//	send := pw.Wrap(submitPayment)
//	_, err = send(ctx, paramwatch.Call{
//	    Args: []string{token, recipient, "1_000e18"},
//	})
//
// WithRemote delegates evaluation to a running paramwatch server instead.
// Remote checks fail closed: an unreachable server denies.
package paramwatch
