package paramwatch

import "context"

// ToolFunc is the function signature that Wrap guards.
// The caller provides the Call the transaction will make.
type ToolFunc func(ctx context.Context, call Call) (any, error)

// Wrap returns a new ToolFunc that evaluates the program before calling fn.
// If the program denies the call, returns a *BlockedError without calling fn.
func (c *Client) Wrap(fn ToolFunc, opts ...WrapOption) ToolFunc {
	wcfg := wrapConfig{env: c.cfg.env}
	for _, o := range opts {
		o(&wcfg)
	}

	return func(ctx context.Context, call Call) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := c.check(call, wcfg.env)
		if !result.Allowed() {
			return nil, &BlockedError{
				Call:     call,
				Decision: result.Decision,
				Reason:   result.Reason,
			}
		}
		return fn(ctx, call)
	}
}
