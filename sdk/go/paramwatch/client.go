package paramwatch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/paramwatch/internal/client"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/rpc"
)

// Client evaluates calls against one permission program.
// Thread-safe for concurrent checks.
type Client struct {
	cfg        clientConfig
	program    []params.Param
	policyHash string
	remote     *client.Client

	mu      sync.Mutex
	checked int
	denied  int
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.remoteAddr != "" {
		rc, err := client.New(cfg.remoteAddr)
		if err != nil {
			return nil, fmt.Errorf("paramwatch: %w", err)
		}
		rc.SetTimeout(cfg.timeout)
		return &Client{cfg: cfg, remote: rc}, nil
	}

	p, policyHash, err := policy.LoadConfigWithHash(cfg.policyPath)
	if err != nil {
		return nil, fmt.Errorf("paramwatch: %w", err)
	}
	ps, err := p.Build()
	if err != nil {
		return nil, fmt.Errorf("paramwatch: invalid policy %q: %w", p.Name, err)
	}
	if issues := params.Check(ps); len(issues) > 0 {
		return nil, fmt.Errorf("paramwatch: policy %q is malformed: %s", p.Name, issues[0])
	}

	return &Client{cfg: cfg, program: ps, policyHash: policyHash}, nil
}

// Check evaluates the program against a call without executing anything.
// Unparseable arguments deny.
func (c *Client) Check(call Call) Result {
	return c.check(call, c.cfg.env)
}

func (c *Client) check(call Call, env Env) Result {
	if call.Env != nil {
		env = *call.Env
	}

	var res Result
	if c.remote != nil {
		resp, err := c.remote.Evaluate(call.Args, env.spec())
		if err != nil {
			resp = rpc.EvaluateResponse{Reason: err.Error()}
		}
		res = toResult(resp)
	} else {
		resp, err := rpc.Evaluate(c.program, rpc.EvaluateRequest{Args: call.Args, Env: env.spec()})
		if err != nil {
			resp = rpc.EvaluateResponse{Reason: err.Error()}
		}
		res = toResult(resp)
		res.PolicyHash = c.policyHash
	}

	c.mu.Lock()
	c.checked++
	if !res.Allowed() {
		c.denied++
	}
	c.mu.Unlock()
	return res
}

// Words returns the encoded program as 0x hex words, ready for
// grantPermissionP. Remote clients ask the server.
func (c *Client) Words() ([]string, error) {
	if c.remote != nil {
		resp, err := c.remote.Encode(nil)
		if err != nil {
			return nil, fmt.Errorf("paramwatch: %w", err)
		}
		return resp.Words, nil
	}
	prog, err := params.EncodeProgram(c.program)
	if err != nil {
		return nil, fmt.Errorf("paramwatch: %w", err)
	}
	return prog.Hex(), nil
}

// Stats reports how many calls were checked and how many were denied.
func (c *Client) Stats() (checked, denied int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checked, c.denied
}

// Close releases the remote connection, if any.
func (c *Client) Close() error {
	if c.remote == nil {
		return nil
	}
	return c.remote.Close()
}

// IsBlocked reports whether err is a *BlockedError.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}
