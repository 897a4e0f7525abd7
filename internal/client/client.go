package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/rpc"
	"github.com/ppiankov/paramwatch/internal/scenario"
)

// DefaultTimeout bounds every RPC.
const DefaultTimeout = 5 * time.Second

// Client connects to a paramwatch gRPC server.
type Client struct {
	conn    *grpc.ClientConn
	client  *rpc.ParamServiceClient
	timeout time.Duration
}

// New creates a gRPC client for the given address. Extra dial options are
// appended after insecure transport credentials.
// Fail-closed: if the server cannot be reached, Evaluate returns Deny.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to param server: %w", err)
	}
	return &Client{
		conn:    conn,
		client:  rpc.NewParamServiceClient(conn),
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout changes the per-call timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Evaluate dry-runs the served program against one call.
// Fail-closed: returns Deny on any RPC error.
func (c *Client) Evaluate(args []string, env scenario.EnvSpec) (rpc.EvaluateResponse, error) {
	in, err := rpc.ToStruct(rpc.EvaluateRequest{Args: args, Env: env})
	if err != nil {
		return rpc.EvaluateResponse{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	out, err := c.client.Evaluate(ctx, in)
	if err != nil {
		return rpc.EvaluateResponse{
			Decision: string(model.Deny),
			Reason:   fmt.Sprintf("param server unreachable: %v", err),
		}, nil
	}

	var resp rpc.EvaluateResponse
	if err := rpc.FromStruct(out, &resp); err != nil {
		return rpc.EvaluateResponse{Decision: string(model.Deny), Reason: err.Error()}, nil
	}
	resp.Decision = string(model.ParseDecision(resp.Decision))
	return resp, nil
}

// Encode encodes specs on the server. Empty specs encode the served policy.
func (c *Client) Encode(specs []policy.ParamSpec) (rpc.EncodeResponse, error) {
	var resp rpc.EncodeResponse
	err := c.call(rpc.EncodeRequest{Params: specs}, &resp, c.client.Encode)
	return resp, err
}

// Decode decodes hex or decimal words on the server.
func (c *Client) Decode(words []string) (rpc.DecodeResponse, error) {
	var resp rpc.DecodeResponse
	err := c.call(rpc.DecodeRequest{Words: words}, &resp, c.client.Decode)
	return resp, err
}

// Info describes the served policy.
func (c *Client) Info() (rpc.InfoResponse, error) {
	var resp rpc.InfoResponse
	err := c.call(struct{}{}, &resp, c.client.Info)
	return resp, err
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type unaryCall func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(req, resp any, fn unaryCall) error {
	in, err := rpc.ToStruct(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	out, err := fn(ctx, in)
	if err != nil {
		return err
	}
	return rpc.FromStruct(out, resp)
}
