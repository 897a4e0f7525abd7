package client

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/scenario"
	"github.com/ppiankov/paramwatch/internal/server"
)

const oraclePolicy = `
name: oracle-gated
grant:
  entity: "0xFE5986E06210aC1eCC1aDCafc0cc7f8D63B3F977"
  app: "0xB9E5CBB9CA5b0d659238807E84D0176930753d86"
  role: CREATE_PAYMENTS_ROLE
params:
  - id: LOGIC_OP
    op: AND
    logic: [1, 2]
  - id: ORACLE
    op: EQ
    value: "0x0000000000000000000000000000000000000abc"
  - id: "1"
    op: LT
    value: "100"
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

// startTestServer creates a server and returns its address.
func startTestServer(t *testing.T, policyPath string) (string, func()) {
	t.Helper()

	nop := zerolog.Nop()
	srv, err := server.New(server.Config{PolicyPath: policyPath, Logger: &nop})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go srv.ServeOn(lis)

	cleanup := func() {
		srv.GracefulStop()
		srv.Close()
	}
	return lis.Addr().String(), cleanup
}

func TestClientEvaluateAllowed(t *testing.T) {
	addr, cleanup := startTestServer(t, writeTempFile(t, "policy.yaml", oraclePolicy))
	defer cleanup()

	c, err := New(addr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	resp, err := c.Evaluate([]string{"0", "99"}, scenario.EnvSpec{Oracle: "allow"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.Decision != "allow" {
		t.Errorf("expected allow, got %s: %s", resp.Decision, resp.Reason)
	}
}

func TestClientEvaluateDenied(t *testing.T) {
	addr, cleanup := startTestServer(t, writeTempFile(t, "policy.yaml", oraclePolicy))
	defer cleanup()

	c, err := New(addr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// No oracle configured: the AND short-circuits on the ORACLE node.
	resp, err := c.Evaluate([]string{"0", "1"}, scenario.EnvSpec{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.Decision != "deny" {
		t.Errorf("expected deny, got %s", resp.Decision)
	}
	if len(resp.Trace) != 2 {
		t.Errorf("expected 2 trace steps (oracle then AND), got %d", len(resp.Trace))
	}
}

func TestClientFailClosed(t *testing.T) {
	// Nothing listens on this address.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	c, err := New(addr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	c.SetTimeout(500 * time.Millisecond)

	resp, err := c.Evaluate([]string{"0", "1"}, scenario.EnvSpec{Oracle: "allow"})
	if err != nil {
		t.Fatalf("expected fail-closed response, got error: %v", err)
	}
	if resp.Decision != "deny" {
		t.Errorf("expected deny when unreachable, got %s", resp.Decision)
	}
	if !strings.Contains(resp.Reason, "unreachable") {
		t.Errorf("expected unreachable reason, got %q", resp.Reason)
	}

	if _, err := c.Info(); err == nil {
		t.Error("expected Info to fail when unreachable")
	}
}

func TestClientEncodeDecodeInfo(t *testing.T) {
	addr, cleanup := startTestServer(t, writeTempFile(t, "policy.yaml", oraclePolicy))
	defer cleanup()

	c, err := New(addr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	enc, err := c.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(enc.Words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(enc.Words))
	}
	if !strings.HasPrefix(enc.Words[0], "0xcc09") {
		t.Errorf("expected LOGIC_OP/AND word, got %s", enc.Words[0])
	}

	dec, err := c.Decode(enc.Words)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(dec.Params) != 3 || dec.Params[1].ID != "ORACLE" {
		t.Errorf("expected ORACLE at index 1, got %+v", dec.Params)
	}

	info, err := c.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "oracle-gated" || info.Length != 3 {
		t.Errorf("expected oracle-gated with 3 nodes, got %s with %d", info.Name, info.Length)
	}
	if info.ParamsHash != enc.ParamsHash {
		t.Errorf("expected params hash %s, got %s", enc.ParamsHash, info.ParamsHash)
	}

	adhoc, err := c.Encode([]policy.ParamSpec{{ID: "PARAM_VALUE", Op: "RET", Value: "1"}})
	if err != nil {
		t.Fatalf("Encode ad-hoc: %v", err)
	}
	if len(adhoc.Words) != 1 {
		t.Errorf("expected 1 word, got %d", len(adhoc.Words))
	}
}
