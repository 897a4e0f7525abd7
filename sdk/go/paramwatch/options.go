package paramwatch

import "time"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	policyPath string
	remoteAddr string
	timeout    time.Duration
	env        Env
}

// WithPolicy sets the path to a policy YAML file. Empty uses the default
// policy location.
func WithPolicy(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithRemote evaluates against a paramwatch server at addr instead of a
// local policy.
func WithRemote(addr string) Option {
	return func(c *clientConfig) { c.remoteAddr = addr }
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithEnv sets the default block context for every check.
func WithEnv(env Env) Option {
	return func(c *clientConfig) { c.env = env }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	env Env
}

// WrapWithEnv overrides the client-level block context for this wrap.
// A Call's own Env still takes precedence.
func WrapWithEnv(env Env) WrapOption {
	return func(w *wrapConfig) { w.env = env }
}
