package scenario

// EnvSpec is the block context a case runs in. Oracle is "allow", "deny",
// "true" or "false"; empty means no oracle, which denies. Other values are
// an error.
type EnvSpec struct {
	BlockNumber uint64 `yaml:"block_number,omitempty" json:"block_number,omitempty"`
	Timestamp   uint64 `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	Oracle      string `yaml:"oracle,omitempty" json:"oracle,omitempty"`
}

// Case is one call checked against the program.
type Case struct {
	Name   string   `yaml:"name,omitempty"`
	Args   []string `yaml:"args"`
	Expect string   `yaml:"expect"`
	Env    *EnvSpec `yaml:"env,omitempty"`
}

// Scenario is a named collection of calls with expected outcomes.
// Policy is resolved relative to the scenario file when set.
type Scenario struct {
	Name   string  `yaml:"name"`
	Policy string  `yaml:"policy,omitempty"`
	Env    EnvSpec `yaml:"env,omitempty"`
	Cases  []Case  `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Passed   bool   `json:"passed"`
	Args     string `json:"args"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File       string       `json:"file"`
	Name       string       `json:"name"`
	PolicyHash string       `json:"policy_hash,omitempty"`
	Total      int          `json:"total"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Cases      []CaseResult `json:"cases"`
}
