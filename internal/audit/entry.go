package audit

import "github.com/ppiankov/paramwatch/internal/model"

// Entry types recorded by paramwatch.
const (
	TypeEncode   = "encode"
	TypeGrant    = "grant"
	TypeStorePut = "store_put"
	TypeRevoke   = "store_revoke"
	TypeEvaluate = "evaluate"
)

// AuditGrant is the flattened grant target recorded in each audit entry.
type AuditGrant struct {
	Entity string `json:"entity"`
	App    string `json:"app"`
	Role   string `json:"role"`
}

// AuditEntry is one line in the hash-chained JSONL audit log.
// All fields are structs (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type AuditEntry struct {
	Timestamp  string     `json:"ts"`
	Type       string     `json:"type"`
	Policy     string     `json:"policy"`
	Grant      AuditGrant `json:"grant"`
	Length     int        `json:"length"`
	ParamsHash string     `json:"params_hash"`
	Decision   string     `json:"decision,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	PolicyHash string     `json:"policy_hash"`
	PrevHash   string     `json:"prev_hash"`
}

// GrantOf flattens a resolved grant. Role is recorded as its 32-byte hash.
func GrantOf(g model.Grant) AuditGrant {
	return AuditGrant{Entity: g.Entity.Hex(), App: g.App.Hex(), Role: g.Role.Hex()}
}
