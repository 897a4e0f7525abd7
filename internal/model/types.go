package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Decision is the outcome of evaluating a permission program.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// DecisionFromBool maps an evaluator result to a Decision.
func DecisionFromBool(ok bool) Decision {
	if ok {
		return Allow
	}
	return Deny
}

// ParseDecision maps a string to a Decision. Fail-closed: anything that is
// not "allow" is Deny.
func ParseDecision(s string) Decision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "true":
		return Allow
	default:
		return Deny
	}
}

// Grant identifies one ACL permission: entity may perform role on app.
type Grant struct {
	Entity common.Address `json:"entity"`
	App    common.Address `json:"app"`
	Role   common.Hash    `json:"role"`
}

// Key returns a stable string identity for the grant, used as a storage key.
func (g Grant) Key() string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", g.Entity.Hex(), g.App.Hex(), g.Role.Hex()))
}

func (g Grant) String() string {
	return fmt.Sprintf("entity=%s app=%s role=%s", g.Entity.Hex(), g.App.Hex(), g.Role.Hex())
}

// ParseAddress parses a 0x-prefixed 20-byte address, rejecting anything
// common.HexToAddress would silently pad or truncate.
func ParseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", field, s)
	}
	return common.HexToAddress(s), nil
}
