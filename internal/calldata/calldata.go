package calldata

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
)

// ErrUnknownMethod is returned when decoding calldata whose selector is not
// one of the ACL permission methods.
var ErrUnknownMethod = errors.New("calldata: unknown ACL method")

// RoleHash resolves a role. A 0x-prefixed 32-byte hex string is taken as the
// role identifier itself; anything else is a role name hashed with keccak256,
// the way Aragon apps declare roles.
func RoleHash(role string) (common.Hash, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return common.Hash{}, fmt.Errorf("role: empty")
	}
	if strings.HasPrefix(role, "0x") || strings.HasPrefix(role, "0X") {
		b, err := hexutil.Decode(role)
		if err != nil {
			return common.Hash{}, fmt.Errorf("role %q: %w", role, err)
		}
		if len(b) != common.HashLength {
			return common.Hash{}, fmt.Errorf("role %q: expected %d bytes, got %d", role, common.HashLength, len(b))
		}
		return common.BytesToHash(b), nil
	}
	return crypto.Keccak256Hash([]byte(role)), nil
}

// ParamsHash is keccak256(abi.encodePacked(uint256[])) over the program, the
// paramsHash the ACL emits in SetPermissionParams.
func ParamsHash(prog params.Program) common.Hash {
	buf := make([]byte, 0, len(prog)*32)
	for i := range prog {
		b := prog[i].Bytes32()
		buf = append(buf, b[:]...)
	}
	return crypto.Keccak256Hash(buf)
}

func toBigs(prog params.Program) []*big.Int {
	out := make([]*big.Int, len(prog))
	for i := range prog {
		out[i] = prog[i].ToBig()
	}
	return out
}

// GrantPermissionP encodes grantPermissionP(entity, app, role, params).
func GrantPermissionP(g model.Grant, prog params.Program) ([]byte, error) {
	return acl.Pack(MethodGrantPermissionP, g.Entity, g.App, [32]byte(g.Role), toBigs(prog))
}

// GrantPermission encodes grantPermission(entity, app, role).
func GrantPermission(g model.Grant) ([]byte, error) {
	return acl.Pack(MethodGrantPermission, g.Entity, g.App, [32]byte(g.Role))
}

// RevokePermission encodes revokePermission(entity, app, role).
func RevokePermission(g model.Grant) ([]byte, error) {
	return acl.Pack(MethodRevokePermission, g.Entity, g.App, [32]byte(g.Role))
}

// GetPermissionParamsLength encodes the view call returning how many
// parameters a grant carries.
func GetPermissionParamsLength(g model.Grant) ([]byte, error) {
	return acl.Pack(MethodGetPermissionParamsLength, g.Entity, g.App, [32]byte(g.Role))
}

// GetPermissionParam encodes the view call reading one stored parameter.
func GetPermissionParam(g model.Grant, index uint64) ([]byte, error) {
	return acl.Pack(MethodGetPermissionParam, g.Entity, g.App, [32]byte(g.Role), new(big.Int).SetUint64(index))
}

// Call is a decoded ACL permission call.
type Call struct {
	Method  string         `json:"method"`
	Grant   model.Grant    `json:"grant"`
	Program params.Program `json:"-"`
}

// Decode parses calldata produced by one of the grant or revoke encoders.
func Decode(data []byte) (*Call, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata: %d bytes is shorter than a selector", len(data))
	}
	method, err := acl.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, hexutil.Encode(data[:4]))
	}
	switch method.Name {
	case MethodGrantPermission, MethodGrantPermissionP, MethodRevokePermission:
	default:
		return nil, fmt.Errorf("%w: %s is not a grant or revoke", ErrUnknownMethod, method.Name)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	entity, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unpack %s: expected address at position 0", method.Name)
	}
	app, ok := args[1].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unpack %s: expected address at position 1", method.Name)
	}
	role, ok := args[2].([32]byte)
	if !ok {
		return nil, fmt.Errorf("unpack %s: expected bytes32 at position 2", method.Name)
	}

	call := &Call{
		Method: method.Name,
		Grant:  model.Grant{Entity: entity, App: app, Role: common.Hash(role)},
	}
	if method.Name != MethodGrantPermissionP {
		return call, nil
	}

	words, ok := args[3].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: expected uint256[] at position 3", method.Name)
	}
	call.Program = make(params.Program, len(words))
	for i, w := range words {
		if overflow := call.Program[i].SetFromBig(w); overflow {
			return nil, fmt.Errorf("unpack %s: word %d overflows 256 bits", method.Name, i)
		}
	}
	return call, nil
}

// DecodeParamsLength unpacks the return data of getPermissionParamsLength.
func DecodeParamsLength(ret []byte) (uint64, error) {
	out, err := acl.Unpack(MethodGetPermissionParamsLength, ret)
	if err != nil {
		return 0, fmt.Errorf("unpack %s: %w", MethodGetPermissionParamsLength, err)
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("unpack %s: unexpected length %v", MethodGetPermissionParamsLength, out[0])
	}
	return n.Uint64(), nil
}

// DecodeParam unpacks the (id, op, value) tuple returned by
// getPermissionParam.
func DecodeParam(ret []byte) (params.Param, error) {
	out, err := acl.Unpack(MethodGetPermissionParam, ret)
	if err != nil {
		return params.Param{}, fmt.Errorf("unpack %s: %w", MethodGetPermissionParam, err)
	}
	id, ok1 := out[0].(uint8)
	op, ok2 := out[1].(uint8)
	value, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return params.Param{}, fmt.Errorf("unpack %s: unexpected tuple %v", MethodGetPermissionParam, out)
	}
	if !params.Op(op).Valid() {
		return params.Param{}, fmt.Errorf("%w: 0x%02x", params.ErrUnknownOperator, op)
	}
	return params.Param{ID: params.ArgumentID(id), Op: params.Op(op), Value: params.ValueFromBig(value)}, nil
}

// SetPermissionParamsTopic is the topic0 of the SetPermissionParams event.
func SetPermissionParamsTopic() common.Hash {
	return acl.Events[EventSetPermissionParams].ID
}

// Hex renders calldata as a 0x-prefixed string.
func Hex(data []byte) string {
	return hexutil.Encode(data)
}

// ParseHex decodes 0x-prefixed calldata.
func ParseHex(s string) ([]byte, error) {
	return hexutil.Decode(strings.TrimSpace(s))
}
