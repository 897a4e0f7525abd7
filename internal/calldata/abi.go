package calldata

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// aclABI is the subset of the Aragon ACL interface that deals with
// parameterized permissions.
const aclABI = `[
  {"type":"function","name":"grantPermission","stateMutability":"nonpayable","inputs":[
    {"name":"_entity","type":"address"},{"name":"_app","type":"address"},{"name":"_role","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"grantPermissionP","stateMutability":"nonpayable","inputs":[
    {"name":"_entity","type":"address"},{"name":"_app","type":"address"},{"name":"_role","type":"bytes32"},
    {"name":"_params","type":"uint256[]"}],"outputs":[]},
  {"type":"function","name":"revokePermission","stateMutability":"nonpayable","inputs":[
    {"name":"_entity","type":"address"},{"name":"_app","type":"address"},{"name":"_role","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"getPermissionParamsLength","stateMutability":"view","inputs":[
    {"name":"_entity","type":"address"},{"name":"_app","type":"address"},{"name":"_role","type":"bytes32"}],
    "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPermissionParam","stateMutability":"view","inputs":[
    {"name":"_entity","type":"address"},{"name":"_app","type":"address"},{"name":"_role","type":"bytes32"},
    {"name":"_index","type":"uint256"}],
    "outputs":[{"name":"","type":"uint8"},{"name":"","type":"uint8"},{"name":"","type":"uint240"}]},
  {"type":"event","name":"SetPermissionParams","anonymous":false,"inputs":[
    {"name":"entity","type":"address","indexed":true},{"name":"app","type":"address","indexed":true},
    {"name":"role","type":"bytes32","indexed":true},{"name":"paramsHash","type":"bytes32","indexed":false}]}
]`

const (
	MethodGrantPermission           = "grantPermission"
	MethodGrantPermissionP          = "grantPermissionP"
	MethodRevokePermission          = "revokePermission"
	MethodGetPermissionParamsLength = "getPermissionParamsLength"
	MethodGetPermissionParam        = "getPermissionParam"
	EventSetPermissionParams        = "SetPermissionParams"
)

var acl = mustParseABI(aclABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("calldata: invalid ACL ABI: " + err.Error())
	}
	return parsed
}
