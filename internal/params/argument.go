package params

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgumentID selects where the left-hand side of a comparison comes from.
// Values below FirstSpecialID index the arguments passed to the guarded call;
// the reserved ids switch the node into a special mode.
type ArgumentID uint8

const (
	BlockNumberParamID ArgumentID = 200
	TimestampParamID   ArgumentID = 201
	OracleParamID      ArgumentID = 203
	LogicOpParamID     ArgumentID = 204
	ParamValueParamID  ArgumentID = 205
)

// FirstSpecialID is the first selector that does not index a call argument.
const FirstSpecialID ArgumentID = 200

var specialNames = map[ArgumentID]string{
	BlockNumberParamID: "BLOCK_NUMBER",
	TimestampParamID:   "TIMESTAMP",
	OracleParamID:      "ORACLE",
	LogicOpParamID:     "LOGIC_OP",
	ParamValueParamID:  "PARAM_VALUE",
}

// IsArgument reports whether id indexes a positional call argument.
func (id ArgumentID) IsArgument() bool {
	return id < FirstSpecialID
}

// Defined reports whether id is either an argument index or one of the
// reserved selectors.
func (id ArgumentID) Defined() bool {
	if id.IsArgument() {
		return true
	}
	_, ok := specialNames[id]
	return ok
}

func (id ArgumentID) String() string {
	if name, ok := specialNames[id]; ok {
		return name
	}
	return strconv.Itoa(int(id))
}

// ParseArgumentID accepts a reserved selector name (with or without the
// _PARAM_ID suffix) or a decimal argument index.
func ParseArgumentID(s string) (ArgumentID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return ArgumentIDFromInt(n)
	}
	name := strings.TrimSuffix(strings.ToUpper(s), "_PARAM_ID")
	for id, n := range specialNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSelector, s)
}

// ArgumentIDFromInt converts an untyped selector. Values outside [0,255] and
// reserved values without a meaning are rejected.
func ArgumentIDFromInt(n int) (ArgumentID, error) {
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%w: %d out of 8-bit range", ErrInvalidSelector, n)
	}
	id := ArgumentID(n)
	if !id.Defined() {
		return 0, fmt.Errorf("%w: %d is reserved", ErrInvalidSelector, n)
	}
	return id, nil
}

func (id ArgumentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ArgumentID) UnmarshalText(text []byte) error {
	v, err := ParseArgumentID(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
