package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/paramwatch/internal/acl"
	"github.com/ppiankov/paramwatch/internal/params"
	"github.com/ppiankov/paramwatch/internal/policy"
	"github.com/ppiankov/paramwatch/internal/scenario"
)

// EncodeRequest encodes Params, or the served policy when Params is empty.
type EncodeRequest struct {
	Params []policy.ParamSpec `json:"params,omitempty"`
}

// EncodeResponse carries the encoded program and its ACL params hash.
type EncodeResponse struct {
	Words      []string       `json:"words"`
	ParamsHash string         `json:"params_hash"`
	Issues     []params.Issue `json:"issues,omitempty"`
	PolicyHash string         `json:"policy_hash,omitempty"`
}

// DecodeRequest carries hex or decimal words.
type DecodeRequest struct {
	Words []string `json:"words"`
}

// DecodedParam is one decoded node.
type DecodedParam struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Op          string `json:"op"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// DecodeResponse lists decoded nodes in program order.
type DecodeResponse struct {
	Params []DecodedParam `json:"params"`
}

// EvaluateRequest runs the served program against one call.
type EvaluateRequest struct {
	Args []string         `json:"args"`
	Env  scenario.EnvSpec `json:"env"`
}

// EvaluateResponse is the dry-run outcome.
type EvaluateResponse struct {
	Decision   string     `json:"decision"`
	Reason     string     `json:"reason"`
	Trace      []acl.Step `json:"trace,omitempty"`
	PolicyHash string     `json:"policy_hash,omitempty"`
}

// InfoResponse describes the served policy.
type InfoResponse struct {
	Name       string `json:"name"`
	Entity     string `json:"entity"`
	App        string `json:"app"`
	Role       string `json:"role"`
	Length     int    `json:"length"`
	ParamsHash string `json:"params_hash"`
	PolicyHash string `json:"policy_hash"`
}

// ToStruct converts a message to a Struct via its JSON form.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("convert message: %w", err)
	}
	return s, nil
}

// FromStruct fills v from s. A nil Struct leaves v unchanged.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("convert message: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}
