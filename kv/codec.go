package kv

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// wireValue mirrors the DynamoDB JSON shape of a single attribute.
type wireValue struct {
	S    *string              `json:"S,omitempty"`
	N    *string              `json:"N,omitempty"`
	B    []byte               `json:"B,omitempty"`
	BOOL *bool                `json:"BOOL,omitempty"`
	NULL bool                 `json:"NULL,omitempty"`
	SS   []string             `json:"SS,omitempty"`
	NS   []string             `json:"NS,omitempty"`
	BS   [][]byte             `json:"BS,omitempty"`
	M    map[string]wireValue `json:"M,omitempty"`
	L    []wireValue          `json:"L,omitempty"`
	// IsL and IsM mark container values that omitempty would drop when empty.
	IsL bool `json:"isL,omitempty"`
	IsM bool `json:"isM,omitempty"`
}

// EncodeRecord serializes a record to bytes, for caches and other byte-oriented sinks.
func EncodeRecord(r Record) ([]byte, error) {
	m, err := toWireMap(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var m map[string]wireValue
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return fromWireMap(m)
}

func toWireMap(r Record) (map[string]wireValue, error) {
	out := make(map[string]wireValue, len(r))
	for k, v := range r {
		w, err := toWire(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = w
	}
	return out, nil
}

func toWire(av types.AttributeValue) (wireValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return wireValue{S: &v.Value}, nil
	case *types.AttributeValueMemberN:
		return wireValue{N: &v.Value}, nil
	case *types.AttributeValueMemberB:
		return wireValue{B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return wireValue{BOOL: &v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return wireValue{NULL: true}, nil
	case *types.AttributeValueMemberSS:
		return wireValue{SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return wireValue{NS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return wireValue{BS: v.Value}, nil
	case *types.AttributeValueMemberM:
		m, err := toWireMap(v.Value)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{M: m, IsM: true}, nil
	case *types.AttributeValueMemberL:
		l := make([]wireValue, len(v.Value))
		for i, item := range v.Value {
			w, err := toWire(item)
			if err != nil {
				return wireValue{}, err
			}
			l[i] = w
		}
		return wireValue{L: l, IsL: true}, nil
	default:
		return wireValue{}, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

func fromWireMap(m map[string]wireValue) (Record, error) {
	out := make(Record, len(m))
	for k, w := range m {
		av, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func fromWire(w wireValue) (types.AttributeValue, error) {
	switch {
	case w.S != nil:
		return &types.AttributeValueMemberS{Value: *w.S}, nil
	case w.N != nil:
		return &types.AttributeValueMemberN{Value: *w.N}, nil
	case w.B != nil:
		return &types.AttributeValueMemberB{Value: w.B}, nil
	case w.BOOL != nil:
		return &types.AttributeValueMemberBOOL{Value: *w.BOOL}, nil
	case w.NULL:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case w.SS != nil:
		return &types.AttributeValueMemberSS{Value: w.SS}, nil
	case w.NS != nil:
		return &types.AttributeValueMemberNS{Value: w.NS}, nil
	case w.BS != nil:
		return &types.AttributeValueMemberBS{Value: w.BS}, nil
	case w.IsM:
		m, err := fromWireMap(w.M)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case w.IsL:
		l := make([]types.AttributeValue, len(w.L))
		for i, item := range w.L {
			av, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return nil, fmt.Errorf("empty attribute value")
	}
}
