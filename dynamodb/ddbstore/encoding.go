package ddbstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/acksell/foosball/dynamodb/table"
)

// Badger keys are laid out as
//
//	<table> 0x00 <kind><partition> 0x00 <kind><sort>
//
// so that all records of one partition share a prefix and iterate in sort key
// order. Escaping keeps a 0x00 inside a value from reading as a separator.

const keySeparator byte = 0x00

func encodeKey(def table.TableDefinition, pk table.PrimaryKey) ([]byte, error) {
	buf, err := partitionPrefix(def, pk.Values.PartitionKey)
	if err != nil {
		return nil, err
	}
	if !def.KeyDefinitions.HasSortKey() {
		return buf, nil
	}
	if pk.Values.SortKey == nil {
		return nil, fmt.Errorf("sort key %q is required", def.KeyDefinitions.SortKey.Name)
	}
	sk, err := encodeKeyValue(pk.Values.SortKey, def.KeyDefinitions.SortKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode sort key: %w", err)
	}
	return append(buf, sk...), nil
}

func partitionPrefix(def table.TableDefinition, partition any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(def.Name)
	buf.WriteByte(keySeparator)
	v, err := encodeKeyValue(partition, def.KeyDefinitions.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode partition key: %w", err)
	}
	buf.Write(v)
	buf.WriteByte(keySeparator)
	return buf.Bytes(), nil
}

func encodeKeyValue(value any, kind table.KeyKind) ([]byte, error) {
	switch kind {
	case table.KeyKindS:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for S key, got %T", value)
		}
		return append([]byte{'S'}, escapeBytes([]byte(s))...), nil
	case table.KeyKindN:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		return append([]byte{'N'}, encodeNumber(f)...), nil
	case table.KeyKindB:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected bytes for B key, got %T", value)
		}
		return append([]byte{'B'}, escapeBytes(b)...), nil
	default:
		return nil, fmt.Errorf("unsupported key kind: %s", kind)
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse number %q: %w", v, err)
		}
		return f, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("expected number for N key, got %T", value)
	}
}

// encodeNumber maps a float64 onto 9 bytes whose byte order equals numeric order.
// Non-negative values get marker 0x80 and a flipped sign bit; negative values get
// marker 0x7F and all bits inverted.
func encodeNumber(f float64) []byte {
	bits := math.Float64bits(f)
	buf := make([]byte, 9)
	if f >= 0 {
		buf[0] = 0x80
		bits ^= 1 << 63
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf
}

// escapeBytes writes 0x00 as 0x01 0x01 and 0x01 as 0x01 0x02.
func escapeBytes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case 0x00:
			out = append(out, 0x01, 0x01)
		case 0x01:
			out = append(out, 0x01, 0x02)
		default:
			out = append(out, c)
		}
	}
	return out
}

// prefixEnd returns the smallest key greater than every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
