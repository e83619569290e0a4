// Package clngrpc is a minimal client for Core Lightning's grpc plugin. It
// covers the three Node methods corebos uses and encodes their messages by
// field number with protowire.
package clngrpc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const codecName = "proto"

// message is implemented by every request and response type in this package.
type message interface {
	marshalWire() []byte
	unmarshalWire(b []byte) error
}

// codec satisfies grpc's encoding.Codec for the types in this package.
type codec struct{}

func (codec) Name() string { return codecName }

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("clngrpc: cannot marshal %T", v)
	}
	return m.marshalWire(), nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("clngrpc: cannot unmarshal into %T", v)
	}
	return m.unmarshalWire(data)
}

// field is one decoded top level field. Only varint and length-delimited
// values are kept; other wire types are skipped.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func parseFields(b []byte) ([]field, error) {
	var fields []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.bytes = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

// appendAmount writes a cln.Amount submessage. Zero amounts are still sent
// since the field is required in the schema.
func appendAmount(b []byte, num protowire.Number, msat uint64) []byte {
	inner := protowire.AppendTag(nil, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, msat)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func parseAmount(b []byte) (uint64, error) {
	fields, err := parseFields(b)
	if err != nil {
		return 0, err
	}
	for _, f := range fields {
		if f.num == 1 && f.typ == protowire.VarintType {
			return f.varint, nil
		}
	}
	return 0, nil
}
