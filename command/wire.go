package command

import "google.golang.org/protobuf/encoding/protowire"

// fields is the decoded, field-number-indexed view of a payload used by
// every variant's decode function. Length-delimited values (strings,
// bytes, nested messages) are kept in wire order per field number; varints
// are kept separately. Variants only ever use one kind per field number, so
// the split keeps call sites simple.
type fields struct {
	bytesByField  map[protowire.Number][][]byte
	varintByField map[protowire.Number][]uint64
}

// parseFields walks a length-delimited payload field by field. Varint and
// length-delimited fields with unknown numbers are collected too
// (protobuf's forward-compatible decoding rule) but are never consulted by
// a decode function that doesn't know about them; fixed32 and fixed64
// fields are skipped without being kept.
func parseFields(b []byte) (*fields, error) {
	f := &fields{
		bytesByField:  make(map[protowire.Number][][]byte),
		varintByField: make(map[protowire.Number][]uint64),
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrInvalidEnvelope
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, ErrInvalidEnvelope
			}
			f.varintByField[num] = append(f.varintByField[num], v)
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, ErrInvalidEnvelope
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			f.bytesByField[num] = append(f.bytesByField[num], cp)
			b = b[n:]
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, ErrInvalidEnvelope
			}
			b = b[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, ErrInvalidEnvelope
			}
			b = b[n:]
		default:
			return nil, ErrInvalidEnvelope
		}
	}
	return f, nil
}

func (f *fields) str(num protowire.Number) *string {
	vs := f.bytesByField[num]
	if len(vs) == 0 {
		return nil
	}
	s := string(vs[len(vs)-1])
	return &s
}

func (f *fields) strOr(num protowire.Number, def string) string {
	if s := f.str(num); s != nil {
		return *s
	}
	return def
}

func (f *fields) bytes(num protowire.Number) []byte {
	vs := f.bytesByField[num]
	if len(vs) == 0 {
		return nil
	}
	return vs[len(vs)-1]
}

func (f *fields) repeatedStr(num protowire.Number) []string {
	vs := f.bytesByField[num]
	if vs == nil {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func (f *fields) repeatedInt32(num protowire.Number) []int32 {
	vs := f.varintByField[num]
	if vs == nil {
		return nil
	}
	out := make([]int32, len(vs))
	for i, v := range vs {
		out[i] = int32(v)
	}
	return out
}

func (f *fields) int64Or(num protowire.Number, def int64) int64 {
	vs := f.varintByField[num]
	if len(vs) == 0 {
		return def
	}
	return int64(vs[len(vs)-1])
}

func (f *fields) boolOr(num protowire.Number, def bool) bool {
	vs := f.varintByField[num]
	if len(vs) == 0 {
		return def
	}
	return vs[len(vs)-1] != 0
}

// --- encoding helpers -------------------------------------------------

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// appendOptString encodes s even when empty, as long as it is non-nil,
// preserving the three-valued present/absent/empty semantics spec.md
// requires for metadata filter fields.
func appendOptString(b []byte, num protowire.Number, s *string) []byte {
	if s == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendRepeatedStr(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func appendRepeatedInt32(b []byte, num protowire.Number, vs []int32) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(v)))
	}
	return b
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}
