// Package command implements the Flight SQL command envelope codec: the
// tagged binary container carried in every Flight descriptor, ticket, and
// action body.
//
// Each envelope is a google.protobuf.Any-shaped wrapper: a type URL
// identifying the variant plus a length-delimited payload encoded with the
// standard protobuf wire format (via google.golang.org/protobuf/encoding/
// protowire). The dispatcher unpacks the tag, routes on it, and decodes the
// payload with the matching variant's Decode function.
package command

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// typeURLPrefix mirrors the namespace Apache Arrow uses for Flight SQL
// commands on the wire; any() is deserialized the same way regardless of
// which process minted it.
const typeURLPrefix = "type.googleapis.com/arrow.flight.protocol.sql."

// ErrInvalidEnvelope is returned by Unpack when the supplied bytes are not a
// validly framed Any container.
var ErrInvalidEnvelope = fmt.Errorf("command: not a valid envelope")

// ErrUnknownTag is returned by callers of this package (not by this package
// itself) when a syntactically valid envelope carries a tag other than the
// one expected; the client façade's Prepare returns it for an unexpected
// action result. Defined here so callers can errors.Is against it uniformly.
var ErrUnknownTag = fmt.Errorf("command: unrecognized envelope tag")

// Tag constants name every registered envelope variant, for callers outside
// this package (the dispatcher, the client façade) that need to switch on
// command.Unpack's tag without access to the unexported typeURL method.
const (
	TagStatementQuery                 = "CommandStatementQuery"
	TagStatementUpdate                = "CommandStatementUpdate"
	TagTicketStatementQuery           = "TicketStatementQuery"
	TagPreparedStatementQuery         = "CommandPreparedStatementQuery"
	TagPreparedStatementUpdate        = "CommandPreparedStatementUpdate"
	TagCreatePreparedStatementRequest = "ActionCreatePreparedStatementRequest"
	TagCreatePreparedStatementResult  = "ActionCreatePreparedStatementResult"
	TagClosePreparedStatementRequest  = "ActionClosePreparedStatementRequest"
	TagDoPutUpdateResult              = "DoPutUpdateResult"
	TagGetCatalogs                    = "CommandGetCatalogs"
	TagGetSchemas                     = "CommandGetSchemas"
	TagGetTables                      = "CommandGetTables"
	TagGetTableTypes                  = "CommandGetTableTypes"
	TagGetSqlInfo                     = "CommandGetSqlInfo"
	TagGetPrimaryKeys                 = "CommandGetPrimaryKeys"
	TagGetImportedKeys                = "CommandGetImportedKeys"
	TagGetExportedKeys                = "CommandGetExportedKeys"
	TagGetCrossReference              = "CommandGetCrossReference"
)

// Variant is implemented by every command/ticket/action payload type.
type Variant interface {
	// typeURL returns the fully qualified, published name of this variant.
	typeURL() string
	// marshalPayload encodes the variant's fields using the protobuf wire
	// format for its message number assignments.
	marshalPayload() []byte
}

// Pack encodes v into a canonical envelope: two calls on equal variants
// always produce equal bytes, because marshalPayload is a pure function of
// the variant's field values and fields are always emitted in the same
// order.
func Pack(v Variant) ([]byte, error) {
	any := &anypb.Any{
		TypeUrl: typeURLPrefix + v.typeURL(),
		Value:   v.marshalPayload(),
	}
	return proto.Marshal(any)
}

// Unpack decodes the tag and raw payload from an envelope without
// interpreting the payload. It fails with ErrInvalidEnvelope if b is not a
// validly framed Any container.
func Unpack(b []byte) (tag string, payload []byte, err error) {
	var any anypb.Any
	if err := proto.Unmarshal(b, &any); err != nil {
		return "", nil, ErrInvalidEnvelope
	}
	if any.TypeUrl == "" {
		return "", nil, ErrInvalidEnvelope
	}
	tag = any.TypeUrl
	if len(tag) > len(typeURLPrefix) && tag[:len(typeURLPrefix)] == typeURLPrefix {
		tag = tag[len(typeURLPrefix):]
	}
	return tag, any.Value, nil
}

// Is reports whether b's envelope tag matches v's variant, without
// decoding the payload.
func Is(b []byte, v Variant) bool {
	tag, _, err := Unpack(b)
	if err != nil {
		return false
	}
	return tag == v.typeURL()
}
