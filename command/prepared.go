package command

// CommandPreparedStatementQuery carries the handle of a previously created
// prepared SELECT, used both as a PutStream descriptor (to bind parameters)
// and as a DescribeFlight/GetStream descriptor (to execute and fetch).
type CommandPreparedStatementQuery struct {
	PreparedStatementHandle []byte
}

func (CommandPreparedStatementQuery) typeURL() string { return "CommandPreparedStatementQuery" }

func (c CommandPreparedStatementQuery) marshalPayload() []byte {
	return appendBytes(nil, 1, c.PreparedStatementHandle)
}

// DecodeCommandPreparedStatementQuery decodes a
// CommandPreparedStatementQuery payload.
func DecodeCommandPreparedStatementQuery(payload []byte) (CommandPreparedStatementQuery, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandPreparedStatementQuery{}, err
	}
	return CommandPreparedStatementQuery{PreparedStatementHandle: f.bytes(1)}, nil
}

// CommandPreparedStatementUpdate carries the handle of a prepared
// INSERT/UPDATE/DELETE, used as a PutStream descriptor.
type CommandPreparedStatementUpdate struct {
	PreparedStatementHandle []byte
}

func (CommandPreparedStatementUpdate) typeURL() string { return "CommandPreparedStatementUpdate" }

func (c CommandPreparedStatementUpdate) marshalPayload() []byte {
	return appendBytes(nil, 1, c.PreparedStatementHandle)
}

// DecodeCommandPreparedStatementUpdate decodes a
// CommandPreparedStatementUpdate payload.
func DecodeCommandPreparedStatementUpdate(payload []byte) (CommandPreparedStatementUpdate, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandPreparedStatementUpdate{}, err
	}
	return CommandPreparedStatementUpdate{PreparedStatementHandle: f.bytes(1)}, nil
}

// ActionCreatePreparedStatementRequest is the body of a
// CreatePreparedStatement action.
type ActionCreatePreparedStatementRequest struct {
	Query string
}

func (ActionCreatePreparedStatementRequest) typeURL() string {
	return "ActionCreatePreparedStatementRequest"
}

func (c ActionCreatePreparedStatementRequest) marshalPayload() []byte {
	return appendString(nil, 1, c.Query)
}

// DecodeActionCreatePreparedStatementRequest decodes a
// ActionCreatePreparedStatementRequest payload.
func DecodeActionCreatePreparedStatementRequest(payload []byte) (ActionCreatePreparedStatementRequest, error) {
	f, err := parseFields(payload)
	if err != nil {
		return ActionCreatePreparedStatementRequest{}, err
	}
	return ActionCreatePreparedStatementRequest{Query: f.strOr(1, "")}, nil
}

// ActionCreatePreparedStatementResult is the result of
// CreatePreparedStatement: the new handle plus the serialized parameter and
// result-set schemas (either may be empty, per spec.md §3).
type ActionCreatePreparedStatementResult struct {
	PreparedStatementHandle []byte
	DatasetSchema           []byte
	ParameterSchema         []byte
}

func (ActionCreatePreparedStatementResult) typeURL() string {
	return "ActionCreatePreparedStatementResult"
}

func (c ActionCreatePreparedStatementResult) marshalPayload() []byte {
	var b []byte
	b = appendBytes(b, 1, c.PreparedStatementHandle)
	b = appendBytes(b, 2, c.DatasetSchema)
	b = appendBytes(b, 3, c.ParameterSchema)
	return b
}

// DecodeActionCreatePreparedStatementResult decodes an
// ActionCreatePreparedStatementResult payload.
func DecodeActionCreatePreparedStatementResult(payload []byte) (ActionCreatePreparedStatementResult, error) {
	f, err := parseFields(payload)
	if err != nil {
		return ActionCreatePreparedStatementResult{}, err
	}
	return ActionCreatePreparedStatementResult{
		PreparedStatementHandle: f.bytes(1),
		DatasetSchema:           f.bytes(2),
		ParameterSchema:         f.bytes(3),
	}, nil
}

// ActionClosePreparedStatementRequest is the body of a
// ClosePreparedStatement action.
type ActionClosePreparedStatementRequest struct {
	PreparedStatementHandle []byte
}

func (ActionClosePreparedStatementRequest) typeURL() string {
	return "ActionClosePreparedStatementRequest"
}

func (c ActionClosePreparedStatementRequest) marshalPayload() []byte {
	return appendBytes(nil, 1, c.PreparedStatementHandle)
}

// DecodeActionClosePreparedStatementRequest decodes an
// ActionClosePreparedStatementRequest payload.
func DecodeActionClosePreparedStatementRequest(payload []byte) (ActionClosePreparedStatementRequest, error) {
	f, err := parseFields(payload)
	if err != nil {
		return ActionClosePreparedStatementRequest{}, err
	}
	return ActionClosePreparedStatementRequest{PreparedStatementHandle: f.bytes(1)}, nil
}

// DoPutUpdateResult is the app-metadata body returned on the single
// response of a PutStream for an update statement.
type DoPutUpdateResult struct {
	RecordCount int64
}

func (DoPutUpdateResult) typeURL() string { return "DoPutUpdateResult" }

func (c DoPutUpdateResult) marshalPayload() []byte {
	return appendInt64(nil, 1, c.RecordCount)
}

// DecodeDoPutUpdateResult decodes a DoPutUpdateResult payload.
func DecodeDoPutUpdateResult(payload []byte) (DoPutUpdateResult, error) {
	f, err := parseFields(payload)
	if err != nil {
		return DoPutUpdateResult{}, err
	}
	return DoPutUpdateResult{RecordCount: f.int64Or(1, 0)}, nil
}

// Action type names registered via ListActions (spec.md §6).
const (
	CreatePreparedStatementActionType = "CreatePreparedStatement"
	ClosePreparedStatementActionType  = "ClosePreparedStatement"
)
