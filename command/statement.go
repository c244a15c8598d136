package command

// CommandStatementQuery requests execution of an ad-hoc SQL SELECT.
type CommandStatementQuery struct {
	Query string
	// ClientExecutionHandle is an opaque, client-generated correlation
	// token. Absent (nil) unless the client supplied one.
	ClientExecutionHandle []byte
}

func (CommandStatementQuery) typeURL() string { return "CommandStatementQuery" }

func (c CommandStatementQuery) marshalPayload() []byte {
	var b []byte
	b = appendString(b, 1, c.Query)
	b = appendBytes(b, 2, c.ClientExecutionHandle)
	return b
}

// DecodeCommandStatementQuery decodes a CommandStatementQuery payload.
func DecodeCommandStatementQuery(payload []byte) (CommandStatementQuery, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandStatementQuery{}, err
	}
	return CommandStatementQuery{
		Query:                 f.strOr(1, ""),
		ClientExecutionHandle: f.bytes(2),
	}, nil
}

// CommandStatementUpdate requests execution of an INSERT/UPDATE/DELETE.
type CommandStatementUpdate struct {
	Query string
}

func (CommandStatementUpdate) typeURL() string { return "CommandStatementUpdate" }

func (c CommandStatementUpdate) marshalPayload() []byte {
	return appendString(nil, 1, c.Query)
}

// DecodeCommandStatementUpdate decodes a CommandStatementUpdate payload.
func DecodeCommandStatementUpdate(payload []byte) (CommandStatementUpdate, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandStatementUpdate{}, err
	}
	return CommandStatementUpdate{Query: f.strOr(1, "")}, nil
}

// TicketStatementQuery is the server-issued replacement ticket used to pull
// an ad-hoc query's results via GetStream.
type TicketStatementQuery struct {
	StatementHandle []byte
}

func (TicketStatementQuery) typeURL() string { return "TicketStatementQuery" }

func (c TicketStatementQuery) marshalPayload() []byte {
	return appendBytes(nil, 1, c.StatementHandle)
}

// DecodeTicketStatementQuery decodes a TicketStatementQuery payload.
func DecodeTicketStatementQuery(payload []byte) (TicketStatementQuery, error) {
	f, err := parseFields(payload)
	if err != nil {
		return TicketStatementQuery{}, err
	}
	return TicketStatementQuery{StatementHandle: f.bytes(1)}, nil
}
