package client

import (
	"context"
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/server"
)

// ErrParameterSchemaMismatch is returned by SetParameters when batch's
// schema does not equal the statement's declared parameter schema.
var ErrParameterSchemaMismatch = errors.New("client: parameter batch schema does not match prepared statement")

// ErrClosed is returned by any operation on a PreparedStatement after
// Close has been called.
var ErrClosed = errors.New("client: prepared statement is closed")

// PreparedStatement is a client-side handle into a server-side prepared
// statement, created by Client.Prepare (spec.md §4.5).
type PreparedStatement struct {
	client *Client
	handle []byte

	paramSchema  *arrow.Schema
	resultSchema *arrow.Schema

	params arrow.Record
	closed bool
}

// ParameterSchema returns the statement's declared parameter schema, or
// nil if it takes none.
func (p *PreparedStatement) ParameterSchema() *arrow.Schema { return p.paramSchema }

// ResultSchema returns the statement's declared result schema, or nil if
// the server did not advertise one.
func (p *PreparedStatement) ResultSchema() *arrow.Schema { return p.resultSchema }

// SetParameters validates batch's schema against ParameterSchema and
// retains it for the next Execute/ExecuteUpdate call.
func (p *PreparedStatement) SetParameters(batch arrow.Record) error {
	if p.closed {
		return ErrClosed
	}
	if p.paramSchema == nil || !p.paramSchema.Equal(batch.Schema()) {
		return ErrParameterSchemaMismatch
	}
	batch.Retain()
	if p.params != nil {
		p.params.Release()
	}
	p.params = batch
	return nil
}

func (p *PreparedStatement) descriptor() ([]byte, error) {
	return command.Pack(command.CommandPreparedStatementQuery{PreparedStatementHandle: p.handle})
}

// Execute uploads any bound parameters (if SetParameters was called) with
// a PreparedStatementQuery descriptor and then issues DescribeFlight with
// the same descriptor to obtain the result's endpoints.
func (p *PreparedStatement) Execute(ctx context.Context) (*flight.FlightInfo, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.paramSchema != nil && p.params == nil {
		return nil, ErrParameterSchemaMismatch
	}
	descBody, err := p.descriptor()
	if err != nil {
		return nil, err
	}

	if p.params != nil {
		if _, err := p.client.doPutForUpdateResult(ctx, descBody, p.params.Schema(), p.params); err != nil {
			return nil, err
		}
	}

	info, err := p.client.svc.GetFlightInfo(ctx, &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: descBody})
	return info, server.FromStatus(err)
}

// ExecuteUpdate uploads any bound parameters with a
// PreparedStatementUpdate descriptor and returns the affected row count.
func (p *PreparedStatement) ExecuteUpdate(ctx context.Context) (int64, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if p.paramSchema != nil && p.params == nil {
		return 0, ErrParameterSchemaMismatch
	}
	body, err := command.Pack(command.CommandPreparedStatementUpdate{PreparedStatementHandle: p.handle})
	if err != nil {
		return 0, err
	}

	sc := p.paramSchema
	if sc == nil {
		sc = arrowEmptySchema
	}
	return p.client.doPutForUpdateResult(ctx, body, sc, p.params)
}

// Close invokes ClosePreparedStatement and marks the handle closed.
// Idempotent: closing an already-closed statement is a no-op.
func (p *PreparedStatement) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.params != nil {
		p.params.Release()
		p.params = nil
	}

	body, err := command.Pack(command.ActionClosePreparedStatementRequest{PreparedStatementHandle: p.handle})
	if err != nil {
		return err
	}
	stream, err := p.client.svc.DoAction(ctx, &flight.Action{Type: command.ClosePreparedStatementActionType, Body: body})
	if err != nil {
		return server.FromStatus(err)
	}
	for {
		_, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return server.FromStatus(err)
		}
	}
}

var arrowEmptySchema = arrow.NewSchema(nil, nil)
