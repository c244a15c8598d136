// Package client implements the Flight SQL client façade (spec.md §4.5): a
// thin wrapper over the generated flight.FlightServiceClient that packs
// command envelopes, issues the four Flight verbs, and unpacks results back
// into Go values and arrow.Record streams.
package client

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/server"
)

// Config controls how a Client dials and pools transport connections.
type Config struct {
	// Address is the host:port of the server's primary location. REQUIRED.
	Address string
	// Allocator is used to build every uploaded record batch and to
	// deserialize every schema the server returns. OPTIONAL, defaults to
	// memory.DefaultAllocator.
	Allocator memory.Allocator
	// DialOptions are appended after the client's own transport-credential
	// option, letting callers add TLS, interceptors, and the like.
	// OPTIONAL.
	DialOptions []grpc.DialOption
}

// Client is a Flight SQL client bound to one primary location, with a
// best-effort connection pool for the locations named in FlightInfo
// endpoints (spec.md §4.5's GetStream pooling note).
type Client struct {
	mem  memory.Allocator
	pool *connPool

	svc flight.FlightServiceClient
}

// New dials cfg.Address and returns a ready Client. The returned Client
// owns its connections; call Close when done with it.
func New(cfg Config) (*Client, error) {
	mem := cfg.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	pool := newConnPool(cfg.DialOptions)
	conn, err := pool.get(cfg.Address)
	if err != nil {
		return nil, err
	}
	return &Client{
		mem:  mem,
		pool: pool,
		svc:  flight.NewFlightServiceClient(conn),
	}, nil
}

// Close releases every pooled connection.
func (c *Client) Close() error { return c.pool.closeAll() }

// Execute packs an ad-hoc CommandStatementQuery and returns the FlightInfo
// describing where to stream its results from (spec.md §4.5).
func (c *Client) Execute(ctx context.Context, sql string) (*flight.FlightInfo, error) {
	body, err := command.Pack(command.CommandStatementQuery{Query: sql})
	if err != nil {
		return nil, err
	}
	info, err := c.svc.GetFlightInfo(ctx, &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: body})
	return info, server.FromStatus(err)
}

// ExecuteUpdate packs a CommandStatementUpdate, uploads a schema-only empty
// batch via PutStream, and returns the affected row count carried back in
// the single DoPutUpdateResult metadata message.
func (c *Client) ExecuteUpdate(ctx context.Context, sql string) (int64, error) {
	body, err := command.Pack(command.CommandStatementUpdate{Query: sql})
	if err != nil {
		return 0, err
	}
	return c.doPutForUpdateResult(ctx, body, arrow.NewSchema(nil, nil), nil)
}

// Prepare invokes CreatePreparedStatement and returns a handle to the
// resulting statement, holding its parameter and result schemas (empty
// payloads decode to a nil schema, meaning "none").
func (c *Client) Prepare(ctx context.Context, sql string) (*PreparedStatement, error) {
	reqBody, err := command.Pack(command.ActionCreatePreparedStatementRequest{Query: sql})
	if err != nil {
		return nil, err
	}
	stream, err := c.svc.DoAction(ctx, &flight.Action{Type: command.CreatePreparedStatementActionType, Body: reqBody})
	if err != nil {
		return nil, server.FromStatus(err)
	}
	result, err := stream.Recv()
	if err != nil {
		return nil, server.FromStatus(err)
	}
	tag, payload, err := command.Unpack(result.Body)
	if err != nil || tag != command.TagCreatePreparedStatementResult {
		return nil, command.ErrUnknownTag
	}
	decoded, err := command.DecodeActionCreatePreparedStatementResult(payload)
	if err != nil {
		return nil, err
	}

	ps := &PreparedStatement{client: c, handle: decoded.PreparedStatementHandle}
	if len(decoded.ParameterSchema) > 0 {
		ps.paramSchema, err = flight.DeserializeSchema(decoded.ParameterSchema, c.mem)
		if err != nil {
			return nil, err
		}
	}
	if len(decoded.DatasetSchema) > 0 {
		ps.resultSchema, err = flight.DeserializeSchema(decoded.DatasetSchema, c.mem)
		if err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// doPutForUpdateResult runs a single-batch PutStream for cmdBody and
// returns the record_count carried in the server's DoPutUpdateResult
// metadata. batch may be nil, in which case a zero-row record of sc is
// uploaded instead (an update statement with no parameters to bind).
func (c *Client) doPutForUpdateResult(ctx context.Context, cmdBody []byte, sc *arrow.Schema, batch arrow.Record) (int64, error) {
	stream, err := c.svc.DoPut(ctx)
	if err != nil {
		return 0, server.FromStatus(err)
	}

	wr := flight.NewRecordWriter(stream, ipc.WithSchema(sc), ipc.WithAllocator(c.mem))
	wr.SetFlightDescriptor(&flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: cmdBody})

	rec := batch
	if rec == nil {
		bldr := array.NewRecordBuilder(c.mem, sc)
		rec = bldr.NewRecord()
		bldr.Release()
		defer rec.Release()
	}
	if err := wr.Write(rec); err != nil {
		return 0, server.FromStatus(err)
	}
	if err := wr.Close(); err != nil {
		return 0, server.FromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return 0, server.FromStatus(err)
	}

	var count int64
	for {
		pr, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, server.FromStatus(err)
		}
		tag, payload, err := command.Unpack(pr.AppMetadata)
		if err != nil || tag != command.TagDoPutUpdateResult {
			continue
		}
		result, err := command.DecodeDoPutUpdateResult(payload)
		if err != nil {
			return 0, err
		}
		count = result.RecordCount
	}
	return count, nil
}

// GetStream opens GetStream against every endpoint of info in order and
// yields their record batches through fn. Iteration stops at the first
// error fn returns or the stream produces. Endpoints naming a non-empty
// Location are routed through the per-location connection pool
// (spec.md §4.5); endpoints with none reuse the client's primary
// connection.
func (c *Client) GetStream(ctx context.Context, info *flight.FlightInfo, fn func(arrow.Record) error) error {
	for _, ep := range info.Endpoint {
		svc := c.svc
		if len(ep.Location) > 0 {
			conn, err := c.pool.get(ep.Location[0].Uri)
			if err != nil {
				return err
			}
			svc = flight.NewFlightServiceClient(conn)
		}

		stream, err := svc.DoGet(ctx, ep.Ticket)
		if err != nil {
			return server.FromStatus(err)
		}
		if err := c.drain(stream, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) drain(stream flight.FlightService_DoGetClient, fn func(arrow.Record) error) error {
	rdr, err := flight.NewRecordReader(stream, ipc.WithAllocator(c.mem))
	if err != nil {
		return server.FromStatus(err)
	}
	defer rdr.Release()

	for rdr.Next() {
		if err := fn(rdr.Record()); err != nil {
			return err
		}
	}
	return server.FromStatus(rdr.Err())
}
