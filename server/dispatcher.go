// Package server implements the Flight SQL command dispatcher: the routing
// layer that decodes envelopes carried in Flight descriptors, tickets, and
// actions and dispatches them to a SqlBackend collaborator (spec.md §4.3).
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/schemaref"
)

// defaultPreparedStatementIdleTimeout matches spec.md §4.4's engine-defined
// idle expiry timer.
const defaultPreparedStatementIdleTimeout = 10 * time.Minute

// Config controls the dispatcher's resource limits.
type Config struct {
	// Allocator is used for every record batch the dispatcher builds.
	// OPTIONAL, defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
	// Logger receives Debug-level routing and Warn-level eviction
	// records. OPTIONAL, defaults to slog.Default().
	Logger *slog.Logger
	// MaxPreparedStatements bounds the prepared statement handle cache.
	// OPTIONAL, defaults to 100.
	MaxPreparedStatements int
	// PreparedStatementIdleTimeout expires an unused prepared statement
	// handle and closes its backend statement. OPTIONAL, defaults to
	// 10 minutes; a negative value disables idle expiry entirely.
	PreparedStatementIdleTimeout time.Duration
}

// NewFlightServer wraps backend in a flight.FlightServer that speaks the
// Flight SQL command protocol, ready to register with a grpc.Server via
// flight.RegisterFlightServiceServer.
func NewFlightServer(backend SqlBackend, cfg Config) flight.FlightServer {
	mem := cfg.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxPrepared := cfg.MaxPreparedStatements
	if maxPrepared <= 0 {
		maxPrepared = 100
	}
	idleTimeout := cfg.PreparedStatementIdleTimeout
	switch {
	case idleTimeout == 0:
		idleTimeout = defaultPreparedStatementIdleTimeout
	case idleTimeout < 0:
		idleTimeout = 0
	}
	return &dispatcher{
		backend:  backend,
		mem:      mem,
		log:      logger,
		prepared: NewPreparedStatements(maxPrepared, idleTimeout, logger),
		pending:  map[string]*QueryResult{},
	}
}

// dispatcher routes decoded Flight SQL commands to backend. pending holds
// ad-hoc statement results materialized at GetFlightInfo time, keyed by a
// server-generated handle, until the single DoGet that consumes them
// arrives (spec.md §4.1's describe/then/stream split).
type dispatcher struct {
	flight.BaseFlightServer

	backend SqlBackend
	mem     memory.Allocator
	log     *slog.Logger

	prepared *PreparedStatements

	pendingMu sync.Mutex
	pending   map[string]*QueryResult
}

func (d *dispatcher) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	tag, payload, err := command.Unpack(desc.Cmd)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unable to parse command: %s", err)
	}
	d.log.Debug("GetFlightInfo", "command", tag)

	switch tag {
	case command.TagStatementQuery:
		cmd, err := command.DecodeCommandStatementQuery(payload)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s", err)
		}
		return d.getFlightInfoStatement(ctx, desc, cmd)
	case command.TagPreparedStatementQuery:
		cmd, err := command.DecodeCommandPreparedStatementQuery(payload)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s", err)
		}
		return d.getFlightInfoPreparedStatement(desc, cmd)
	case command.TagGetCatalogs:
		return d.getFlightInfoFixed(desc, schemaref.Catalogs)
	case command.TagGetSchemas:
		return d.getFlightInfoFixed(desc, schemaref.Schemas)
	case command.TagGetTables:
		cmd, err := command.DecodeCommandGetTables(payload)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sc := schemaref.Tables
		if cmd.IncludeSchema {
			sc = schemaref.TablesWithSchema
		}
		return d.getFlightInfoFixed(desc, sc)
	case command.TagGetTableTypes:
		return d.getFlightInfoFixed(desc, schemaref.TableTypes)
	case command.TagGetSqlInfo:
		return d.getFlightInfoFixed(desc, schemaref.SqlInfo)
	case command.TagGetPrimaryKeys:
		return d.getFlightInfoFixed(desc, schemaref.PrimaryKeys)
	case command.TagGetImportedKeys:
		return d.getFlightInfoFixed(desc, schemaref.ImportedKeys)
	case command.TagGetExportedKeys:
		return d.getFlightInfoFixed(desc, schemaref.ExportedKeys)
	case command.TagGetCrossReference:
		return d.getFlightInfoFixed(desc, schemaref.CrossReference)
	}

	return nil, status.Error(codes.InvalidArgument, "requested command is invalid")
}

func (d *dispatcher) getFlightInfoFixed(desc *flight.FlightDescriptor, sc *arrow.Schema) (*flight.FlightInfo, error) {
	return &flight.FlightInfo{
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{{Ticket: &flight.Ticket{Ticket: desc.Cmd}}},
		Schema:           flight.SerializeSchema(sc, d.mem),
		TotalRecords:     -1,
		TotalBytes:       -1,
	}, nil
}

func (d *dispatcher) getFlightInfoStatement(ctx context.Context, desc *flight.FlightDescriptor, cmd command.CommandStatementQuery) (*flight.FlightInfo, error) {
	result, err := d.backend.Query(ctx, cmd.Query)
	if err != nil {
		return nil, toStatus(NewBackendError(err, ""))
	}

	handle := []byte(uuid.NewString())
	ticketBytes, err := command.Pack(command.TicketStatementQuery{StatementHandle: handle})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%s", err)
	}
	d.cacheResult(handle, result)

	return &flight.FlightInfo{
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{{Ticket: &flight.Ticket{Ticket: ticketBytes}}},
		Schema:           flight.SerializeSchema(result.Schema, d.mem),
		TotalRecords:     -1,
		TotalBytes:       -1,
	}, nil
}

func (d *dispatcher) getFlightInfoPreparedStatement(desc *flight.FlightDescriptor, cmd command.CommandPreparedStatementQuery) (*flight.FlightInfo, error) {
	entry, err := d.prepared.Get(cmd.PreparedStatementHandle)
	if err != nil {
		return nil, toStatus(err)
	}
	if entry.Stmt.ParameterSchema() != nil && !entry.hasParams() {
		return nil, toStatus(ErrSchemaMismatch)
	}
	resultSchema := entry.Stmt.ResultSchema()
	if resultSchema == nil {
		resultSchema = arrow.NewSchema(nil, nil)
	}

	ticketBytes, err := command.Pack(cmd)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%s", err)
	}
	return &flight.FlightInfo{
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{{Ticket: &flight.Ticket{Ticket: ticketBytes}}},
		Schema:           flight.SerializeSchema(resultSchema, d.mem),
		TotalRecords:     -1,
		TotalBytes:       -1,
	}, nil
}

func (d *dispatcher) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	tag, payload, err := command.Unpack(ticket.Ticket)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "unable to parse ticket: %s", err)
	}

	ctx := stream.Context()
	d.log.Debug("DoGet", "ticket", tag)

	switch tag {
	case command.TagTicketStatementQuery:
		cmd, err := command.DecodeTicketStatementQuery(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		result, err := d.takeCachedResult(cmd.StatementHandle)
		if err != nil {
			return toStatus(err)
		}
		return d.streamResult(stream, result)

	case command.TagGetCatalogs:
		sb, ok := d.backend.(CatalogsBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		catalogs, err := sb.Catalogs(ctx)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := catalogsRecord(d.mem, catalogs)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.Catalogs, rec)

	case command.TagGetSchemas:
		cmd, err := command.DecodeCommandGetSchemas(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(SchemasBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		rows, err := sb.Schemas(ctx, cmd.Catalog, cmd.SchemaFilterPattern)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := schemasRecord(d.mem, rows)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.Schemas, rec)

	case command.TagGetTables:
		cmd, err := command.DecodeCommandGetTables(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(TablesBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		rows, err := sb.Tables(ctx, cmd.Catalog, cmd.SchemaFilterPattern, cmd.TableNameFilterPattern, cmd.TableTypes, cmd.IncludeSchema)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := tablesRecord(d.mem, rows, cmd.IncludeSchema)
		defer rec.Release()
		sc := schemaref.Tables
		if cmd.IncludeSchema {
			sc = schemaref.TablesWithSchema
		}
		return d.writeSingleBatch(stream, sc, rec)

	case command.TagGetTableTypes:
		sb, ok := d.backend.(TablesBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		types, err := sb.TableTypes(ctx)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := tableTypesRecord(d.mem, types)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.TableTypes, rec)

	case command.TagGetSqlInfo:
		cmd, err := command.DecodeCommandGetSqlInfo(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(SqlInfoBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		info, err := sb.SqlInfo(ctx, cmd.Info)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec, err := sqlInfoRecord(d.mem, info, cmd.Info)
		if err != nil {
			return status.Errorf(codes.Internal, "%s", err)
		}
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.SqlInfo, rec)

	case command.TagGetPrimaryKeys:
		cmd, err := command.DecodeCommandGetPrimaryKeys(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(PrimaryKeysBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		rows, err := sb.PrimaryKeys(ctx, cmd.TableRef)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := primaryKeysRecord(d.mem, rows)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.PrimaryKeys, rec)

	case command.TagGetImportedKeys:
		cmd, err := command.DecodeCommandGetImportedKeys(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(ImportedKeysBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		rows, err := sb.ImportedKeys(ctx, cmd.TableRef)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := foreignKeysRecord(d.mem, schemaref.ImportedKeys, rows)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.ImportedKeys, rec)

	case command.TagGetExportedKeys:
		cmd, err := command.DecodeCommandGetExportedKeys(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(ExportedKeysBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		rows, err := sb.ExportedKeys(ctx, cmd.TableRef)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := foreignKeysRecord(d.mem, schemaref.ExportedKeys, rows)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.ExportedKeys, rec)

	case command.TagGetCrossReference:
		cmd, err := command.DecodeCommandGetCrossReference(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		sb, ok := d.backend.(CrossReferenceBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		rows, err := sb.CrossReference(ctx, cmd.CrossTableRef)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		rec := foreignKeysRecord(d.mem, schemaref.CrossReference, rows)
		defer rec.Release()
		return d.writeSingleBatch(stream, schemaref.CrossReference, rec)

	case command.TagPreparedStatementQuery:
		cmd, err := command.DecodeCommandPreparedStatementQuery(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		return d.doGetPreparedStatement(ctx, stream, cmd)

	default:
		return status.Error(codes.InvalidArgument, "requested ticket is invalid")
	}
}

func (d *dispatcher) doGetPreparedStatement(ctx context.Context, stream flight.FlightService_DoGetServer, cmd command.CommandPreparedStatementQuery) error {
	entry, err := d.prepared.Get(cmd.PreparedStatementHandle)
	if err != nil {
		return toStatus(err)
	}
	if err := entry.acquire(); err != nil {
		return toStatus(err)
	}
	defer entry.release()

	params := entry.takeParams()
	if params != nil {
		defer params.Release()
	}
	if entry.Stmt.ParameterSchema() != nil && params == nil {
		return toStatus(ErrSchemaMismatch)
	}

	result, err := entry.Stmt.Execute(ctx, params)
	if err != nil {
		return toStatus(NewBackendError(err, ""))
	}
	return d.streamResult(stream, result)
}

// streamResult writes result's batches to stream using the IPC record
// writer, releasing each batch after it is written.
func (d *dispatcher) streamResult(stream flight.FlightService_DoGetServer, result *QueryResult) error {
	sc := result.Schema
	if sc == nil {
		sc = arrow.NewSchema(nil, nil)
	}
	wr := flight.NewRecordWriter(stream, ipc.WithSchema(sc))
	defer wr.Close()

	for _, batch := range result.Batches {
		if err := wr.Write(batch); err != nil {
			return status.Errorf(codes.Internal, "%s", err)
		}
		batch.Release()
	}
	return nil
}

func (d *dispatcher) writeSingleBatch(stream flight.FlightService_DoGetServer, sc *arrow.Schema, rec arrow.Record) error {
	wr := flight.NewRecordWriter(stream, ipc.WithSchema(sc))
	defer wr.Close()
	if err := wr.Write(rec); err != nil {
		return status.Errorf(codes.Internal, "%s", err)
	}
	return nil
}

func (d *dispatcher) DoPut(stream flight.FlightService_DoPutServer) error {
	rdr, err := flight.NewRecordReader(stream, ipc.WithAllocator(d.mem), ipc.WithDelayReadSchema(true))
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to read input stream: %s", err)
	}
	defer rdr.Release()

	desc := rdr.LatestFlightDescriptor()
	tag, payload, err := command.Unpack(desc.Cmd)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "unable to parse command: %s", err)
	}

	ctx := stream.Context()

	switch tag {
	case command.TagStatementUpdate:
		cmd, err := command.DecodeCommandStatementUpdate(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		ub, ok := d.backend.(UpdateBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		n, err := ub.ExecuteUpdate(ctx, cmd.Query)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		return sendUpdateResult(stream, n)

	case command.TagPreparedStatementQuery:
		cmd, err := command.DecodeCommandPreparedStatementQuery(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		entry, err := d.prepared.Get(cmd.PreparedStatementHandle)
		if err != nil {
			return toStatus(err)
		}
		if err := entry.acquire(); err != nil {
			return toStatus(err)
		}
		defer entry.release()

		var batch arrow.Record
		for rdr.Next() {
			batch = rdr.Record()
		}
		if batch == nil {
			return status.Error(codes.InvalidArgument, "expected one record batch of bound parameters")
		}
		if err := entry.Bind(batch); err != nil {
			return toStatus(err)
		}
		return nil

	case command.TagPreparedStatementUpdate:
		cmd, err := command.DecodeCommandPreparedStatementUpdate(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		entry, err := d.prepared.Get(cmd.PreparedStatementHandle)
		if err != nil {
			return toStatus(err)
		}
		if err := entry.acquire(); err != nil {
			return toStatus(err)
		}
		defer entry.release()

		var batch arrow.Record
		for rdr.Next() {
			batch = rdr.Record()
		}

		n, err := entry.Stmt.ExecuteUpdate(ctx, batch)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		return sendUpdateResult(stream, n)

	default:
		return status.Error(codes.InvalidArgument, "the defined request is invalid")
	}
}

func sendUpdateResult(stream flight.FlightService_DoPutServer, n int64) error {
	body, err := command.Pack(command.DoPutUpdateResult{RecordCount: n})
	if err != nil {
		return status.Errorf(codes.Internal, "%s", err)
	}
	return stream.Send(&flight.PutResult{AppMetadata: body})
}

func (d *dispatcher) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	actions := []string{command.CreatePreparedStatementActionType, command.ClosePreparedStatementActionType}
	for _, a := range actions {
		if err := stream.Send(&flight.ActionType{Type: a}); err != nil {
			return err
		}
	}
	return nil
}

func (d *dispatcher) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := stream.Context()

	switch action.Type {
	case command.CreatePreparedStatementActionType:
		tag, payload, err := command.Unpack(action.Body)
		if err != nil || tag != command.TagCreatePreparedStatementRequest {
			return status.Errorf(codes.InvalidArgument, "unable to parse action body: %v", err)
		}
		req, err := command.DecodeActionCreatePreparedStatementRequest(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		pb, ok := d.backend.(PreparedBackend)
		if !ok {
			return toStatus(ErrNotImplemented)
		}
		stmt, err := pb.Prepare(ctx, req.Query)
		if err != nil {
			return toStatus(NewBackendError(err, ""))
		}
		entry := d.prepared.Create(stmt, req.Query)

		result := command.ActionCreatePreparedStatementResult{PreparedStatementHandle: entry.Handle}
		if sc := stmt.ResultSchema(); sc != nil {
			result.DatasetSchema = flight.SerializeSchema(sc, d.mem)
		}
		if sc := stmt.ParameterSchema(); sc != nil {
			result.ParameterSchema = flight.SerializeSchema(sc, d.mem)
		}

		body, err := command.Pack(result)
		if err != nil {
			return status.Errorf(codes.Internal, "%s", err)
		}
		return stream.Send(&flight.Result{Body: body})

	case command.ClosePreparedStatementActionType:
		tag, payload, err := command.Unpack(action.Body)
		if err != nil || tag != command.TagClosePreparedStatementRequest {
			return status.Errorf(codes.InvalidArgument, "unable to parse action body: %v", err)
		}
		req, err := command.DecodeActionClosePreparedStatementRequest(payload)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%s", err)
		}
		if err := d.prepared.Close(ctx, req.PreparedStatementHandle); err != nil {
			return toStatus(err)
		}
		return stream.Send(&flight.Result{})

	default:
		return status.Error(codes.InvalidArgument, "the defined request is invalid")
	}
}

func (d *dispatcher) cacheResult(handle []byte, result *QueryResult) {
	d.pendingMu.Lock()
	d.pending[string(handle)] = result
	d.pendingMu.Unlock()
}

func (d *dispatcher) takeCachedResult(handle []byte) (*QueryResult, error) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	result, ok := d.pending[string(handle)]
	if !ok {
		return nil, ErrHandleNotFound
	}
	delete(d.pending, string(handle))
	return result, nil
}
