package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/flightsql/engine/command"
)

var paramSchema = arrow.NewSchema([]arrow.Field{
	{Name: "p0", Type: arrow.PrimitiveTypes.Int32},
}, nil)

// stubStatement is a minimal PreparedBackendStatement for exercising the
// lifecycle manager independent of any real backend.
type stubStatement struct {
	closed bool
}

func (s *stubStatement) ParameterSchema() *arrow.Schema { return paramSchema }
func (s *stubStatement) ResultSchema() *arrow.Schema    { return nil }
func (s *stubStatement) Execute(context.Context, arrow.Record) (*QueryResult, error) {
	return &QueryResult{}, nil
}
func (s *stubStatement) ExecuteUpdate(context.Context, arrow.Record) (int64, error) { return 0, nil }
func (s *stubStatement) Close(context.Context) error {
	s.closed = true
	return nil
}

func paramBatch(t *testing.T) arrow.Record {
	t.Helper()
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, paramSchema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int32Builder).Append(1)
	return bldr.NewRecord()
}

func TestPreparedStatementLifecycleAlwaysEndsClosed(t *testing.T) {
	reg := NewPreparedStatements(10, 0, nil)
	stmt := &stubStatement{}
	entry := reg.Create(stmt, "SELECT ?")

	if err := entry.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	entry.release()

	if err := reg.Close(context.Background(), entry.Handle); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stmt.closed {
		t.Fatal("expected backend statement to be closed")
	}

	if err := reg.Close(context.Background(), entry.Handle); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}

	if _, err := reg.Get(entry.Handle); !errors.Is(err, ErrHandleNotFound) {
		t.Fatalf("expected ErrHandleNotFound after close, got %v", err)
	}
}

func TestPreparedStatementPostCloseBindFails(t *testing.T) {
	reg := NewPreparedStatements(10, 0, nil)
	entry := reg.Create(&stubStatement{}, "SELECT 1")
	_ = reg.Close(context.Background(), entry.Handle)

	if err := entry.Bind(paramBatch(t)); err == nil {
		t.Fatal("expected an error binding a closed entry's statement, got nil")
	}
}

func TestSchemaMismatchGatesBind(t *testing.T) {
	reg := NewPreparedStatements(10, 0, nil)
	entry := reg.Create(&stubStatement{}, "SELECT ?")

	wrongSchema := arrow.NewSchema([]arrow.Field{{Name: "wrong", Type: arrow.BinaryTypes.String}}, nil)
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, wrongSchema)
	bldr.Field(0).(*array.StringBuilder).Append("x")
	batch := bldr.NewRecord()
	bldr.Release()
	defer batch.Release()

	if err := entry.Bind(batch); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestBindThenExecuteReturnsToReady(t *testing.T) {
	reg := NewPreparedStatements(10, 0, nil)
	entry := reg.Create(&stubStatement{}, "SELECT ?")

	batch := paramBatch(t)
	defer batch.Release()
	if err := entry.Bind(batch); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if entry.state != StateBound {
		t.Fatalf("expected StateBound after Bind, got %v", entry.state)
	}

	got := entry.takeParams()
	if got == nil {
		t.Fatal("expected the bound batch back from takeParams")
	}
	got.Release()
	if entry.state != StateReady {
		t.Fatalf("expected StateReady after takeParams, got %v", entry.state)
	}
}

func TestConcurrentHandleExclusionOneWinsOneBusy(t *testing.T) {
	reg := NewPreparedStatements(10, 0, nil)
	entry := reg.Create(&stubStatement{}, "SELECT 1")

	if err := entry.acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := entry.acquire(); !errors.Is(err, ErrHandleBusy) {
		t.Fatalf("expected ErrHandleBusy on second acquire, got %v", err)
	}
	entry.release()

	if err := entry.acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	entry.release()
}

// TestExecuteWithoutBindGatesOnMissingParameters exercises the no-Bind-at-
// all path: stubStatement declares a non-nil ParameterSchema (unlike the
// reference backend's own statements, which never declare parameters, see
// backend/memory/exec.go), so GetFlightInfo on a fresh handle with nothing
// bound must refuse rather than silently advertise a result.
func TestExecuteWithoutBindGatesOnMissingParameters(t *testing.T) {
	d := &dispatcher{
		mem:      memory.DefaultAllocator,
		prepared: NewPreparedStatements(10, 0, nil),
	}
	entry := d.prepared.Create(&stubStatement{}, "SELECT * FROM t WHERE id = ?")

	cmd := command.CommandPreparedStatementQuery{PreparedStatementHandle: entry.Handle}
	_, err := d.getFlightInfoPreparedStatement(&flight.FlightDescriptor{}, cmd)
	if !errors.Is(FromStatus(err), ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch from GetFlightInfo with no bound parameters, got %v", err)
	}
}

func TestIdleExpiryClosesBackendStatement(t *testing.T) {
	reg := NewPreparedStatements(10, 20*time.Millisecond, nil)
	stmt := &stubStatement{}
	entry := reg.Create(stmt, "SELECT 1")

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := reg.Get(entry.Handle); errors.Is(err, ErrHandleNotFound) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !stmt.closed {
		t.Fatal("expected idle expiry to close the backend statement")
	}
}
