package memory

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/server"
)

// paramStatement wraps a real preparedStatement but declares a parameter
// schema, standing in for a backend that actually binds placeholders (none
// of this reference backend's own statements do: preparedStatement.
// ParameterSchema always returns nil, see exec.go). It exists so the
// dispatcher's no-Bind-at-all gate (spec.md §8) has something to trip
// against in tests that exercise a PreparedBackendStatement end to end.
type paramStatement struct {
	server.PreparedBackendStatement
	schema *arrow.Schema
}

func (s *paramStatement) ParameterSchema() *arrow.Schema { return s.schema }

func TestTablesReturnsBothTables(t *testing.T) {
	b := New()
	rows, err := b.Tables(context.Background(), nil, nil, nil, []string{"TABLE"}, false)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Table != "FOREIGNTABLE" || rows[1].Table != "INTTABLE" {
		t.Fatalf("unexpected table order: %+v", rows)
	}
	for _, r := range rows {
		if r.Catalog != nil {
			t.Fatalf("expected nil catalog, got %v", *r.Catalog)
		}
		if r.Schema == nil || *r.Schema != "APP" {
			t.Fatalf("expected schema APP, got %v", r.Schema)
		}
		if r.Type != "TABLE" {
			t.Fatalf("expected type TABLE, got %s", r.Type)
		}
	}
}

func TestPrimaryKeysOfIntTable(t *testing.T) {
	b := New()
	rows, err := b.PrimaryKeys(context.Background(), command.TableRef{Table: "INTTABLE"})
	if err != nil {
		t.Fatalf("PrimaryKeys: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.Column != "ID" || r.KeySequence != 1 || r.KeyName == nil {
		t.Fatalf("unexpected primary key row: %+v", r)
	}
}

func TestImportedKeysOfIntTable(t *testing.T) {
	b := New()
	rows, err := b.ImportedKeys(context.Background(), command.TableRef{Table: "INTTABLE"})
	if err != nil {
		t.Fatalf("ImportedKeys: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.PKTable != "FOREIGNTABLE" || r.PKColumn != "ID" || r.FKTable != "INTTABLE" || r.FKColumn != "FOREIGNID" {
		t.Fatalf("unexpected imported key row: %+v", r)
	}
	if r.KeySequence != 1 || r.UpdateRule != 3 || r.DeleteRule != 3 {
		t.Fatalf("unexpected imported key rule fields: %+v", r)
	}
}

func TestQuerySelectIntTable(t *testing.T) {
	b := New()
	result, err := b.Query(context.Background(), "SELECT * FROM intTable")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Schema.NumFields() != 4 {
		t.Fatalf("got %d fields, want 4", result.Schema.NumFields())
	}
	if len(result.Batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(result.Batches))
	}
	rec := result.Batches[0]
	if rec.NumRows() != 3 {
		t.Fatalf("got %d rows, want 3", rec.NumRows())
	}
	ids := rec.Column(0).(*array.Int32)
	keyNames := rec.Column(1).(*array.String)
	if ids.Value(0) != 1 || keyNames.Value(0) != "one" {
		t.Fatalf("unexpected row 0: id=%d keyName=%s", ids.Value(0), keyNames.Value(0))
	}
	if ids.Value(2) != 3 || keyNames.Value(2) != "negative one" {
		t.Fatalf("unexpected row 2: id=%d keyName=%s", ids.Value(2), keyNames.Value(2))
	}
}

func TestInsertThenDeleteRoundTrip(t *testing.T) {
	b := New()
	ctx := context.Background()

	n, err := b.ExecuteUpdate(ctx, "INSERT INTO INTTABLE (keyName, value) VALUES ('A',1),('B',2),('C',3)")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 3 {
		t.Fatalf("insert returned %d, want 3", n)
	}

	n, err = b.ExecuteUpdate(ctx, "DELETE FROM INTTABLE WHERE keyName IN ('A','B','C')")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 3 {
		t.Fatalf("delete returned %d, want 3", n)
	}

	result, err := b.Query(ctx, "SELECT * FROM intTable")
	if err != nil {
		t.Fatalf("query after round trip: %v", err)
	}
	if result.Batches[0].NumRows() != 3 {
		t.Fatalf("table should be back to its original 3 rows, got %d", result.Batches[0].NumRows())
	}
}

func TestSqlInfoServerName(t *testing.T) {
	b := New()
	info, err := b.SqlInfo(context.Background(), nil)
	if err != nil {
		t.Fatalf("SqlInfo: %v", err)
	}
	if _, ok := info[0]; !ok { // SqlInfoServerName == 0
		t.Fatalf("expected server_name entry, got %+v", info)
	}
}

func TestParameterizedStatementDeclaresNonNilParameterSchema(t *testing.T) {
	b := New()
	ctx := context.Background()

	stmt, err := b.Prepare(ctx, "SELECT * FROM intTable")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer stmt.Close(ctx)

	wrapped := &paramStatement{
		PreparedBackendStatement: stmt,
		schema:                   arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int32}}, nil),
	}
	if wrapped.ParameterSchema() == nil {
		t.Fatal("expected a non-nil parameter schema")
	}
	// The dispatcher, not this backend, is what refuses to execute such a
	// statement without a bound parameter batch; see
	// server.TestExecuteWithoutBindGatesOnMissingParameters.
}

func TestPrepareSelectThenExecute(t *testing.T) {
	b := New()
	ctx := context.Background()

	stmt, err := b.Prepare(ctx, "SELECT * FROM intTable")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer stmt.Close(ctx)

	if stmt.ParameterSchema() != nil {
		t.Fatal("expected nil parameter schema for a parameterless SELECT")
	}
	if stmt.ResultSchema() == nil {
		t.Fatal("expected non-nil result schema")
	}

	result, err := stmt.Execute(ctx, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Batches[0].NumRows() != 3 {
		t.Fatalf("got %d rows, want 3", result.Batches[0].NumRows())
	}
}
