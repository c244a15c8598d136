package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/flightsql/engine/server"
)

var alloc = memory.DefaultAllocator

func serializeSchema(sc *arrow.Schema) []byte {
	return flight.SerializeSchema(sc, alloc)
}

// Query implements server.SqlBackend. It understands a small, literal
// subset of SQL sufficient for spec.md §8's worked scenarios:
// "SELECT * FROM <table>" and "SELECT * FROM <table> WHERE <col> = <val>".
func (b *Backend) Query(_ context.Context, sql string) (*server.QueryResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tableName, filterCol, filterVal, err := parseSelect(sql)
	if err != nil {
		return nil, err
	}
	t, ok := b.table(tableName)
	if !ok {
		return nil, fmt.Errorf("memory: no such table %q", tableName)
	}

	rows := t.rows
	if filterCol != "" {
		rows = filterRows(rows, filterCol, filterVal)
	}

	rec := rowsToRecord(t.schema, rows)
	return &server.QueryResult{Schema: t.schema, Batches: []arrow.Record{rec}}, nil
}

// ExecuteUpdate implements server.UpdateBackend. It understands
// "INSERT INTO <table> (<cols>) VALUES (...), ..." and
// "DELETE FROM <table> WHERE <col> IN (...)" / "= <val>".
func (b *Backend) ExecuteUpdate(_ context.Context, sql string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.execUpdateLocked(sql)
}

func (b *Backend) execUpdateLocked(sql string) (int64, error) {
	trimmed := strings.TrimSpace(sql)
	switch {
	case hasPrefixFold(trimmed, "INSERT INTO"):
		return b.execInsert(trimmed)
	case hasPrefixFold(trimmed, "DELETE FROM"):
		return b.execDelete(trimmed)
	default:
		return 0, fmt.Errorf("memory: unsupported statement: %s", sql)
	}
}

// Prepare implements server.PreparedBackend: a statement is "compiled" by
// capturing its SQL text; no placeholder binding is supported, matching
// spec.md §8's scenario 4 (a parameterless SELECT).
func (b *Backend) Prepare(_ context.Context, sql string) (server.PreparedBackendStatement, error) {
	trimmed := strings.TrimSpace(sql)
	stmt := &preparedStatement{backend: b, sql: trimmed}

	if hasPrefixFold(trimmed, "SELECT") {
		tableName, _, _, err := parseSelect(trimmed)
		if err != nil {
			return nil, err
		}
		t, ok := b.table(tableName)
		if !ok {
			return nil, fmt.Errorf("memory: no such table %q", tableName)
		}
		stmt.resultSchema = t.schema
	}
	return stmt, nil
}

type preparedStatement struct {
	backend      *Backend
	sql          string
	resultSchema *arrow.Schema
}

func (p *preparedStatement) ParameterSchema() *arrow.Schema { return nil }
func (p *preparedStatement) ResultSchema() *arrow.Schema    { return p.resultSchema }

func (p *preparedStatement) Execute(ctx context.Context, _ arrow.Record) (*server.QueryResult, error) {
	return p.backend.Query(ctx, p.sql)
}

func (p *preparedStatement) ExecuteUpdate(_ context.Context, _ arrow.Record) (int64, error) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	return p.backend.execUpdateLocked(p.sql)
}

func (p *preparedStatement) Close(context.Context) error { return nil }

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// parseSelect recognizes "SELECT * FROM <table> [WHERE <col> = <val>]".
func parseSelect(sql string) (table, filterCol, filterVal string, err error) {
	s := strings.TrimSpace(sql)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "SELECT * FROM ") {
		return "", "", "", fmt.Errorf("memory: unsupported query: %s", sql)
	}
	rest := strings.TrimSpace(s[len("SELECT * FROM "):])

	whereIdx := strings.Index(strings.ToUpper(rest), " WHERE ")
	if whereIdx < 0 {
		return strings.ToUpper(strings.TrimSpace(rest)), "", "", nil
	}

	table = strings.ToUpper(strings.TrimSpace(rest[:whereIdx]))
	cond := strings.TrimSpace(rest[whereIdx+len(" WHERE "):])
	eq := strings.Index(cond, "=")
	if eq < 0 {
		return "", "", "", fmt.Errorf("memory: unsupported WHERE clause: %s", cond)
	}
	filterCol = strings.ToUpper(strings.TrimSpace(cond[:eq]))
	filterVal = strings.Trim(strings.TrimSpace(cond[eq+1:]), "'\"")
	return table, filterCol, filterVal, nil
}

func filterRows(rows []row, col, val string) []row {
	var out []row
	for _, r := range rows {
		if fmt.Sprint(r[col]) == val {
			out = append(out, r)
		}
	}
	return out
}

// parseValueList parses a SQL literal value list like "'A',1" into typed
// Go values, pairing each value with the column at the same position in
// cols and taking that column's type from sc.
func parseValueList(s string, cols []string, sc *arrow.Schema) (row, error) {
	parts := splitTopLevel(s, ',')
	if len(parts) != len(cols) {
		return nil, fmt.Errorf("memory: expected %d values, got %d", len(cols), len(parts))
	}
	r := row{}
	for i, col := range cols {
		field, ok := fieldByName(sc, col)
		if !ok {
			return nil, fmt.Errorf("memory: no such column %q", col)
		}
		r[col] = parseLiteral(strings.TrimSpace(parts[i]), field.Type)
	}
	return r, nil
}

func fieldByName(sc *arrow.Schema, name string) (arrow.Field, bool) {
	for i := 0; i < sc.NumFields(); i++ {
		f := sc.Field(i)
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return arrow.Field{}, false
}

func parseLiteral(lit string, typ arrow.DataType) any {
	lit = strings.Trim(lit, "'\"")
	if typ.ID() == arrow.INT32 {
		n, _ := strconv.Atoi(lit)
		return int32(n)
	}
	return lit
}

func splitTopLevel(s string, sep rune) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == sep && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cur.String())
	return out
}

func rowsToRecord(sc *arrow.Schema, rows []row) arrow.Record {
	bldr := array.NewRecordBuilder(alloc, sc)
	defer bldr.Release()

	for i := 0; i < sc.NumFields(); i++ {
		field := sc.Field(i)
		switch b := bldr.Field(i).(type) {
		case *array.Int32Builder:
			for _, r := range rows {
				v, ok := r[field.Name]
				if !ok || v == nil {
					b.AppendNull()
					continue
				}
				b.Append(v.(int32))
			}
		case *array.StringBuilder:
			for _, r := range rows {
				v, ok := r[field.Name]
				if !ok || v == nil {
					b.AppendNull()
					continue
				}
				b.Append(fmt.Sprint(v))
			}
		}
	}
	return bldr.NewRecord()
}
