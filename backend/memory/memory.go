// Package memory is a reference SqlBackend (spec.md §9's example schema):
// two in-memory tables, intTable and foreignTable, wired to every
// optional capability interface in package server so the dispatcher can
// be exercised end to end without a real database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/schemaref"
	"github.com/flightsql/engine/server"
)

const (
	catalogName = "" // this backend has no catalog concept; GetCatalogs returns none
	schemaName  = "APP"

	intTableName     = "INTTABLE"
	foreignTableName = "FOREIGNTABLE"
)

var intTableSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ID", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "KEYNAME", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "VALUE", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "FOREIGNID", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

var foreignTableSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ID", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "FOREIGNNAME", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "VALUE", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

// row is a single record, keyed by upper-cased column name.
type row map[string]any

type table struct {
	name   string
	schema *arrow.Schema
	rows   []row
}

// Backend is a process-local, mutex-guarded reference implementation of
// every optional server capability interface.
type Backend struct {
	mu     sync.Mutex
	tables map[string]*table
}

// New builds a Backend pre-seeded with the intTable/foreignTable rows
// from spec.md §8's worked scenarios.
func New() *Backend {
	b := &Backend{tables: map[string]*table{}}
	b.tables[intTableName] = &table{
		name:   intTableName,
		schema: intTableSchema,
		rows: []row{
			{"ID": int32(1), "KEYNAME": "one", "VALUE": int32(1), "FOREIGNID": int32(1)},
			{"ID": int32(2), "KEYNAME": "zero", "VALUE": int32(0), "FOREIGNID": int32(1)},
			{"ID": int32(3), "KEYNAME": "negative one", "VALUE": int32(-1), "FOREIGNID": int32(1)},
		},
	}
	b.tables[foreignTableName] = &table{
		name:   foreignTableName,
		schema: foreignTableSchema,
		rows: []row{
			{"ID": int32(1), "FOREIGNNAME": "first", "VALUE": int32(100)},
		},
	}
	return b
}

func (b *Backend) table(name string) (*table, bool) {
	t, ok := b.tables[strings.ToUpper(name)]
	return t, ok
}

// Catalogs implements server.CatalogsBackend. This backend has no
// catalogs, matching the "(null, ...)" rows of spec.md §8's scenario 1.
func (b *Backend) Catalogs(context.Context) ([]string, error) {
	return nil, nil
}

// Schemas implements server.SchemasBackend.
func (b *Backend) Schemas(_ context.Context, catalog, schemaPattern *string) ([]server.SchemaRow, error) {
	if catalog != nil && *catalog != catalogName {
		return nil, nil
	}
	if schemaPattern != nil && *schemaPattern != "" && !strings.Contains(schemaName, *schemaPattern) {
		return nil, nil
	}
	return []server.SchemaRow{{Catalog: nil, Schema: schemaName}}, nil
}

// TableTypes implements server.TablesBackend.
func (b *Backend) TableTypes(context.Context) ([]string, error) {
	return []string{"TABLE"}, nil
}

// Tables implements server.TablesBackend.
func (b *Backend) Tables(_ context.Context, catalog, schemaPattern, tableNamePattern *string, tableTypes []string, includeSchema bool) ([]server.TableRow, error) {
	if catalog != nil && *catalog != catalogName {
		return nil, nil
	}
	if len(tableTypes) > 0 && !containsFold(tableTypes, "TABLE") {
		return nil, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []server.TableRow
	for _, name := range names {
		if tableNamePattern != nil && *tableNamePattern != "" && !strings.Contains(name, strings.ToUpper(*tableNamePattern)) {
			continue
		}
		schemaCopy := schemaName
		row := server.TableRow{Catalog: nil, Schema: &schemaCopy, Table: name, Type: "TABLE"}
		if includeSchema {
			t := b.tables[name]
			row.SerializedSchema = serializeSchema(t.schema)
		}
		out = append(out, row)
	}
	return out, nil
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// PrimaryKeys implements server.PrimaryKeysBackend.
func (b *Backend) PrimaryKeys(_ context.Context, ref command.TableRef) ([]server.PrimaryKeyRow, error) {
	name := strings.ToUpper(ref.Table)
	if _, ok := b.table(name); !ok {
		return nil, nil
	}
	keyName := name + "_PK"
	return []server.PrimaryKeyRow{{
		Catalog: nil, Schema: strp(schemaName), Table: name, Column: "ID", KeySequence: 1, KeyName: &keyName,
	}}, nil
}

// ImportedKeys implements server.ImportedKeysBackend: only INTTABLE has
// an outbound foreign key, to FOREIGNTABLE.ID.
func (b *Backend) ImportedKeys(_ context.Context, ref command.TableRef) ([]server.ForeignKeyRow, error) {
	if !strings.EqualFold(ref.Table, intTableName) {
		return nil, nil
	}
	return []server.ForeignKeyRow{intTableForeignKeyRow()}, nil
}

// ExportedKeys implements server.ExportedKeysBackend: only FOREIGNTABLE
// is referenced, by INTTABLE.
func (b *Backend) ExportedKeys(_ context.Context, ref command.TableRef) ([]server.ForeignKeyRow, error) {
	if !strings.EqualFold(ref.Table, foreignTableName) {
		return nil, nil
	}
	return []server.ForeignKeyRow{intTableForeignKeyRow()}, nil
}

// CrossReference implements server.CrossReferenceBackend.
func (b *Backend) CrossReference(_ context.Context, ref command.CrossTableRef) ([]server.ForeignKeyRow, error) {
	if !strings.EqualFold(ref.PKTable, foreignTableName) || !strings.EqualFold(ref.FKTable, intTableName) {
		return nil, nil
	}
	return []server.ForeignKeyRow{intTableForeignKeyRow()}, nil
}

func intTableForeignKeyRow() server.ForeignKeyRow {
	fkName := "INTTABLE_FK"
	pkName := "FOREIGNTABLE_PK"
	return server.ForeignKeyRow{
		PKCatalog: nil, PKSchema: strp(schemaName), PKTable: foreignTableName, PKColumn: "ID",
		FKCatalog: nil, FKSchema: strp(schemaName), FKTable: intTableName, FKColumn: "FOREIGNID",
		KeySequence: 1, FKKeyName: &fkName, PKKeyName: &pkName,
		UpdateRule: 3, DeleteRule: 3, // NO ACTION, per spec.md §8 scenario 3
	}
}

// SqlInfo implements server.SqlInfoBackend.
func (b *Backend) SqlInfo(_ context.Context, codes []int32) (schemaref.SqlInfoResultMap, error) {
	all := schemaref.SqlInfoResultMap{
		int32(schemaref.SqlInfoServerName):    "flightsql-engine",
		int32(schemaref.SqlInfoServerVersion): "0.1.0",
		int32(schemaref.SqlInfoServerReadOnly): false,
	}
	if len(codes) == 0 {
		return all, nil
	}
	filtered := schemaref.SqlInfoResultMap{}
	for _, c := range codes {
		if v, ok := all[c]; ok {
			filtered[c] = v
		}
	}
	return filtered, nil
}

func strp(s string) *string { return &s }
