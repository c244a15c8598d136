package server

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/flightsql/engine/command"
	"github.com/flightsql/engine/schemaref"
)

// QueryResult is the materialized result of an ad-hoc or prepared SELECT:
// the result-set schema plus zero or more record batches. The dispatcher
// streams Batches to the client in order, writing each one with a Flight
// IPC record writer.
type QueryResult struct {
	Schema  *arrow.Schema
	Batches []arrow.Record
}

// SchemaRow is one row of a GetSchemas response.
type SchemaRow struct {
	Catalog *string
	Schema  string
}

// TableRow is one row of a GetTables response. SerializedSchema is only
// read when the request set IncludeSchema.
type TableRow struct {
	Catalog          *string
	Schema           *string
	Table            string
	Type             string
	SerializedSchema []byte
}

// PrimaryKeyRow is one row of a GetPrimaryKeys response.
type PrimaryKeyRow struct {
	Catalog     *string
	Schema      *string
	Table       string
	Column      string
	KeySequence int32
	KeyName     *string
}

// ForeignKeyRow is one row of a GetImportedKeys/GetExportedKeys/
// GetCrossReference response (spec.md §4.2's 13-column key layout).
type ForeignKeyRow struct {
	PKCatalog *string
	PKSchema  *string
	PKTable   string
	PKColumn  string

	FKCatalog *string
	FKSchema  *string
	FKTable   string
	FKColumn  string

	KeySequence int32
	FKKeyName   *string
	PKKeyName   *string
	UpdateRule  uint8
	DeleteRule  uint8
}

// SqlBackend is the minimal capability a server must provide: executing an
// ad-hoc SELECT. Every other capability below is optional; the dispatcher
// type-asserts the backend against the matching interface and returns
// ErrNotImplemented when the assertion fails (spec.md §9 REDESIGN: a
// capability interface rather than one fixed, all-or-nothing contract).
type SqlBackend interface {
	Query(ctx context.Context, sql string) (*QueryResult, error)
}

// UpdateBackend executes INSERT/UPDATE/DELETE statements.
type UpdateBackend interface {
	ExecuteUpdate(ctx context.Context, sql string) (int64, error)
}

// PreparedBackend compiles a query or statement into a reusable
// PreparedBackendStatement.
type PreparedBackend interface {
	Prepare(ctx context.Context, sql string) (PreparedBackendStatement, error)
}

// PreparedBackendStatement is a backend's compiled form of a prepared
// statement, owned exclusively by the server's lifecycle manager
// (server/prepared.go) between Create and Close.
type PreparedBackendStatement interface {
	// ParameterSchema is nil if the statement takes no parameters.
	ParameterSchema() *arrow.Schema
	// ResultSchema is nil if the statement produces no result set (an
	// update statement prepared for repeated execution).
	ResultSchema() *arrow.Schema
	Execute(ctx context.Context, params arrow.Record) (*QueryResult, error)
	ExecuteUpdate(ctx context.Context, params arrow.Record) (int64, error)
	Close(ctx context.Context) error
}

// CatalogsBackend answers GetCatalogs.
type CatalogsBackend interface {
	Catalogs(ctx context.Context) ([]string, error)
}

// SchemasBackend answers GetSchemas.
type SchemasBackend interface {
	Schemas(ctx context.Context, catalog, schemaPattern *string) ([]SchemaRow, error)
}

// TablesBackend answers GetTables and GetTableTypes.
type TablesBackend interface {
	Tables(ctx context.Context, catalog, schemaPattern, tableNamePattern *string, tableTypes []string, includeSchema bool) ([]TableRow, error)
	TableTypes(ctx context.Context) ([]string, error)
}

// PrimaryKeysBackend answers GetPrimaryKeys.
type PrimaryKeysBackend interface {
	PrimaryKeys(ctx context.Context, ref command.TableRef) ([]PrimaryKeyRow, error)
}

// ImportedKeysBackend answers GetImportedKeys.
type ImportedKeysBackend interface {
	ImportedKeys(ctx context.Context, ref command.TableRef) ([]ForeignKeyRow, error)
}

// ExportedKeysBackend answers GetExportedKeys.
type ExportedKeysBackend interface {
	ExportedKeys(ctx context.Context, ref command.TableRef) ([]ForeignKeyRow, error)
}

// CrossReferenceBackend answers GetCrossReference.
type CrossReferenceBackend interface {
	CrossReference(ctx context.Context, ref command.CrossTableRef) ([]ForeignKeyRow, error)
}

// SqlInfoBackend answers GetSqlInfo. Implementations should return only
// the subset of codes present in their result map when codes is non-empty.
type SqlInfoBackend interface {
	SqlInfo(ctx context.Context, codes []int32) (schemaref.SqlInfoResultMap, error)
}
