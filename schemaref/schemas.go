// Package schemaref holds the fixed, named column layouts every Flight SQL
// server must emit for its metadata queries (spec.md §4.2), plus the
// encoding of the polymorphic GetSqlInfo value column.
package schemaref

import "github.com/apache/arrow-go/v18/arrow"

func field(name string, typ arrow.DataType, nullable bool) arrow.Field {
	return arrow.Field{Name: name, Type: typ, Nullable: nullable}
}

var str = arrow.BinaryTypes.String

// Catalogs is the schema returned by GetCatalogs.
var Catalogs = arrow.NewSchema([]arrow.Field{
	field("catalog_name", str, true),
}, nil)

// Schemas is the schema returned by GetSchemas.
var Schemas = arrow.NewSchema([]arrow.Field{
	field("catalog_name", str, true),
	field("schema_name", str, false),
}, nil)

// Tables is the schema returned by GetTables when include_schema is false.
var Tables = arrow.NewSchema([]arrow.Field{
	field("catalog_name", str, true),
	field("schema_name", str, true),
	field("table_name", str, false),
	field("table_type", str, false),
}, nil)

// TablesWithSchema is the schema returned by GetTables when include_schema
// is true: the four Tables columns plus the table's serialized schema.
var TablesWithSchema = arrow.NewSchema([]arrow.Field{
	field("catalog_name", str, true),
	field("schema_name", str, true),
	field("table_name", str, false),
	field("table_type", str, false),
	field("table_schema", arrow.BinaryTypes.Binary, false),
}, nil)

// TableTypes is the schema returned by GetTableTypes.
var TableTypes = arrow.NewSchema([]arrow.Field{
	field("table_type", str, false),
}, nil)

// PrimaryKeys is the schema returned by GetPrimaryKeys.
var PrimaryKeys = arrow.NewSchema([]arrow.Field{
	field("catalog_name", str, true),
	field("schema_name", str, true),
	field("table_name", str, false),
	field("column_name", str, false),
	field("key_sequence", arrow.PrimitiveTypes.Int32, false),
	field("key_name", str, true),
}, nil)

// keyColumns is the 13-column layout shared by GetImportedKeys,
// GetExportedKeys, and GetCrossReference.
func keyColumns() []arrow.Field {
	return []arrow.Field{
		field("pk_catalog_name", str, true),
		field("pk_schema_name", str, true),
		field("pk_table_name", str, false),
		field("pk_column_name", str, false),
		field("fk_catalog_name", str, true),
		field("fk_schema_name", str, true),
		field("fk_table_name", str, false),
		field("fk_column_name", str, false),
		field("key_sequence", arrow.PrimitiveTypes.Int32, false),
		field("fk_key_name", str, true),
		field("pk_key_name", str, true),
		field("update_rule", arrow.PrimitiveTypes.Uint8, false),
		field("delete_rule", arrow.PrimitiveTypes.Uint8, false),
	}
}

// ImportedKeys is the schema returned by GetImportedKeys.
var ImportedKeys = arrow.NewSchema(keyColumns(), nil)

// ExportedKeys is the schema returned by GetExportedKeys.
var ExportedKeys = arrow.NewSchema(keyColumns(), nil)

// CrossReference is the schema returned by GetCrossReference.
var CrossReference = arrow.NewSchema(keyColumns(), nil)

// SqlInfo dense-union child type codes (spec.md §4.2).
const (
	SqlInfoValueString      int8 = 0
	SqlInfoValueInt32       int8 = 1
	SqlInfoValueInt64       int8 = 2
	SqlInfoValueInt32Bitmask int8 = 3
)

var sqlInfoValueUnion = arrow.DenseUnionOf(
	[]arrow.Field{
		field("string_value", str, false),
		field("int32_value", arrow.PrimitiveTypes.Int32, false),
		field("int64_value", arrow.PrimitiveTypes.Int64, false),
		field("int32_bitmask_value", arrow.PrimitiveTypes.Int32, false),
	},
	[]arrow.UnionTypeCode{
		arrow.UnionTypeCode(SqlInfoValueString),
		arrow.UnionTypeCode(SqlInfoValueInt32),
		arrow.UnionTypeCode(SqlInfoValueInt64),
		arrow.UnionTypeCode(SqlInfoValueInt32Bitmask),
	},
)

// SqlInfo is the schema returned by GetSqlInfo.
var SqlInfo = arrow.NewSchema([]arrow.Field{
	field("info_name", arrow.PrimitiveTypes.Int32, false),
	{Name: "value", Type: sqlInfoValueUnion, Nullable: false},
}, nil)
