package server

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/flightsql/engine/schemaref"
)

func appendOptStr(b *array.StringBuilder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

// catalogsRecord builds the single-column GetCatalogs result batch.
func catalogsRecord(mem memory.Allocator, catalogs []string) arrow.Record {
	bldr := array.NewRecordBuilder(mem, schemaref.Catalogs)
	defer bldr.Release()
	col := bldr.Field(0).(*array.StringBuilder)
	for _, c := range catalogs {
		col.Append(c)
	}
	rec := bldr.NewRecord()
	return rec
}

func schemasRecord(mem memory.Allocator, rows []SchemaRow) arrow.Record {
	bldr := array.NewRecordBuilder(mem, schemaref.Schemas)
	defer bldr.Release()
	catalogCol := bldr.Field(0).(*array.StringBuilder)
	schemaCol := bldr.Field(1).(*array.StringBuilder)
	for _, r := range rows {
		appendOptStr(catalogCol, r.Catalog)
		schemaCol.Append(r.Schema)
	}
	return bldr.NewRecord()
}

func tableTypesRecord(mem memory.Allocator, types []string) arrow.Record {
	bldr := array.NewRecordBuilder(mem, schemaref.TableTypes)
	defer bldr.Release()
	col := bldr.Field(0).(*array.StringBuilder)
	for _, t := range types {
		col.Append(t)
	}
	return bldr.NewRecord()
}

func tablesRecord(mem memory.Allocator, rows []TableRow, includeSchema bool) arrow.Record {
	sc := schemaref.Tables
	if includeSchema {
		sc = schemaref.TablesWithSchema
	}
	bldr := array.NewRecordBuilder(mem, sc)
	defer bldr.Release()

	catalogCol := bldr.Field(0).(*array.StringBuilder)
	schemaCol := bldr.Field(1).(*array.StringBuilder)
	tableCol := bldr.Field(2).(*array.StringBuilder)
	typeCol := bldr.Field(3).(*array.StringBuilder)
	var schemaBytesCol *array.BinaryBuilder
	if includeSchema {
		schemaBytesCol = bldr.Field(4).(*array.BinaryBuilder)
	}

	for _, r := range rows {
		appendOptStr(catalogCol, r.Catalog)
		appendOptStr(schemaCol, r.Schema)
		tableCol.Append(r.Table)
		typeCol.Append(r.Type)
		if includeSchema {
			schemaBytesCol.Append(r.SerializedSchema)
		}
	}
	return bldr.NewRecord()
}

func primaryKeysRecord(mem memory.Allocator, rows []PrimaryKeyRow) arrow.Record {
	bldr := array.NewRecordBuilder(mem, schemaref.PrimaryKeys)
	defer bldr.Release()

	catalogCol := bldr.Field(0).(*array.StringBuilder)
	schemaCol := bldr.Field(1).(*array.StringBuilder)
	tableCol := bldr.Field(2).(*array.StringBuilder)
	columnCol := bldr.Field(3).(*array.StringBuilder)
	seqCol := bldr.Field(4).(*array.Int32Builder)
	keyNameCol := bldr.Field(5).(*array.StringBuilder)

	for _, r := range rows {
		appendOptStr(catalogCol, r.Catalog)
		appendOptStr(schemaCol, r.Schema)
		tableCol.Append(r.Table)
		columnCol.Append(r.Column)
		seqCol.Append(r.KeySequence)
		appendOptStr(keyNameCol, r.KeyName)
	}
	return bldr.NewRecord()
}

// foreignKeysRecord builds a batch for the 13-column key layout shared by
// GetImportedKeys, GetExportedKeys, and GetCrossReference.
func foreignKeysRecord(mem memory.Allocator, sc *arrow.Schema, rows []ForeignKeyRow) arrow.Record {
	bldr := array.NewRecordBuilder(mem, sc)
	defer bldr.Release()

	pkCatalogCol := bldr.Field(0).(*array.StringBuilder)
	pkSchemaCol := bldr.Field(1).(*array.StringBuilder)
	pkTableCol := bldr.Field(2).(*array.StringBuilder)
	pkColumnCol := bldr.Field(3).(*array.StringBuilder)
	fkCatalogCol := bldr.Field(4).(*array.StringBuilder)
	fkSchemaCol := bldr.Field(5).(*array.StringBuilder)
	fkTableCol := bldr.Field(6).(*array.StringBuilder)
	fkColumnCol := bldr.Field(7).(*array.StringBuilder)
	seqCol := bldr.Field(8).(*array.Int32Builder)
	fkKeyNameCol := bldr.Field(9).(*array.StringBuilder)
	pkKeyNameCol := bldr.Field(10).(*array.StringBuilder)
	updateRuleCol := bldr.Field(11).(*array.Uint8Builder)
	deleteRuleCol := bldr.Field(12).(*array.Uint8Builder)

	for _, r := range rows {
		appendOptStr(pkCatalogCol, r.PKCatalog)
		appendOptStr(pkSchemaCol, r.PKSchema)
		pkTableCol.Append(r.PKTable)
		pkColumnCol.Append(r.PKColumn)
		appendOptStr(fkCatalogCol, r.FKCatalog)
		appendOptStr(fkSchemaCol, r.FKSchema)
		fkTableCol.Append(r.FKTable)
		fkColumnCol.Append(r.FKColumn)
		seqCol.Append(r.KeySequence)
		appendOptStr(fkKeyNameCol, r.FKKeyName)
		appendOptStr(pkKeyNameCol, r.PKKeyName)
		updateRuleCol.Append(r.UpdateRule)
		deleteRuleCol.Append(r.DeleteRule)
	}
	return bldr.NewRecord()
}

// sqlInfoRecord builds the GetSqlInfo result batch. When codes is empty,
// every registered info value is returned (spec.md §4.2).
func sqlInfoRecord(mem memory.Allocator, info schemaref.SqlInfoResultMap, codes []int32) (arrow.Record, error) {
	bldr := array.NewRecordBuilder(mem, schemaref.SqlInfo)
	defer bldr.Release()

	nameCol := bldr.Field(0).(*array.Int32Builder)
	valueCol := bldr.Field(1).(*array.DenseUnionBuilder)

	wanted := codes
	if len(wanted) == 0 {
		for code := range info {
			wanted = append(wanted, code)
		}
	}

	for _, code := range wanted {
		val, ok := info[code]
		if !ok {
			continue
		}
		nameCol.Append(code)
		if err := schemaref.AppendSqlInfoValue(valueCol, val); err != nil {
			return nil, err
		}
	}
	return bldr.NewRecord(), nil
}
