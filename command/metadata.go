package command

// CommandGetCatalogs requests the list of catalogs.
type CommandGetCatalogs struct{}

func (CommandGetCatalogs) typeURL() string          { return "CommandGetCatalogs" }
func (CommandGetCatalogs) marshalPayload() []byte   { return nil }

// DecodeCommandGetCatalogs decodes a CommandGetCatalogs payload (always
// empty; kept for symmetry with the other decoders).
func DecodeCommandGetCatalogs(payload []byte) (CommandGetCatalogs, error) {
	if _, err := parseFields(payload); err != nil {
		return CommandGetCatalogs{}, err
	}
	return CommandGetCatalogs{}, nil
}

// CommandGetSchemas requests the list of schemas, optionally narrowed by
// catalog and/or a LIKE-style schema name pattern. A nil field means "do
// not narrow"; a pointer to "" means "only entries with no value in that
// column" (spec.md §6).
type CommandGetSchemas struct {
	Catalog              *string
	SchemaFilterPattern   *string
}

func (CommandGetSchemas) typeURL() string { return "CommandGetSchemas" }

func (c CommandGetSchemas) marshalPayload() []byte {
	var b []byte
	b = appendOptString(b, 1, c.Catalog)
	b = appendOptString(b, 2, c.SchemaFilterPattern)
	return b
}

// DecodeCommandGetSchemas decodes a CommandGetSchemas payload.
func DecodeCommandGetSchemas(payload []byte) (CommandGetSchemas, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetSchemas{}, err
	}
	return CommandGetSchemas{Catalog: f.str(1), SchemaFilterPattern: f.str(2)}, nil
}

// CommandGetTables requests the list of tables, optionally narrowed by
// catalog, schema pattern, table-name pattern, and/or a set of table
// types. IncludeSchema requests the serialized per-table schema in the
// table_schema column (spec.md §4.2).
type CommandGetTables struct {
	Catalog                 *string
	SchemaFilterPattern     *string
	TableNameFilterPattern  *string
	TableTypes              []string
	IncludeSchema           bool
}

func (CommandGetTables) typeURL() string { return "CommandGetTables" }

func (c CommandGetTables) marshalPayload() []byte {
	var b []byte
	b = appendOptString(b, 1, c.Catalog)
	b = appendOptString(b, 2, c.SchemaFilterPattern)
	b = appendOptString(b, 3, c.TableNameFilterPattern)
	b = appendRepeatedStr(b, 4, c.TableTypes)
	b = appendBool(b, 5, c.IncludeSchema)
	return b
}

// DecodeCommandGetTables decodes a CommandGetTables payload.
func DecodeCommandGetTables(payload []byte) (CommandGetTables, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetTables{}, err
	}
	return CommandGetTables{
		Catalog:                f.str(1),
		SchemaFilterPattern:    f.str(2),
		TableNameFilterPattern: f.str(3),
		TableTypes:             f.repeatedStr(4),
		IncludeSchema:          f.boolOr(5, false),
	}, nil
}

// CommandGetTableTypes requests the list of supported table type names.
type CommandGetTableTypes struct{}

func (CommandGetTableTypes) typeURL() string        { return "CommandGetTableTypes" }
func (CommandGetTableTypes) marshalPayload() []byte { return nil }

// DecodeCommandGetTableTypes decodes a CommandGetTableTypes payload.
func DecodeCommandGetTableTypes(payload []byte) (CommandGetTableTypes, error) {
	if _, err := parseFields(payload); err != nil {
		return CommandGetTableTypes{}, err
	}
	return CommandGetTableTypes{}, nil
}

// CommandGetSqlInfo requests server capability/engine-attribute info. An
// empty Info means "all known info codes".
type CommandGetSqlInfo struct {
	Info []int32
}

func (CommandGetSqlInfo) typeURL() string { return "CommandGetSqlInfo" }

func (c CommandGetSqlInfo) marshalPayload() []byte {
	return appendRepeatedInt32(nil, 1, c.Info)
}

// DecodeCommandGetSqlInfo decodes a CommandGetSqlInfo payload.
func DecodeCommandGetSqlInfo(payload []byte) (CommandGetSqlInfo, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetSqlInfo{}, err
	}
	return CommandGetSqlInfo{Info: f.repeatedInt32(1)}, nil
}

// TableRef identifies a single table for the primary/imported/exported key
// queries. Table is required; Catalog and Schema follow the three-valued
// present/absent/empty semantics.
type TableRef struct {
	Catalog *string
	Schema  *string
	Table   string
}

func marshalTableRef(b []byte, r TableRef) []byte {
	b = appendOptString(b, 1, r.Catalog)
	b = appendOptString(b, 2, r.Schema)
	b = appendString(b, 3, r.Table)
	return b
}

func decodeTableRef(f *fields) TableRef {
	return TableRef{Catalog: f.str(1), Schema: f.str(2), Table: f.strOr(3, "")}
}

// CommandGetPrimaryKeys requests the primary key columns of a table.
type CommandGetPrimaryKeys struct{ TableRef }

func (CommandGetPrimaryKeys) typeURL() string { return "CommandGetPrimaryKeys" }
func (c CommandGetPrimaryKeys) marshalPayload() []byte {
	return marshalTableRef(nil, c.TableRef)
}

// DecodeCommandGetPrimaryKeys decodes a CommandGetPrimaryKeys payload.
func DecodeCommandGetPrimaryKeys(payload []byte) (CommandGetPrimaryKeys, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetPrimaryKeys{}, err
	}
	return CommandGetPrimaryKeys{decodeTableRef(f)}, nil
}

// CommandGetImportedKeys requests the foreign keys that reference other
// tables from the given table (i.e. the FK side).
type CommandGetImportedKeys struct{ TableRef }

func (CommandGetImportedKeys) typeURL() string { return "CommandGetImportedKeys" }
func (c CommandGetImportedKeys) marshalPayload() []byte {
	return marshalTableRef(nil, c.TableRef)
}

// DecodeCommandGetImportedKeys decodes a CommandGetImportedKeys payload.
func DecodeCommandGetImportedKeys(payload []byte) (CommandGetImportedKeys, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetImportedKeys{}, err
	}
	return CommandGetImportedKeys{decodeTableRef(f)}, nil
}

// CommandGetExportedKeys requests the foreign keys in other tables that
// reference the given table (i.e. the PK side).
type CommandGetExportedKeys struct{ TableRef }

func (CommandGetExportedKeys) typeURL() string { return "CommandGetExportedKeys" }
func (c CommandGetExportedKeys) marshalPayload() []byte {
	return marshalTableRef(nil, c.TableRef)
}

// DecodeCommandGetExportedKeys decodes a CommandGetExportedKeys payload.
func DecodeCommandGetExportedKeys(payload []byte) (CommandGetExportedKeys, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetExportedKeys{}, err
	}
	return CommandGetExportedKeys{decodeTableRef(f)}, nil
}

// CrossTableRef identifies a (pk table, fk table) pair for a cross
// reference query.
type CrossTableRef struct {
	PKCatalog *string
	PKSchema  *string
	PKTable   string
	FKCatalog *string
	FKSchema  *string
	FKTable   string
}

// CommandGetCrossReference requests the foreign keys in FKTable that
// reference PKTable.
type CommandGetCrossReference struct{ CrossTableRef }

func (CommandGetCrossReference) typeURL() string { return "CommandGetCrossReference" }

func (c CommandGetCrossReference) marshalPayload() []byte {
	var b []byte
	b = appendOptString(b, 1, c.PKCatalog)
	b = appendOptString(b, 2, c.PKSchema)
	b = appendString(b, 3, c.PKTable)
	b = appendOptString(b, 4, c.FKCatalog)
	b = appendOptString(b, 5, c.FKSchema)
	b = appendString(b, 6, c.FKTable)
	return b
}

// DecodeCommandGetCrossReference decodes a CommandGetCrossReference
// payload.
func DecodeCommandGetCrossReference(payload []byte) (CommandGetCrossReference, error) {
	f, err := parseFields(payload)
	if err != nil {
		return CommandGetCrossReference{}, err
	}
	return CommandGetCrossReference{CrossTableRef{
		PKCatalog: f.str(1),
		PKSchema:  f.str(2),
		PKTable:   f.strOr(3, ""),
		FKCatalog: f.str(4),
		FKSchema:  f.str(5),
		FKTable:   f.strOr(6, ""),
	}}, nil
}
