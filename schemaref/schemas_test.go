package schemaref

import "testing"

func TestFixedLayouts(t *testing.T) {
	if Catalogs.NumFields() != 1 {
		t.Fatalf("Catalogs: got %d fields, want 1", Catalogs.NumFields())
	}
	if !Catalogs.Field(0).Nullable {
		t.Fatal("Catalogs.catalog_name must be nullable")
	}

	if Schemas.NumFields() != 2 {
		t.Fatalf("Schemas: got %d fields, want 2", Schemas.NumFields())
	}
	if Schemas.Field(1).Nullable {
		t.Fatal("Schemas.schema_name must not be nullable")
	}

	if Tables.NumFields() != 4 {
		t.Fatalf("Tables: got %d fields, want 4", Tables.NumFields())
	}
	if TablesWithSchema.NumFields() != 5 {
		t.Fatalf("TablesWithSchema: got %d fields, want 5", TablesWithSchema.NumFields())
	}

	if PrimaryKeys.NumFields() != 6 {
		t.Fatalf("PrimaryKeys: got %d fields, want 6", PrimaryKeys.NumFields())
	}

	if ImportedKeys.NumFields() != 13 {
		t.Fatalf("ImportedKeys: got %d fields, want 13", ImportedKeys.NumFields())
	}
	if ExportedKeys.NumFields() != 13 {
		t.Fatalf("ExportedKeys: got %d fields, want 13", ExportedKeys.NumFields())
	}
	if CrossReference.NumFields() != 13 {
		t.Fatalf("CrossReference: got %d fields, want 13", CrossReference.NumFields())
	}

	if SqlInfo.NumFields() != 2 {
		t.Fatalf("SqlInfo: got %d fields, want 2", SqlInfo.NumFields())
	}
	if SqlInfo.Field(0).Nullable {
		t.Fatal("SqlInfo.info_name must not be nullable")
	}
}
