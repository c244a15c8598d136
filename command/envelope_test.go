package command

import (
	"bytes"
	"reflect"
	"testing"
)

func strp(s string) *string { return &s }

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		variant Variant
		decode  func(payload []byte) (Variant, error)
	}{
		{"StatementQuery", CommandStatementQuery{Query: "SELECT 1", ClientExecutionHandle: []byte("h")},
			func(p []byte) (Variant, error) { v, err := DecodeCommandStatementQuery(p); return v, err }},
		{"StatementUpdate", CommandStatementUpdate{Query: "DELETE FROM t"},
			func(p []byte) (Variant, error) { v, err := DecodeCommandStatementUpdate(p); return v, err }},
		{"TicketStatementQuery", TicketStatementQuery{StatementHandle: []byte("abc")},
			func(p []byte) (Variant, error) { v, err := DecodeTicketStatementQuery(p); return v, err }},
		{"PreparedStatementQuery", CommandPreparedStatementQuery{PreparedStatementHandle: []byte("h1")},
			func(p []byte) (Variant, error) { v, err := DecodeCommandPreparedStatementQuery(p); return v, err }},
		{"PreparedStatementUpdate", CommandPreparedStatementUpdate{PreparedStatementHandle: []byte("h2")},
			func(p []byte) (Variant, error) { v, err := DecodeCommandPreparedStatementUpdate(p); return v, err }},
		{"CreatePreparedStatementRequest", ActionCreatePreparedStatementRequest{Query: "SELECT * FROM t"},
			func(p []byte) (Variant, error) {
				v, err := DecodeActionCreatePreparedStatementRequest(p)
				return v, err
			}},
		{"CreatePreparedStatementResult", ActionCreatePreparedStatementResult{
			PreparedStatementHandle: []byte("h3"), DatasetSchema: []byte{1, 2}, ParameterSchema: []byte{3}},
			func(p []byte) (Variant, error) {
				v, err := DecodeActionCreatePreparedStatementResult(p)
				return v, err
			}},
		{"ClosePreparedStatementRequest", ActionClosePreparedStatementRequest{PreparedStatementHandle: []byte("h4")},
			func(p []byte) (Variant, error) {
				v, err := DecodeActionClosePreparedStatementRequest(p)
				return v, err
			}},
		{"DoPutUpdateResult", DoPutUpdateResult{RecordCount: 42},
			func(p []byte) (Variant, error) { v, err := DecodeDoPutUpdateResult(p); return v, err }},
		{"DoPutUpdateResultNegative", DoPutUpdateResult{RecordCount: -1},
			func(p []byte) (Variant, error) { v, err := DecodeDoPutUpdateResult(p); return v, err }},
		{"GetCatalogs", CommandGetCatalogs{},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetCatalogs(p); return v, err }},
		{"GetSchemas", CommandGetSchemas{Catalog: nil, SchemaFilterPattern: strp("")},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetSchemas(p); return v, err }},
		{"GetTables", CommandGetTables{
			Catalog: strp("APP"), TableTypes: []string{"TABLE", "VIEW"}, IncludeSchema: true},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetTables(p); return v, err }},
		{"GetTableTypes", CommandGetTableTypes{},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetTableTypes(p); return v, err }},
		{"GetSqlInfo", CommandGetSqlInfo{Info: []int32{0, 1, 2}},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetSqlInfo(p); return v, err }},
		{"GetPrimaryKeys", CommandGetPrimaryKeys{TableRef{Table: "INTTABLE"}},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetPrimaryKeys(p); return v, err }},
		{"GetImportedKeys", CommandGetImportedKeys{TableRef{Catalog: strp(""), Table: "INTTABLE"}},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetImportedKeys(p); return v, err }},
		{"GetExportedKeys", CommandGetExportedKeys{TableRef{Table: "FOREIGNTABLE"}},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetExportedKeys(p); return v, err }},
		{"GetCrossReference", CommandGetCrossReference{CrossTableRef{PKTable: "FOREIGNTABLE", FKTable: "INTTABLE"}},
			func(p []byte) (Variant, error) { v, err := DecodeCommandGetCrossReference(p); return v, err }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			packed, err := Pack(tc.variant)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}

			packedAgain, err := Pack(tc.variant)
			if err != nil {
				t.Fatalf("Pack (again): %v", err)
			}
			if !bytes.Equal(packed, packedAgain) {
				t.Fatalf("Pack is not canonical: %x != %x", packed, packedAgain)
			}

			if !Is(packed, tc.variant) {
				t.Fatalf("Is(Pack(v), v) = false")
			}

			tag, payload, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if tag != tc.variant.typeURL() {
				t.Fatalf("tag = %q, want %q", tag, tc.variant.typeURL())
			}

			decoded, err := tc.decode(payload)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(decoded, tc.variant) {
				t.Fatalf("round trip mismatch:\n  got  %#v\n  want %#v", decoded, tc.variant)
			}
		})
	}
}

func TestUnpackRejectsGarbage(t *testing.T) {
	if _, _, err := Unpack([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected ErrInvalidEnvelope for garbage bytes")
	}
}

func TestIsFalseForOtherVariant(t *testing.T) {
	packed, _ := Pack(CommandStatementQuery{Query: "SELECT 1"})
	if Is(packed, CommandStatementUpdate{Query: "SELECT 1"}) {
		t.Fatal("Is matched the wrong variant")
	}
}
