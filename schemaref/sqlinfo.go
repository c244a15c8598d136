package schemaref

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// SqlInfoCode is an i32 code drawn from the public enumeration of server
// capabilities / engine attributes (spec.md §6, GLOSSARY).
type SqlInfoCode int32

// Well-known SqlInfo codes. Numbering mirrors the grouping used by the
// Apache Arrow Flight SQL specification: server identity in the 0-99
// range, DDL/session capabilities starting at 500.
const (
	SqlInfoServerName         SqlInfoCode = 0
	SqlInfoServerVersion      SqlInfoCode = 1
	SqlInfoServerArrowVersion SqlInfoCode = 2
	SqlInfoServerReadOnly     SqlInfoCode = 3

	SqlInfoDDLCatalog             SqlInfoCode = 500
	SqlInfoDDLSchema              SqlInfoCode = 501
	SqlInfoDDLTable               SqlInfoCode = 502
	SqlInfoIdentifierCase         SqlInfoCode = 503
	SqlInfoIdentifierQuoteChar    SqlInfoCode = 504
	SqlInfoQuotedIdentifierCase   SqlInfoCode = 505
)

// SqlInfoResultMap is the set of values a server has registered to answer
// GetSqlInfo with, keyed by code.
type SqlInfoResultMap map[int32]any

// AppendSqlInfoValue appends one row's value to the dense-union value
// column, setting the type id to indicate which child holds the value, per
// spec.md §4.2. Supported Go types: string, bool (encoded as int32 0/1),
// int32, int64, and []int32 (encoded as a packed bitmask).
func AppendSqlInfoValue(bldr *array.DenseUnionBuilder, v any) error {
	switch val := v.(type) {
	case string:
		bldr.Append(arrow.UnionTypeCode(SqlInfoValueString))
		bldr.Child(0).(*array.StringBuilder).Append(val)
	case bool:
		bldr.Append(arrow.UnionTypeCode(SqlInfoValueInt32))
		n := int32(0)
		if val {
			n = 1
		}
		bldr.Child(1).(*array.Int32Builder).Append(n)
	case int32:
		bldr.Append(arrow.UnionTypeCode(SqlInfoValueInt32))
		bldr.Child(1).(*array.Int32Builder).Append(val)
	case int64:
		bldr.Append(arrow.UnionTypeCode(SqlInfoValueInt64))
		bldr.Child(2).(*array.Int64Builder).Append(val)
	case []int32:
		bldr.Append(arrow.UnionTypeCode(SqlInfoValueInt32Bitmask))
		var mask int32
		for _, bit := range val {
			mask |= 1 << uint(bit)
		}
		bldr.Child(3).(*array.Int32Builder).Append(mask)
	default:
		return fmt.Errorf("schemaref: unsupported sql info value type %T", v)
	}
	return nil
}
