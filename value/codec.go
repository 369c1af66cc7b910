package value

import (
	"unicode/utf8"

	"github.com/chamira/SQLiteManager/engine"
)

// Row maps column names to cells. Duplicate column names in a result set
// collapse to the right-most column.
type Row map[string]Value

// Bind binds v to the 1-based parameter param.
func Bind(stmt engine.Stmt, param int, v Value) {
	switch v.kind {
	case KindInteger:
		stmt.BindInt64(param, v.i)
	case KindFloat:
		stmt.BindFloat(param, v.f)
	case KindText:
		stmt.BindText(param, v.s)
	case KindBlob:
		stmt.BindBytes(param, v.b)
	default:
		stmt.BindNull(param)
	}
}

// BindAll binds values positionally starting at parameter 1.
func BindAll(stmt engine.Stmt, values []Value) {
	for i, v := range values {
		Bind(stmt, i+1, v)
	}
}

// Decode reads column col of the current row. Text that is not valid UTF-8
// decodes to NULL.
func Decode(stmt engine.Stmt, col int) Value {
	switch stmt.ColumnType(col) {
	case engine.TypeInteger:
		return Int(stmt.ColumnInt64(col))
	case engine.TypeFloat:
		return Float(stmt.ColumnFloat(col))
	case engine.TypeText:
		s := stmt.ColumnText(col)
		if !utf8.ValidString(s) {
			return Null()
		}
		return Text(s)
	case engine.TypeBlob:
		return Blob(stmt.ColumnBytes(col))
	}
	return Null()
}

// ColumnNames returns the result column names in statement order.
func ColumnNames(stmt engine.Stmt) []string {
	n := stmt.ColumnCount()
	names := make([]string, n)
	for i := range names {
		names[i] = stmt.ColumnName(i)
	}
	return names
}

// DecodeRow decodes the current row using the names from ColumnNames.
func DecodeRow(stmt engine.Stmt, names []string) Row {
	row := make(Row, len(names))
	for i, name := range names {
		row[name] = Decode(stmt, i)
	}
	return row
}
