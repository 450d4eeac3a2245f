// Package schema holds the per-table metadata of the mapping layer:
// field descriptors, naming conventions and the introspection step
// that synthesizes fields from a live SQLite schema.
package schema

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SchemaError a referenced table or column does not exist. Fatal:
// the mapping layer cannot create tables.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %s has no column %s", e.Table, e.Column)
	}
	return fmt.Sprintf("table %s does not exist", e.Table)
}

// Queryer is the subset of a database handle introspection needs.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Table is the metadata of one mapped table: its name, primary key and
// ordered fields. Built once per model by Introspect and cached by the
// owning model for the lifetime of the session; schema changes after
// introspection are not observed.
type Table struct {
	Name         string
	PrimaryKey   *Field
	Fields       []*Field
	FieldsByName map[string]*Field
}

// Field returns the field for a column name, or nil.
func (t *Table) Field(name string) *Field {
	return t.FieldsByName[name]
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Introspect builds table metadata from the live database schema.
// Declared fields are kept as-is (their validators and transforms
// survive) and completed with the introspected column facts; all other
// columns get a synthesized Field with an inferred semantic type.
func Introspect(q Queryer, table string, declared map[string]*Field) (*Table, error) {
	rows, err := q.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	t := &Table{Name: table, FieldsByName: map[string]*Field{}}
	for rows.Next() {
		var (
			cid       int
			name      string
			dbType    string
			notNull   int
			dflt      sql.NullString
			pkOrdinal int
		)
		if err := rows.Scan(&cid, &name, &dbType, &notNull, &dflt, &pkOrdinal); err != nil {
			return nil, fmt.Errorf("introspect %s: %w", table, err)
		}

		f := declared[name]
		if f == nil {
			f = &Field{Name: name, DataType: InferDataType(dbType)}
		}
		f.DBType = dbType
		f.NotNull = notNull != 0
		f.PrimaryKey = pkOrdinal > 0
		if dflt.Valid && !f.HasDefault {
			if v, ok := parseDefault(f.DataType, dflt.String); ok {
				f.Default = v
				f.HasDefault = true
			}
		}

		t.Fields = append(t.Fields, f)
		t.FieldsByName[name] = f
		if f.PrimaryKey {
			t.PrimaryKey = f
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}

	// PRAGMA table_info returns no rows for a missing table
	if len(t.Fields) == 0 {
		return nil, &SchemaError{Table: table}
	}
	return t, nil
}

// InferDataType maps a declared SQL type string to a semantic type,
// loosely following SQLite's affinity rules. Unknown types fall back
// to text.
func InferDataType(sqlType string) DataType {
	s := strings.ToUpper(sqlType)
	switch {
	case strings.Contains(s, "BOOL"):
		return TypeBoolean
	case strings.Contains(s, "DATE"), strings.Contains(s, "TIME"):
		return TypeTimestamp
	case strings.Contains(s, "INT"):
		return TypeInteger
	case strings.Contains(s, "CHAR"), strings.Contains(s, "CLOB"), strings.Contains(s, "TEXT"):
		return TypeText
	case strings.Contains(s, "REAL"), strings.Contains(s, "FLOA"), strings.Contains(s, "DOUB"),
		strings.Contains(s, "NUMERIC"), strings.Contains(s, "DECIMAL"):
		return TypeFloat
	default:
		return TypeText
	}
}

// parseDefault interprets a declared column default. Engine-computed
// defaults such as CURRENT_TIMESTAMP are left to the database (they
// become visible after the post-insert refresh).
func parseDefault(dataType DataType, raw string) (interface{}, bool) {
	if strings.EqualFold(raw, "NULL") {
		return nil, false
	}
	if strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") && len(raw) >= 2 {
		return strings.ReplaceAll(raw[1:len(raw)-1], "''", "'"), true
	}

	switch dataType {
	case TypeInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, true
		}
	case TypeFloat:
		if x, err := strconv.ParseFloat(raw, 64); err == nil {
			return x, true
		}
	case TypeBoolean:
		if strings.EqualFold(raw, "TRUE") || raw == "1" {
			return true, true
		}
		if strings.EqualFold(raw, "FALSE") || raw == "0" {
			return false, true
		}
	case TypeText:
		return raw, true
	}
	return nil, false
}
