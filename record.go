package canele

import (
	"fmt"
	"strings"
	"time"

	"github.com/canele-orm/canele/schema"
)

// Record is one row of a mapped table held in memory. Records obtained
// from Create, Get or a query set are persisted; a deleted record is
// stale and refuses further writes.
type Record struct {
	model     *Model
	values    map[string]interface{}
	parents   map[string]*Record
	persisted bool
	stale     bool
}

// Model returns the record's model.
func (r *Record) Model() *Model { return r.model }

// Persisted reports whether the record has a stored row.
func (r *Record) Persisted() bool { return r.persisted }

// PK returns the primary key value, or 0 for an unsaved record.
func (r *Record) PK() int64 {
	meta := r.model.meta
	if meta == nil || meta.PrimaryKey == nil {
		return 0
	}
	if n, ok := r.values[meta.PrimaryKey.Name].(int64); ok {
		return n
	}
	return 0
}

// Get returns the raw value of a column.
func (r *Record) Get(name string) interface{} { return r.values[name] }

// String returns a column as a string, or "" when unset.
func (r *Record) String(name string) string {
	switch v := r.values[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns a column as an int64, or 0 when unset.
func (r *Record) Int(name string) int64 {
	switch v := r.values[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float returns a column as a float64, or 0 when unset.
func (r *Record) Float(name string) float64 {
	switch v := r.values[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns a column as a bool, false when unset.
func (r *Record) Bool(name string) bool {
	switch v := r.values[name].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	default:
		return false
	}
}

// Time returns a timestamp column, zero when unset.
func (r *Record) Time(name string) time.Time {
	if t, ok := r.values[name].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// IsNull reports whether a column holds NULL.
func (r *Record) IsNull(name string) bool { return r.values[name] == nil }

// Set assigns a column value in memory; Save persists it.
func (r *Record) Set(name string, value interface{}) error {
	meta, err := r.model.Meta()
	if err != nil {
		return err
	}
	if meta.Field(name) == nil {
		return fmt.Errorf("%w: %s.%s", ErrInvalidColumn, r.model.tableName, name)
	}
	r.values[name] = value
	return nil
}

// Values returns a snapshot of the record's fields.
func (r *Record) Values() Values {
	snapshot := make(Values, len(r.values))
	for k, v := range r.values {
		snapshot[k] = v
	}
	return snapshot
}

// Save runs the save pipeline and persists the record with a single
// UPDATE keyed by primary key.
func (r *Record) Save() error {
	if r.stale {
		return ErrStaleRecord
	}
	if !r.persisted {
		return ErrNotPersisted
	}
	s, err := session()
	if err != nil {
		return err
	}
	meta, err := r.model.Meta()
	if err != nil {
		return err
	}
	if meta.PrimaryKey == nil {
		return fmt.Errorf("table %s: %w", r.model.tableName, errNoPrimaryKey)
	}

	for _, f := range meta.Fields {
		r.values[f.Name] = f.Assign(schema.StageSave, r.values[f.Name])
	}
	if err := r.model.hooks.BeforeSave(r); err != nil {
		return err
	}
	if err := r.model.validate(r, meta); err != nil {
		return err
	}

	var (
		assigns []string
		params  []interface{}
	)
	for _, f := range meta.Fields {
		if f.PrimaryKey {
			continue
		}
		dbv, err := f.ToDatabase(r.values[f.Name])
		if err != nil {
			return err
		}
		assigns = append(assigns, fmt.Sprintf("%s = ?", f.Name))
		params = append(params, dbv)
	}
	pk := r.PK()
	params = append(params, pk)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		r.model.tableName, strings.Join(assigns, ", "), meta.PrimaryKey.Name)
	if _, err := s.exec(stmt, params); err != nil {
		return fmt.Errorf("update %s: %w", r.model.tableName, err)
	}

	if err := r.load(pk); err != nil {
		return err
	}
	return r.model.hooks.AfterSave(r)
}

// Delete removes the stored row. The record becomes stale; any further
// Save or Delete fails fast.
func (r *Record) Delete() error {
	if r.stale {
		return ErrStaleRecord
	}
	if !r.persisted {
		return ErrNotPersisted
	}
	s, err := session()
	if err != nil {
		return err
	}
	meta, err := r.model.Meta()
	if err != nil {
		return err
	}
	if meta.PrimaryKey == nil {
		return fmt.Errorf("table %s: %w", r.model.tableName, errNoPrimaryKey)
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.model.tableName, meta.PrimaryKey.Name)
	if _, err := s.exec(stmt, []interface{}{r.PK()}); err != nil {
		return fmt.Errorf("delete from %s: %w", r.model.tableName, err)
	}
	r.stale = true
	return nil
}

// Refresh re-reads the stored row and drops cached parent lookups.
func (r *Record) Refresh() error {
	if r.stale {
		return ErrStaleRecord
	}
	if !r.persisted {
		return ErrNotPersisted
	}
	return r.load(r.PK())
}

// load replaces the in-memory values with the stored row for pk.
func (r *Record) load(pk int64) error {
	fresh, err := r.model.Get(pk)
	if err != nil {
		return err
	}
	r.values = fresh.values
	r.parents = nil
	r.persisted = true
	return nil
}
