package canele

import (
	"fmt"
	"strings"

	"github.com/canele-orm/canele/schema"
)

// Values are the keyword fields of a record, keyed by column name.
type Values map[string]interface{}

// Model is the registration of one record-backed table: its name, the
// developer-declared fields and the relationship accessors. Table
// metadata is introspected from the live schema on first use and
// cached until the session is torn down.
type Model struct {
	name      string
	tableName string
	declared  map[string]*schema.Field
	ordered   []*schema.Field
	hooks     Hooks
	accessors map[string]*accessor

	meta *schema.Table
}

var registry []*Model

// ModelOption configures a model at definition time.
type ModelOption func(*Model)

// Table overrides the table name derived from the model name.
func Table(name string) ModelOption {
	return func(m *Model) { m.tableName = name }
}

// Fields declares fields explicitly, keeping their validators and
// transforms when the table is introspected.
func Fields(fields ...*schema.Field) ModelOption {
	return func(m *Model) {
		for _, f := range fields {
			m.declared[f.Name] = f
			m.ordered = append(m.ordered, f)
		}
	}
}

// WithHooks installs the model's lifecycle hooks.
func WithHooks(h Hooks) ModelOption {
	return func(m *Model) { m.hooks = h }
}

// Define registers a record class. The table name defaults to the
// snake_cased model name; the table itself must already exist when the
// model is first used.
func Define(name string, opts ...ModelOption) *Model {
	m := &Model{
		name:      name,
		declared:  map[string]*schema.Field{},
		hooks:     NopHooks{},
		accessors: map[string]*accessor{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tableName == "" {
		m.tableName = Naming.TableName(name)
	}
	registry = append(registry, m)
	return m
}

// resetMetadata drops every model's cached table metadata; called on
// session teardown so the next session re-introspects.
func resetMetadata() {
	for _, m := range registry {
		m.meta = nil
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// TableName returns the mapped table name.
func (m *Model) TableName() string { return m.tableName }

// Meta returns the table metadata, introspecting the live schema on
// first access. It fails with ErrSessionNotInitialized before Open or
// Attach, and with a *schema.SchemaError when the table is missing.
func (m *Model) Meta() (*schema.Table, error) {
	if m.meta != nil {
		return m.meta, nil
	}
	s, err := session()
	if err != nil {
		return nil, err
	}
	t, err := schema.Introspect(s, m.tableName, m.declared)
	if err != nil {
		return nil, err
	}
	m.meta = t
	return t, nil
}

// All returns a query set over every row of the table.
func (m *Model) All() *QuerySet {
	return &QuerySet{model: m}
}

// Select returns a query set narrowed by a parameterized where clause.
func (m *Model) Select(where string, args ...interface{}) *QuerySet {
	return m.All().Select(where, args...)
}

// Get fetches a single record by primary key.
func (m *Model) Get(pk int64) (*Record, error) {
	meta, err := m.Meta()
	if err != nil {
		return nil, err
	}
	if meta.PrimaryKey == nil {
		return nil, fmt.Errorf("table %s: %w", m.tableName, errNoPrimaryKey)
	}
	return m.Select(fmt.Sprintf("%s = ?", meta.PrimaryKey.Name), pk).One()
}

// GetBy fetches the single record matching a filter. Zero matches is
// ErrRecordNotFound, more than one is ErrMultipleRecords.
func (m *Model) GetBy(where string, args ...interface{}) (*Record, error) {
	return m.Select(where, args...).One()
}

// Create builds a record from keyword values, runs the create pipeline
// and persists it with a single INSERT. Omitted fields take their
// declared or introspected defaults; the stored row is read back so
// engine-computed values are visible on the returned record.
func (m *Model) Create(values Values) (*Record, error) {
	s, err := session()
	if err != nil {
		return nil, err
	}
	meta, err := m.Meta()
	if err != nil {
		return nil, err
	}

	rec := m.blank(meta)
	for name, v := range values {
		if meta.Field(name) == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrInvalidColumn, m.tableName, name)
		}
		rec.values[name] = v
	}
	for _, f := range meta.Fields {
		rec.values[f.Name] = f.Assign(schema.StageCreate, rec.values[f.Name])
	}

	if err := m.hooks.BeforeCreate(rec); err != nil {
		return nil, err
	}
	if err := m.validate(rec, meta); err != nil {
		return nil, err
	}

	var (
		cols    []string
		holders []string
		params  []interface{}
	)
	for _, f := range meta.Fields {
		v := rec.values[f.Name]
		if v == nil {
			// omitted columns keep their engine-side default
			continue
		}
		dbv, err := f.ToDatabase(v)
		if err != nil {
			return nil, err
		}
		cols = append(cols, f.Name)
		holders = append(holders, "?")
		params = append(params, dbv)
	}

	var stmt string
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", m.tableName)
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			m.tableName, strings.Join(cols, ", "), strings.Join(holders, ", "))
	}
	res, err := s.exec(stmt, params)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", m.tableName, err)
	}

	pk := rec.PK()
	if pk == 0 {
		if pk, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("insert into %s: %w", m.tableName, err)
		}
	}
	if err := rec.load(pk); err != nil {
		return nil, err
	}
	if err := m.hooks.AfterCreate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// blank builds an unsaved record holding every field's default value.
func (m *Model) blank(meta *schema.Table) *Record {
	values := make(map[string]interface{}, len(meta.Fields))
	for _, f := range meta.Fields {
		if f.HasDefault {
			values[f.Name] = f.Default
		} else {
			values[f.Name] = nil
		}
	}
	return &Record{model: m, values: values}
}

// validate runs every field's constraints, aggregating all failures.
func (m *Model) validate(rec *Record, meta *schema.Table) error {
	failures := map[string]string{}
	for _, f := range meta.Fields {
		if err := f.Validate(rec.values[f.Name]); err != nil {
			failures[f.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		return &ValidationError{Model: m.name, Fields: failures}
	}
	return nil
}

// factory rehydrates one result row into a Record.
func (m *Model) factory(meta *schema.Table, columns []string, raw []interface{}) (*Record, error) {
	values := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		v := raw[i]
		if f := meta.Field(col); f != nil {
			converted, err := f.ToObject(v)
			if err != nil {
				return nil, err
			}
			v = converted
		}
		values[col] = v
	}
	return &Record{model: m, values: values, persisted: true}, nil
}
