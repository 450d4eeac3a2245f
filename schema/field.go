package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/now"
)

// DataType semantic column type
type DataType string

const (
	TypeText      DataType = "text"
	TypeInteger   DataType = "integer"
	TypeFloat     DataType = "float"
	TypeTimestamp DataType = "timestamp"
	TypeBoolean   DataType = "boolean"
)

// Stage identifies which lifecycle operation an automatic assignment
// belongs to.
type Stage int

const (
	// StageCreate value assignment during Create
	StageCreate Stage = iota + 1
	// StageSave value assignment during Save
	StageSave
)

// AutoNowMode controls automatic "now" assignment for timestamp fields.
type AutoNowMode int

const (
	// AutoNowOff no automatic assignment
	AutoNowOff AutoNowMode = iota
	// AutoNowCreate assign time.Now on create only
	AutoNowCreate
	// AutoNowSave assign time.Now on create and on every save
	AutoNowSave
)

// Validator checks a single non-nil field value.
type Validator func(value interface{}) error

// ConversionError a value could not be converted across the
// object/row boundary.
type ConversionError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v for column %s: %s", e.Value, e.Field, e.Reason)
}

// Field describes one column: its semantic type, constraints and value
// transforms. A Field never holds a value itself and is immutable once
// its model is initialized.
type Field struct {
	Name       string
	DBType     string
	DataType   DataType
	PrimaryKey bool
	NotNull    bool
	HasDefault bool
	Default    interface{}
	MaxLength  int
	MinLength  int
	Max        *float64
	Min        *float64
	AutoNow    AutoNowMode

	validators []Validator
	declared   bool
}

// FieldOption configures a declared field.
type FieldOption func(*Field)

// MaxLength limits the rune count of a text value
func MaxLength(n int) FieldOption { return func(f *Field) { f.MaxLength = n } }

// MinLength requires a minimum rune count for a text value
func MinLength(n int) FieldOption { return func(f *Field) { f.MinLength = n } }

// Max sets an inclusive upper bound for a numeric value
func Max(v float64) FieldOption { return func(f *Field) { f.Max = &v } }

// Min sets an inclusive lower bound for a numeric value
func Min(v float64) FieldOption { return func(f *Field) { f.Min = &v } }

// Default sets the in-memory default applied to omitted values on create
func Default(v interface{}) FieldOption {
	return func(f *Field) { f.Default, f.HasDefault = v, true }
}

// AtCreate assigns time.Now to the field when the record is created
func AtCreate() FieldOption { return func(f *Field) { f.AutoNow = AutoNowCreate } }

// AtSave assigns time.Now when the record is created and on every save
func AtSave() FieldOption { return func(f *Field) { f.AutoNow = AutoNowSave } }

// Validate appends a custom validator, run after the built-in checks
func Validate(fn Validator) FieldOption {
	return func(f *Field) { f.validators = append(f.validators, fn) }
}

func newField(name string, dataType DataType, opts []FieldOption) *Field {
	f := &Field{Name: name, DataType: dataType, declared: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Text declares a text column
func Text(name string, opts ...FieldOption) *Field {
	return newField(name, TypeText, opts)
}

// Integer declares an integer column
func Integer(name string, opts ...FieldOption) *Field {
	return newField(name, TypeInteger, opts)
}

// Float declares a floating point column
func Float(name string, opts ...FieldOption) *Field {
	return newField(name, TypeFloat, opts)
}

// Timestamp declares a timestamp column
func Timestamp(name string, opts ...FieldOption) *Field {
	return newField(name, TypeTimestamp, opts)
}

// Boolean declares a boolean column
func Boolean(name string, opts ...FieldOption) *Field {
	return newField(name, TypeBoolean, opts)
}

// Declared reports whether the field was declared by the developer
// rather than synthesized from the introspected schema.
func (f *Field) Declared() bool { return f.declared }

// Assign applies the field's automatic value for the given stage and
// returns the value to store. Non-automatic fields pass value through.
func (f *Field) Assign(stage Stage, value interface{}) interface{} {
	switch f.AutoNow {
	case AutoNowCreate:
		if stage == StageCreate {
			return time.Now()
		}
	case AutoNowSave:
		return time.Now()
	}
	return value
}

// Validate checks value against the field's declared constraints.
// Nil values are left to the engine's NOT NULL enforcement.
func (f *Field) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	switch f.DataType {
	case TypeText:
		s, ok := value.(string)
		if !ok {
			if b, isBytes := value.([]byte); isBytes {
				s = string(b)
			} else {
				return fmt.Errorf("not a text value: %v", value)
			}
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			return fmt.Errorf("text is too long (max %d)", f.MaxLength)
		}
		if f.MinLength > 0 && utf8.RuneCountInString(s) < f.MinLength {
			return fmt.Errorf("text is too short (min %d)", f.MinLength)
		}
	case TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return fmt.Errorf("not an integer: %v", value)
		}
		if err := f.checkBounds(float64(n)); err != nil {
			return err
		}
	case TypeFloat:
		x, err := toFloat64(value)
		if err != nil {
			return fmt.Errorf("not a number: %v", value)
		}
		if err := f.checkBounds(x); err != nil {
			return err
		}
	case TypeTimestamp:
		switch value.(type) {
		case time.Time, *time.Time, string:
		default:
			return fmt.Errorf("not a timestamp: %v", value)
		}
	case TypeBoolean:
		switch value.(type) {
		case bool, int, int64:
		default:
			return fmt.Errorf("not a boolean: %v", value)
		}
	}

	for _, fn := range f.validators {
		if err := fn(value); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field) checkBounds(v float64) error {
	if f.Max != nil && v > *f.Max {
		return fmt.Errorf("max value %v is exceeded", *f.Max)
	}
	if f.Min != nil && v < *f.Min {
		return fmt.Errorf("min value %v is underrun", *f.Min)
	}
	return nil
}

// ToDatabase converts an object value into a form the driver stores.
func (f *Field) ToDatabase(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch f.DataType {
	case TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return nil, &ConversionError{Field: f.Name, Value: value, Reason: err.Error()}
		}
		return n, nil
	case TypeFloat:
		x, err := toFloat64(value)
		if err != nil {
			return nil, &ConversionError{Field: f.Name, Value: value, Reason: err.Error()}
		}
		return x, nil
	case TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case *time.Time:
			if v == nil {
				return nil, nil
			}
			return *v, nil
		case string:
			t, err := now.Parse(v)
			if err != nil {
				return nil, &ConversionError{Field: f.Name, Value: value, Reason: "unrecognized timestamp"}
			}
			return t, nil
		}
		return nil, &ConversionError{Field: f.Name, Value: value, Reason: "unsupported timestamp value"}
	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int:
			return v != 0, nil
		case int64:
			return v != 0, nil
		}
		return nil, &ConversionError{Field: f.Name, Value: value, Reason: "unsupported boolean value"}
	}

	if b, ok := value.([]byte); ok {
		return string(b), nil
	}
	return value, nil
}

// ToObject converts a raw row value into its object form.
func (f *Field) ToObject(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch f.DataType {
	case TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return nil, &ConversionError{Field: f.Name, Value: value, Reason: err.Error()}
		}
		return n, nil
	case TypeFloat:
		x, err := toFloat64(value)
		if err != nil {
			return nil, &ConversionError{Field: f.Name, Value: value, Reason: err.Error()}
		}
		return x, nil
	case TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			return parseTime(f, v)
		case []byte:
			return parseTime(f, string(v))
		}
		return nil, &ConversionError{Field: f.Name, Value: value, Reason: "unsupported timestamp value"}
	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case string:
			return strings.EqualFold(v, "true") || v == "1", nil
		case []byte:
			return strings.EqualFold(string(v), "true") || string(v) == "1", nil
		}
		return nil, &ConversionError{Field: f.Name, Value: value, Reason: "unsupported boolean value"}
	}

	if b, ok := value.([]byte); ok {
		return string(b), nil
	}
	return value, nil
}

func parseTime(f *Field, s string) (interface{}, error) {
	t, err := now.Parse(s)
	if err != nil {
		return nil, &ConversionError{Field: f.Name, Value: s, Reason: "unrecognized timestamp"}
	}
	return t, nil
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return 0, fmt.Errorf("%v is not an integer", v)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	}
	return 0, fmt.Errorf("unsupported integer value %T", value)
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	}
	return 0, fmt.Errorf("unsupported numeric value %T", value)
}
