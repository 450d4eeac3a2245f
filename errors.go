package canele

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/canele-orm/canele/logger"
)

var (
	// ErrRecordNotFound a single-row fetch matched no rows
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrMultipleRecords a single-row fetch matched more than one row
	ErrMultipleRecords = errors.New("multiple records returned")
	// ErrSessionNotInitialized a database operation ran before Open or Attach
	ErrSessionNotInitialized = errors.New("session not initialized, call Open or Attach first")
	// ErrStaleRecord the record was deleted and can no longer be written
	ErrStaleRecord = errors.New("record is stale")
	// ErrNotPersisted Save or Delete on a record that was never stored
	ErrNotPersisted = errors.New("record has not been persisted")
	// ErrNegativeIndex negative indexes and slice bounds are not supported
	ErrNegativeIndex = errors.New("negative index not supported")
	// ErrForeignKeyNotUnique a foreign key matched more than one parent row
	ErrForeignKeyNotUnique = errors.New("foreign key matches multiple parent records")
	// ErrInvalidColumn a value refers to a column the table does not have
	ErrInvalidColumn = errors.New("invalid column name")
	// ErrInvalidAccessor no relationship accessor registered under the name
	ErrInvalidAccessor = errors.New("invalid relationship accessor")

	errNoPrimaryKey = errors.New("no primary key column")
)

// ValidationError carries every field that failed validation, not just
// the first one.
type ValidationError struct {
	Model  string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return fmt.Sprintf("%s validation failed: %s", e.Model, strings.Join(parts, "; "))
}

// NameCollisionError installing a relationship accessor would overwrite
// an attribute the model already has.
type NameCollisionError struct {
	Model string
	Name  string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("%s already has an attribute named %q", e.Model, e.Name)
}
