package logger

import (
	"context"
	"errors"
)

// ErrHistoryDisabled indexed access on a recorder with history disabled
var ErrHistoryDisabled = errors.New("sql history is disabled")

// Entry is one executed statement kept by a Recorder.
type Entry struct {
	SQL    string
	Params []interface{}
}

// Recorder wraps another logger and keeps a bounded history of executed
// SQL statements, most recent first. MaxCount 0 keeps everything,
// a negative MaxCount disables the history but still records the last
// statement. Not safe for concurrent use, like the session it observes.
type Recorder struct {
	Interface

	maxCount int
	entries  []Entry
	lastSQL  string
	lastVars []interface{}
}

// NewRecorder wraps base with statement recording.
func NewRecorder(base Interface, maxCount int) *Recorder {
	return &Recorder{Interface: base, maxCount: maxCount}
}

// ParamsFilter records the statement, then defers to the wrapped logger.
func (r *Recorder) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	// keep a copy, the caller may rewrite the slice while explaining
	kept := make([]interface{}, len(params))
	copy(kept, params)

	r.lastSQL = sql
	r.lastVars = kept
	if r.maxCount >= 0 {
		if r.maxCount > 0 {
			for len(r.entries) >= r.maxCount {
				r.entries = r.entries[:len(r.entries)-1]
			}
		}
		r.entries = append([]Entry{{SQL: sql, Params: kept}}, r.entries...)
	}
	if pf, ok := r.Interface.(ParamsFilterer); ok {
		return pf.ParamsFilter(ctx, sql, params...)
	}
	return sql, params
}

// LogMode sets the log level of the wrapped logger, keeping the recorder.
func (r *Recorder) LogMode(level LogLevel) Interface {
	newRecorder := *r
	newRecorder.Interface = r.Interface.LogMode(level)
	return &newRecorder
}

// LastSQL returns the most recently executed statement.
func (r *Recorder) LastSQL() string { return r.lastSQL }

// LastParams returns the parameters of the most recently executed statement.
func (r *Recorder) LastParams() []interface{} { return r.lastVars }

// Count returns the number of recorded statements.
func (r *Recorder) Count() int { return len(r.entries) }

// At returns the recorded entry at idx; index 0 is the latest statement.
func (r *Recorder) At(idx int) (Entry, error) {
	if r.maxCount < 0 {
		return Entry{}, ErrHistoryDisabled
	}
	if idx < 0 || idx >= len(r.entries) {
		return Entry{}, errors.New("sql history index out of range")
	}
	return r.entries[idx], nil
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.entries = nil
	r.lastSQL = ""
	r.lastVars = nil
}
