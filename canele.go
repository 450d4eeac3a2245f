// Package canele is a small object-relational mapping layer for SQLite.
// Tables and columns are created outside of it; canele introspects the
// live schema once per model and maps rows to Records without SQL for
// everyday reads and writes.
//
//	canele.Open("members.db")
//	defer canele.Close()
//
//	team, _ := Team.Create(canele.Values{"name": "Houkago Tea Time"})
//	members, _ := team.Collection("members")
//	members.Append(canele.Values{"first_name": "Ritsu", "part": "Dr"})
//	members.Append(canele.Values{"first_name": "Mio", "part": "Ba"})
//	canele.Commit()
//
// The session is a single shared connection with no internal locking;
// callers using it from more than one goroutine must serialize every
// statement themselves. A web host should Attach a connection before
// each unit of work and Detach it afterwards.
package canele

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/canele-orm/canele/logger"
	"github.com/canele-orm/canele/schema"
)

// Naming is the naming strategy used when models and relationships are
// defined. Replace it before defining any model.
var Naming schema.Namer = schema.NamingStrategy{}

// Session is the process-wide connection context. All models and query
// sets funnel through it. Statements run inside an implicit transaction
// that Commit and Rollback close and reopen.
type Session struct {
	db         *sql.DB
	tx         *sql.Tx
	ownsDB     bool
	autoCommit bool
	logger     logger.Interface
	history    *logger.Recorder

	historySize *int
}

// Option configures a session at Open or Attach time.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Interface) Option {
	return func(s *Session) { s.logger = l }
}

// WithAutoCommit commits instead of rolling back when the session is
// closed.
func WithAutoCommit() Option {
	return func(s *Session) { s.autoCommit = true }
}

// WithHistory keeps a history of the n most recently executed
// statements; n == 0 keeps everything. See History.
func WithHistory(n int) Option {
	return func(s *Session) { s.historySize = &n }
}

var current *Session

// Open opens a SQLite database file (":memory:" works) and installs it
// as the process-wide session. Foreign key enforcement is switched on.
func Open(path string, opts ...Option) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	// one shared connection, the implicit transaction pins it
	db.SetMaxOpenConns(1)

	if err := attach(db, true, opts); err != nil {
		db.Close()
		return err
	}
	return nil
}

// Attach adopts a caller-provided database handle as the process-wide
// session. The handle is not closed on Detach or Close; request-scoped
// hosts attach a fresh connection per unit of work.
func Attach(db *sql.DB, opts ...Option) error {
	return attach(db, false, opts)
}

func attach(db *sql.DB, owns bool, opts []Option) error {
	s := &Session{db: db, ownsDB: owns, logger: logger.Default}
	for _, opt := range opts {
		opt(s)
	}
	if s.historySize != nil {
		s.history = logger.NewRecorder(s.logger, *s.historySize)
		s.logger = s.history
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx

	current = s
	return nil
}

// Detach commits or rolls back the implicit transaction and releases
// the process-wide session. Cached table metadata is reset so the next
// Attach re-introspects. The database handle is closed only when the
// session owns it.
func Detach(commit bool) error {
	s := current
	if s == nil {
		return ErrSessionNotInitialized
	}
	current = nil
	resetMetadata()

	var err error
	if commit {
		err = s.tx.Commit()
	} else {
		err = s.tx.Rollback()
	}
	if s.ownsDB {
		if closeErr := s.db.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Close tears the session down, committing first only when it was
// opened WithAutoCommit.
func Close() error {
	s := current
	if s == nil {
		return ErrSessionNotInitialized
	}
	return Detach(s.autoCommit)
}

// Commit commits the implicit transaction and opens the next one.
func Commit() error {
	s, err := session()
	if err != nil {
		return err
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return s.begin()
}

// Rollback rolls the implicit transaction back and opens the next one.
func Rollback() error {
	s, err := session()
	if err != nil {
		return err
	}
	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return s.begin()
}

// Exec runs a raw statement on the session, an escape hatch for schema
// setup and anything the mapping layer does not cover.
func Exec(query string, args ...interface{}) (sql.Result, error) {
	s, err := session()
	if err != nil {
		return nil, err
	}
	return s.exec(query, args)
}

// Query runs a raw query on the session.
func Query(query string, args ...interface{}) (*sql.Rows, error) {
	s, err := session()
	if err != nil {
		return nil, err
	}
	return s.Query(query, args...)
}

// History returns the session's statement recorder, or nil when the
// session was opened without WithHistory.
func History() *logger.Recorder {
	if current == nil {
		return nil
	}
	return current.history
}

func session() (*Session, error) {
	if current == nil {
		return nil, ErrSessionNotInitialized
	}
	return current, nil
}

func (s *Session) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

func (s *Session) exec(query string, args []interface{}) (sql.Result, error) {
	begin := time.Now()
	shown, shownArgs := s.filterParams(query, args)

	res, err := s.tx.Exec(query, args...)
	s.logger.Trace(context.Background(), begin, func() (string, int64) {
		rows := int64(-1)
		if res != nil {
			if n, resErr := res.RowsAffected(); resErr == nil {
				rows = n
			}
		}
		return explain(shown, shownArgs), rows
	}, err)
	return res, err
}

// Query runs a query inside the session's implicit transaction. It
// satisfies schema.Queryer, so metadata introspection goes through the
// same tracing path as everything else.
func (s *Session) Query(query string, args ...interface{}) (*sql.Rows, error) {
	begin := time.Now()
	shown, shownArgs := s.filterParams(query, args)

	rows, err := s.tx.Query(query, args...)
	s.logger.Trace(context.Background(), begin, func() (string, int64) {
		return explain(shown, shownArgs), -1
	}, err)
	return rows, err
}

func (s *Session) filterParams(query string, args []interface{}) (string, []interface{}) {
	if pf, ok := s.logger.(logger.ParamsFilterer); ok {
		return pf.ParamsFilter(context.Background(), query, args...)
	}
	return query, args
}

// explain inlines parameters on a private copy, the caller's args are
// reused across materializations.
func explain(query string, args []interface{}) string {
	vars := make([]interface{}, len(args))
	copy(vars, args)
	return logger.ExplainSQL(query, "'", vars...)
}
