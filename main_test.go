package canele_test

import (
	"fmt"
	"testing"

	"github.com/canele-orm/canele"
	"github.com/canele-orm/canele/logger"
	"github.com/canele-orm/canele/schema"
)

var (
	Team = canele.Define("Team", canele.Fields(
		schema.Text("name", schema.MaxLength(20)),
		schema.Timestamp("created", schema.AtCreate()),
	))
	Member = canele.Define("Member", canele.Fields(
		schema.Text("first_name", schema.MaxLength(20)),
		schema.Integer("age", schema.Min(15), schema.Max(18)),
		schema.Timestamp("joined", schema.AtCreate()),
		schema.Timestamp("modified", schema.AtSave()),
	))
	Song     = canele.Define("Song")
	Play     = canele.Define("Play")
	Employee = canele.Define("Employee")
	Fan      = canele.Define("Fan")
	Album    = canele.Define("Album", canele.WithHooks(&albumHooks))
)

var albumHooks recordingHooks

type recordingHooks struct {
	canele.NopHooks
	calls []string
}

func (h *recordingHooks) BeforeCreate(r *canele.Record) error {
	h.calls = append(h.calls, "before_create")
	return r.Set("title", "[new] "+r.String("title"))
}

func (h *recordingHooks) AfterCreate(r *canele.Record) error {
	h.calls = append(h.calls, "after_create")
	return nil
}

func (h *recordingHooks) BeforeSave(r *canele.Record) error {
	h.calls = append(h.calls, "before_save")
	return nil
}

func (h *recordingHooks) AfterSave(r *canele.Record) error {
	h.calls = append(h.calls, "after_save")
	return nil
}

func init() {
	if _, err := Member.BelongsTo(Team, canele.Related("members"), canele.Nullable()); err != nil {
		panic(err)
	}
	if _, err := Song.ManyToMany(Member, canele.As("members"), canele.Related("songs"), canele.JoinTable("song_member")); err != nil {
		panic(err)
	}
	if _, err := Employee.BelongsTo(Employee, canele.As("manager"), canele.ForeignKey("manager_id"), canele.Related("reports"), canele.Nullable()); err != nil {
		panic(err)
	}
	if _, err := Fan.BelongsTo(Member, canele.As("idol"), canele.ForeignKey("fav_part"), canele.References("part"), canele.Related("fans")); err != nil {
		panic(err)
	}
}

var testDDL = []string{
	`CREATE TABLE team (
		id      INTEGER PRIMARY KEY,
		name    VARCHAR(40) NOT NULL,
		created TIMESTAMP
	)`,
	`CREATE TABLE member (
		id         INTEGER PRIMARY KEY,
		team_id    INTEGER REFERENCES team (id),
		first_name TEXT,
		last_name  TEXT,
		part       VARCHAR(10),
		age        INT DEFAULT 16,
		joined     TIMESTAMP,
		modified   TIMESTAMP
	)`,
	`CREATE TABLE song (
		id   INTEGER PRIMARY KEY,
		name VARCHAR(50) NOT NULL
	)`,
	`CREATE TABLE song_member (
		id        INTEGER PRIMARY KEY,
		song_id   INTEGER REFERENCES song (id),
		member_id INTEGER REFERENCES member (id)
	)`,
	`CREATE TABLE employee (
		id         INTEGER PRIMARY KEY,
		name       TEXT,
		manager_id INTEGER REFERENCES employee (id)
	)`,
	`CREATE TABLE fan (
		id       INTEGER PRIMARY KEY,
		name     TEXT,
		fav_part TEXT
	)`,
	`CREATE TABLE album (
		id    INTEGER PRIMARY KEY,
		title TEXT,
		plays INT DEFAULT 0
	)`,
}

// openTestDB opens a fresh in-memory session and creates the test
// schema. The schema is committed so Rollback in a test only reverts
// data.
func openTestDB(t *testing.T, opts ...canele.Option) {
	t.Helper()
	opts = append([]canele.Option{canele.WithLogger(logger.Discard)}, opts...)
	if err := canele.Open(":memory:", opts...); err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { canele.Close() })

	for _, ddl := range testDDL {
		if _, err := canele.Exec(ddl); err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	if err := canele.Commit(); err != nil {
		t.Fatalf("commit schema: %v", err)
	}
}

type memberFixture struct {
	first, last, part string
	age               int
}

var bandMembers = []memberFixture{
	{"Ritsu", "Tainaka", "Dr", 17},
	{"Mio", "Akiyama", "Ba", 17},
	{"Yui", "Hirasawa", "Gt1", 17},
	{"Tsumugi", "Kotobuki", "Kb", 17},
	{"Azusa", "Nakano", "Gt2", 16},
}

// createBand stores the usual team with five members and returns the
// team record.
func createBand(t *testing.T) *canele.Record {
	t.Helper()
	team, err := Team.Create(canele.Values{"name": "Houkago Tea Time"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	members, err := team.Collection("members")
	if err != nil {
		t.Fatalf("members collection: %v", err)
	}
	for _, m := range bandMembers {
		_, err := members.Append(canele.Values{
			"first_name": m.first,
			"last_name":  m.last,
			"part":       m.part,
			"age":        m.age,
		})
		if err != nil {
			t.Fatalf("append member %s: %v", m.first, err)
		}
	}
	return team
}

func memberNames(records []*canele.Record) string {
	s := ""
	for i, r := range records {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s:%s", r.String("first_name"), r.String("part"))
	}
	return s
}
