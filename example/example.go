package main

import (
	"fmt"
	"log"

	"github.com/canele-orm/canele"
	"github.com/canele-orm/canele/schema"
)

var (
	team = canele.Define("Team", canele.Fields(
		schema.Text("name", schema.MaxLength(40)),
		schema.Timestamp("created", schema.AtCreate()),
	))
	member = canele.Define("Member", canele.Fields(
		schema.Integer("age", schema.Min(15), schema.Max(18)),
		schema.Timestamp("joined", schema.AtCreate()),
	))
)

func init() {
	if _, err := member.BelongsTo(team, canele.Related("members")); err != nil {
		log.Fatal(err)
	}
}

func main() {
	if err := canele.Open(":memory:"); err != nil {
		log.Fatal(err)
	}
	defer canele.Close()

	for _, ddl := range []string{
		`CREATE TABLE team (
			id      INTEGER PRIMARY KEY,
			name    VARCHAR(40) NOT NULL,
			created TIMESTAMP
		)`,
		`CREATE TABLE member (
			id         INTEGER PRIMARY KEY,
			team_id    INTEGER REFERENCES team (id),
			first_name TEXT,
			part       VARCHAR(10),
			age        INT DEFAULT 16,
			joined     TIMESTAMP
		)`,
	} {
		if _, err := canele.Exec(ddl); err != nil {
			log.Fatal(err)
		}
	}

	htt, err := team.Create(canele.Values{"name": "Houkago Tea Time"})
	if err != nil {
		log.Fatal(err)
	}

	members, err := htt.Collection("members")
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range []canele.Values{
		{"first_name": "Ritsu", "part": "Dr"},
		{"first_name": "Mio", "part": "Ba"},
		{"first_name": "Yui", "part": "Gt", "age": 17},
	} {
		if _, err := members.Append(m); err != nil {
			log.Fatal(err)
		}
	}

	rows, err := members.OrderBy("first_name").All()
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range rows {
		fmt.Printf("%s plays %s (age %d, joined %s)\n",
			m.String("first_name"), m.String("part"), m.Int("age"), m.Time("joined").Format("2006-01-02"))
	}

	if err := canele.Commit(); err != nil {
		log.Fatal(err)
	}
}
