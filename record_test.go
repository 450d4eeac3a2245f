package canele_test

import (
	"errors"
	"testing"
	"time"

	"github.com/canele-orm/canele"
)

func TestSavePersistsExactlyTheChange(t *testing.T) {
	openTestDB(t)
	createBand(t)

	yui, err := Member.GetBy("first_name = ?", "Yui")
	if err != nil {
		t.Fatalf("get Yui: %v", err)
	}
	if err := yui.Set("part", "Castanets"); err != nil {
		t.Fatalf("set part: %v", err)
	}
	if err := yui.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh, err := Member.Get(yui.PK())
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if got := fresh.String("part"); got != "Castanets" {
		t.Errorf("part = %q, want Castanets", got)
	}
	if got := fresh.String("first_name"); got != "Yui" {
		t.Errorf("first_name = %q, other fields must be untouched", got)
	}
	if fresh.Time("modified").IsZero() {
		t.Error("modified should be refreshed by the at-save transform")
	}
}

func TestDeleteThenGetRaisesNotFound(t *testing.T) {
	openTestDB(t)
	createBand(t)

	azusa, err := Member.GetBy("part = ?", "Gt2")
	if err != nil {
		t.Fatalf("get Azusa: %v", err)
	}
	pk := azusa.PK()
	if err := azusa.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := Member.Get(pk); !errors.Is(err, canele.ErrRecordNotFound) {
		t.Errorf("get after delete = %v, want ErrRecordNotFound", err)
	}
}

func TestStaleRecordFailsFast(t *testing.T) {
	openTestDB(t)
	createBand(t)

	ritsu, err := Member.GetBy("first_name = ?", "Ritsu")
	if err != nil {
		t.Fatalf("get Ritsu: %v", err)
	}
	if err := ritsu.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := ritsu.Save(); !errors.Is(err, canele.ErrStaleRecord) {
		t.Errorf("save after delete = %v, want ErrStaleRecord", err)
	}
	if err := ritsu.Delete(); !errors.Is(err, canele.ErrStaleRecord) {
		t.Errorf("second delete = %v, want ErrStaleRecord", err)
	}
	if err := ritsu.Refresh(); !errors.Is(err, canele.ErrStaleRecord) {
		t.Errorf("refresh after delete = %v, want ErrStaleRecord", err)
	}
}

func TestTypedAccessors(t *testing.T) {
	openTestDB(t)
	createBand(t)

	mio, err := Member.GetBy("first_name = ?", "Mio")
	if err != nil {
		t.Fatalf("get Mio: %v", err)
	}

	if got := mio.String("last_name"); got != "Akiyama" {
		t.Errorf("String(last_name) = %q", got)
	}
	if got := mio.Int("age"); got != 17 {
		t.Errorf("Int(age) = %d", got)
	}
	if got := mio.Float("age"); got != 17 {
		t.Errorf("Float(age) = %v", got)
	}
	if mio.Time("joined").IsZero() {
		t.Error("Time(joined) should be set")
	}
	if mio.IsNull("team_id") {
		t.Error("team_id should not be null")
	}

	snapshot := mio.Values()
	snapshot["last_name"] = "changed"
	if mio.String("last_name") != "Akiyama" {
		t.Error("Values() must be a snapshot, not the live map")
	}
}

func TestRefreshSeesExternalChange(t *testing.T) {
	openTestDB(t)
	createBand(t)

	tsumugi, err := Member.GetBy("first_name = ?", "Tsumugi")
	if err != nil {
		t.Fatalf("get Tsumugi: %v", err)
	}
	if _, err := canele.Exec("UPDATE member SET part = ? WHERE id = ?", "Key", tsumugi.PK()); err != nil {
		t.Fatalf("raw update: %v", err)
	}

	if got := tsumugi.String("part"); got != "Kb" {
		t.Fatalf("part = %q before refresh, want the stale Kb", got)
	}
	if err := tsumugi.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := tsumugi.String("part"); got != "Key" {
		t.Errorf("part = %q after refresh, want Key", got)
	}
}

func TestCreateTimestampRoundTrip(t *testing.T) {
	openTestDB(t)

	before := time.Now().Add(-time.Minute)
	team, err := Team.Create(canele.Values{"name": "Houkago Tea Time"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created := team.Time("created")
	if created.Before(before) || created.After(time.Now().Add(time.Minute)) {
		t.Errorf("created = %v, want between test start and now", created)
	}
}
