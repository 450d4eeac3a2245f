package canele_test

import (
	"errors"
	"testing"

	"github.com/canele-orm/canele"
)

func TestForwardAccessorResolvesParent(t *testing.T) {
	openTestDB(t)
	team := createBand(t)

	mio, err := Member.GetBy("first_name = ?", "Mio")
	if err != nil {
		t.Fatalf("get Mio: %v", err)
	}
	parent, err := mio.Parent("team")
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if parent.PK() != team.PK() {
		t.Errorf("parent pk = %d, want %d", parent.PK(), team.PK())
	}
	if got := parent.String("name"); got != "Houkago Tea Time" {
		t.Errorf("parent name = %q", got)
	}
}

func TestParentIsCachedPerRecord(t *testing.T) {
	openTestDB(t)
	createBand(t)

	ritsu, err := Member.GetBy("first_name = ?", "Ritsu")
	if err != nil {
		t.Fatalf("get Ritsu: %v", err)
	}
	first, err := ritsu.Parent("team")
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if _, err := canele.Exec("UPDATE team SET name = ? WHERE id = ?", "Renamed", first.PK()); err != nil {
		t.Fatalf("raw update: %v", err)
	}

	again, err := ritsu.Parent("team")
	if err != nil {
		t.Fatalf("parent again: %v", err)
	}
	if again != first {
		t.Error("second Parent call must return the cached record")
	}
	if got := again.String("name"); got != "Houkago Tea Time" {
		t.Errorf("cached parent name = %q, the update must not be observed", got)
	}

	fresh, err := Member.Get(ritsu.PK())
	if err != nil {
		t.Fatalf("reload Ritsu: %v", err)
	}
	parent, err := fresh.Parent("team")
	if err != nil {
		t.Fatalf("parent on fresh record: %v", err)
	}
	if got := parent.String("name"); got != "Renamed" {
		t.Errorf("fresh record parent = %q, want Renamed", got)
	}
}

func TestReverseCollectionTracksStoredRows(t *testing.T) {
	openTestDB(t)

	team, err := Team.Create(canele.Values{"name": "Houkago Tea Time"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	members, err := team.Collection("members")
	if err != nil {
		t.Fatalf("collection: %v", err)
	}

	ritsu, err := members.Append(canele.Values{"first_name": "Ritsu", "part": "Dr", "age": 17})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := members.Append(canele.Values{"first_name": "Mio", "part": "Ba", "age": 17}); err != nil {
		t.Fatalf("append: %v", err)
	}

	n, err := members.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	parent, err := ritsu.Parent("team")
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if parent.PK() != team.PK() {
		t.Errorf("appended member points at team %d, want %d", parent.PK(), team.PK())
	}

	if err := ritsu.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err = members.Count()
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if n != 1 {
		t.Errorf("count after delete = %d, want 1", n)
	}
}

func TestRemoveNullsOutNullableForeignKey(t *testing.T) {
	openTestDB(t)
	team := createBand(t)

	members, err := team.Collection("members")
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	yui, err := Member.GetBy("first_name = ?", "Yui")
	if err != nil {
		t.Fatalf("get Yui: %v", err)
	}
	if err := members.Remove(yui); err != nil {
		t.Fatalf("remove: %v", err)
	}

	n, err := members.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Errorf("count after remove = %d, want 4", n)
	}

	orphan, err := Member.GetBy("first_name = ?", "Yui")
	if err != nil {
		t.Fatalf("Yui must survive removal: %v", err)
	}
	if !orphan.IsNull("team_id") {
		t.Error("team_id should be NULL after remove")
	}
	parent, err := orphan.Parent("team")
	if err != nil {
		t.Fatalf("parent on null fk: %v", err)
	}
	if parent != nil {
		t.Error("null foreign key on a nullable relation resolves to no parent")
	}
}

func TestAccessorNameCollisionAtDefinitionTime(t *testing.T) {
	if _, err := Member.BelongsTo(Team, canele.As("squad"), canele.Related("members")); err == nil {
		t.Fatal("duplicate reverse accessor must fail")
	} else {
		var collision *canele.NameCollisionError
		if !errors.As(err, &collision) {
			t.Fatalf("error = %T, want NameCollisionError", err)
		}
		if collision.Model != "Team" || collision.Name != "members" {
			t.Errorf("collision = %+v", collision)
		}
	}

	if _, err := Team.BelongsTo(Member, canele.As("name")); err == nil {
		t.Fatal("accessor shadowing a declared field must fail")
	}
}

func TestSelfReferentialRelation(t *testing.T) {
	openTestDB(t)

	sawako, err := Employee.Create(canele.Values{"name": "Sawako"})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	reports, err := sawako.Collection("reports")
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	nodoka, err := reports.Append(canele.Values{"name": "Nodoka"})
	if err != nil {
		t.Fatalf("append report: %v", err)
	}

	manager, err := nodoka.Parent("manager")
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if manager.PK() != sawako.PK() {
		t.Errorf("manager pk = %d, want %d", manager.PK(), sawako.PK())
	}

	top, err := sawako.Parent("manager")
	if err != nil {
		t.Fatalf("manager of the top: %v", err)
	}
	if top != nil {
		t.Error("the top of the chain has no manager")
	}
}

func TestSelfReferentialNamesMustDiffer(t *testing.T) {
	if _, err := Employee.BelongsTo(Employee, canele.As("peer"), canele.Related("peer")); err == nil {
		t.Fatal("identical forward and reverse names on one model must fail")
	}
}

func TestReferencesNonPrimaryColumn(t *testing.T) {
	openTestDB(t)
	createBand(t)

	if _, err := Fan.Create(canele.Values{"name": "Ui", "fav_part": "Gt1"}); err != nil {
		t.Fatalf("create fan: %v", err)
	}
	ui, err := Fan.GetBy("name = ?", "Ui")
	if err != nil {
		t.Fatalf("get fan: %v", err)
	}

	idol, err := ui.Parent("idol")
	if err != nil {
		t.Fatalf("idol: %v", err)
	}
	if got := idol.String("first_name"); got != "Yui" {
		t.Errorf("idol = %q, want Yui", got)
	}

	yui, err := Member.GetBy("first_name = ?", "Yui")
	if err != nil {
		t.Fatalf("get Yui: %v", err)
	}
	fans, err := yui.Collection("fans")
	if err != nil {
		t.Fatalf("fans: %v", err)
	}
	n, err := fans.Count()
	if err != nil {
		t.Fatalf("count fans: %v", err)
	}
	if n != 1 {
		t.Errorf("fan count = %d, want 1", n)
	}
}

func TestAmbiguousForeignKeyValue(t *testing.T) {
	openTestDB(t)
	createBand(t)

	// a second member with the same part makes fav_part ambiguous
	if _, err := Member.Create(canele.Values{"first_name": "Jun", "part": "Gt1", "age": 16}); err != nil {
		t.Fatalf("create duplicate part: %v", err)
	}
	fan, err := Fan.Create(canele.Values{"name": "Megumi", "fav_part": "Gt1"})
	if err != nil {
		t.Fatalf("create fan: %v", err)
	}

	if _, err := fan.Parent("idol"); !errors.Is(err, canele.ErrForeignKeyNotUnique) {
		t.Errorf("parent over duplicate key = %v, want ErrForeignKeyNotUnique", err)
	}
}

func TestManyToManyCollections(t *testing.T) {
	openTestDB(t)
	createBand(t)

	song, err := Song.Create(canele.Values{"name": "Fuwa Fuwa Time"})
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	performers, err := song.Collection("members")
	if err != nil {
		t.Fatalf("members: %v", err)
	}

	mio, err := Member.GetBy("first_name = ?", "Mio")
	if err != nil {
		t.Fatalf("get Mio: %v", err)
	}
	yui, err := Member.GetBy("first_name = ?", "Yui")
	if err != nil {
		t.Fatalf("get Yui: %v", err)
	}
	if err := performers.Add(mio); err != nil {
		t.Fatalf("add Mio: %v", err)
	}
	if err := performers.Add(yui); err != nil {
		t.Fatalf("add Yui: %v", err)
	}

	n, err := performers.Count()
	if err != nil {
		t.Fatalf("count performers: %v", err)
	}
	if n != 2 {
		t.Errorf("performers = %d, want 2", n)
	}

	// reverse side
	songs, err := mio.Collection("songs")
	if err != nil {
		t.Fatalf("songs: %v", err)
	}
	rows, err := songs.All()
	if err != nil {
		t.Fatalf("all songs: %v", err)
	}
	if len(rows) != 1 || rows[0].String("name") != "Fuwa Fuwa Time" {
		t.Errorf("Mio's songs = %d rows", len(rows))
	}
}

func TestManyToManyRemoveOnlyDropsTheJoinRow(t *testing.T) {
	openTestDB(t)
	createBand(t)

	song, err := Song.Create(canele.Values{"name": "My Love is a Stapler"})
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	performers, err := song.Collection("members")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	mio, err := performers.Append(canele.Values{"first_name": "Mio2", "last_name": "Akiyama", "part": "Vo", "age": 17})
	if err != nil {
		t.Fatalf("append performer: %v", err)
	}

	if err := performers.Remove(mio); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, err := performers.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("performers after remove = %d, want 0", n)
	}
	if _, err := Member.Get(mio.PK()); err != nil {
		t.Errorf("removed performer must still exist as a member: %v", err)
	}
}

func TestInvalidAccessor(t *testing.T) {
	openTestDB(t)
	createBand(t)

	mio, err := Member.GetBy("first_name = ?", "Mio")
	if err != nil {
		t.Fatalf("get Mio: %v", err)
	}
	if _, err := mio.Parent("nonsense"); !errors.Is(err, canele.ErrInvalidAccessor) {
		t.Errorf("unknown parent accessor = %v, want ErrInvalidAccessor", err)
	}
	if _, err := mio.Collection("team"); !errors.Is(err, canele.ErrInvalidAccessor) {
		t.Errorf("Collection on a forward accessor = %v, want ErrInvalidAccessor", err)
	}
}
