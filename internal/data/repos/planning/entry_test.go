package planning

import (
	"errors"
	"testing"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
)

func semPtr(s types.Semester) *types.Semester { return &s }

func TestEntryRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewEntryRepo(db, testutil.Logger(t))

	testutil.SeedNode(t, tx, "msc", "/r", nil, "Root", types.QuotaRule{})
	testutil.SeedNode(t, tx, "msc", "/a", testutil.StrPtr("/r"), "A", types.QuotaRule{})

	e1 := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/a", SemesterTag: types.SemesterWinter, ActivityID: "M1",
		Name: "Algorithms", Credits: 5, State: types.StatePlanned, Year: testutil.IntPtr(2024), Semester: semPtr(types.SemesterWinter)}
	e2 := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/a", SemesterTag: types.SemesterSummer, ActivityID: "M2",
		Name: "Networks", Credits: 6, State: types.StateDone, Year: testutil.IntPtr(2024), Semester: semPtr(types.SemesterSummer)}
	e3 := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/r", SemesterTag: types.SemesterWinter, ActivityID: "M3",
		Name: "Thesis", Credits: 30, State: types.StateMaybePlanned}
	e4 := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/r", SemesterTag: types.SemesterWinter, ActivityID: "M4",
		Name: "Seminar", Credits: 3}
	if err := repo.Upsert(dbc, []*types.LeafEntry{e1, e2, e3, e4}, nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if e4.State != types.StateNotPlanned {
		t.Fatalf("default state: got %q", e4.State)
	}

	if rows, err := repo.GetByNode(dbc, "msc", "/a"); err != nil || len(rows) != 2 || rows[0].ActivityID != "M1" {
		t.Fatalf("GetByNode: rows=%v err=%v", rows, err)
	}

	sched, err := repo.GetScheduled(dbc, "msc")
	if err != nil || len(sched) != 2 || sched[0].ActivityID != "M2" || sched[1].ActivityID != "M1" {
		t.Fatalf("GetScheduled: rows=%v err=%v", sched, err)
	}
	if rows, err := repo.GetInSemester(dbc, "msc", 2024, types.SemesterWinter); err != nil || len(rows) != 1 || rows[0].ActivityID != "M1" {
		t.Fatalf("GetInSemester: rows=%v err=%v", rows, err)
	}
	// Not-planned entries without a schedule are not reported.
	if rows, err := repo.GetUnscheduled(dbc, "msc"); err != nil || len(rows) != 1 || rows[0].ActivityID != "M3" {
		t.Fatalf("GetUnscheduled: rows=%v err=%v", rows, err)
	}

	// Progress upsert changes state and credits but not the name.
	again := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/a", SemesterTag: types.SemesterWinter, ActivityID: "M1",
		Name: "ignored", Credits: 8, State: types.StateDone}
	if err := repo.Upsert(dbc, []*types.LeafEntry{again}, nil); err != nil {
		t.Fatalf("Upsert conflict: %v", err)
	}
	got, err := repo.GetByKey(dbc, e1.Key())
	if err != nil || got == nil || got.Name != "Algorithms" || got.Credits != 8 || got.State != types.StateDone || got.Year != nil {
		t.Fatalf("Upsert conflict verify: got=%+v err=%v", got, err)
	}

	// Catalog upsert keeps user-owned fields.
	catalog := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/a", SemesterTag: types.SemesterWinter, ActivityID: "M1",
		Name: "Algorithms II", Credits: 9}
	if err := repo.Upsert(dbc, []*types.LeafEntry{catalog}, CatalogColumns); err != nil {
		t.Fatalf("Upsert catalog: %v", err)
	}
	got, _ = repo.GetByKey(dbc, e1.Key())
	if got.Name != "Algorithms II" || got.Credits != 9 || got.State != types.StateDone {
		t.Fatalf("Upsert catalog verify: got=%+v", got)
	}

	missing := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/nowhere", SemesterTag: types.SemesterWinter, ActivityID: "M9"}
	if err := repo.Upsert(dbc, []*types.LeafEntry{missing}, nil); !errors.Is(err, aggregates.ErrPrecondition) {
		t.Fatalf("Upsert missing node: err=%v", err)
	}
	bad := &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/a", SemesterTag: "spring", ActivityID: "M9"}
	if err := repo.Upsert(dbc, []*types.LeafEntry{bad}, nil); !errors.Is(err, aggregates.ErrValidation) {
		t.Fatalf("Upsert bad semester: err=%v", err)
	}

	all, err := repo.ListByCourse(dbc, "msc")
	if err != nil || len(all) != 4 {
		t.Fatalf("ListByCourse: len=%d err=%v", len(all), err)
	}
}

func TestEntryRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewEntryRepo(db, testutil.Logger(t))

	testutil.SeedNode(t, tx, "msc", "/r", nil, "Root", types.QuotaRule{})
	testutil.SeedNode(t, tx, "msc", "/a", testutil.StrPtr("/r"), "A", types.QuotaRule{})
	old := testutil.SeedEntry(t, tx, &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/r", ActivityID: "M1", Name: "X", Credits: 5, Unplaced: true})
	testutil.SeedEntry(t, tx, &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/a", ActivityID: "M2", Name: "Y", Credits: 5})

	moved := *old
	moved.NodeURL = "/a"
	moved.State = types.StatePlanned
	if err := repo.Replace(dbc, old.Key(), &moved); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got, _ := repo.GetByKey(dbc, old.Key()); got != nil {
		t.Fatalf("old key still present: %+v", got)
	}
	got, err := repo.GetByKey(dbc, moved.Key())
	if err != nil || got == nil || got.State != types.StatePlanned || got.Unplaced {
		t.Fatalf("Replace verify: got=%+v err=%v", got, err)
	}
	if rows, _ := repo.GetByActivity(dbc, "msc", "M1", false); len(rows) != 1 {
		t.Fatalf("GetByActivity after clearing unplaced: len=%d", len(rows))
	}

	clash := moved
	clash.ActivityID = "M2"
	if err := repo.Replace(dbc, moved.Key(), &clash); !errors.Is(err, aggregates.ErrConflict) {
		t.Fatalf("Replace clash: err=%v", err)
	}
	if err := repo.Replace(dbc, old.Key(), &moved); !errors.Is(err, aggregates.ErrNotFound) {
		t.Fatalf("Replace missing: err=%v", err)
	}
	other := moved
	other.CourseOfStudy = "bsc"
	if err := repo.Replace(dbc, moved.Key(), &other); !errors.Is(err, aggregates.ErrValidation) {
		t.Fatalf("Replace across courses: err=%v", err)
	}
	nowhere := moved
	nowhere.NodeURL = "/nowhere"
	if err := repo.Replace(dbc, moved.Key(), &nowhere); !errors.Is(err, aggregates.ErrPrecondition) {
		t.Fatalf("Replace to missing node: err=%v", err)
	}
}

func TestEntryRepoUnplacedFilter(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewEntryRepo(db, testutil.Logger(t))

	testutil.SeedNode(t, tx, "msc", "/r", nil, "Root", types.QuotaRule{})
	testutil.SeedEntry(t, tx, &types.LeafEntry{CourseOfStudy: "msc", NodeURL: "/r", ActivityID: "M1", Unplaced: true})

	if rows, err := repo.GetByActivity(dbc, "msc", "M1", false); err != nil || len(rows) != 0 {
		t.Fatalf("GetByActivity placed only: rows=%v err=%v", rows, err)
	}
	if rows, err := repo.GetByActivity(dbc, "msc", "M1", true); err != nil || len(rows) != 1 {
		t.Fatalf("GetByActivity all: rows=%v err=%v", rows, err)
	}
}

func TestCacheRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := testutil.Ctx(db)
	repo := NewCacheRepo(db, testutil.Logger(t))

	if got, err := repo.Get(dbc, "k"); err != nil || got != nil {
		t.Fatalf("Get empty: got=%v err=%v", got, err)
	}
	if err := repo.Put(dbc, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(dbc, "k", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := repo.Get(dbc, "k")
	if err != nil || got == nil || string(got.Value) != `{"a":2}` {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if err := repo.Delete(dbc, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.Get(dbc, "k"); got != nil {
		t.Fatalf("Get after delete: %v", got)
	}
}
