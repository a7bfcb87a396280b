package planning

import (
	"errors"
	"testing"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
)

func TestNodeRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewNodeRepo(db, testutil.Logger(t))

	root := &types.CurriculumNode{CourseOfStudy: "msc", URL: "/r", Name: "Root"}
	a := &types.CurriculumNode{CourseOfStudy: "msc", URL: "/a", Parent: testutil.StrPtr("/r"), Name: "A",
		QuotaRule: types.QuotaRule{MaxCredits: testutil.IntPtr(10)}}
	b := &types.CurriculumNode{CourseOfStudy: "msc", URL: "/b", Parent: testutil.StrPtr("/r"), Name: "B"}
	// Children may precede their parent inside a batch.
	if err := repo.Upsert(dbc, []*types.CurriculumNode{a, root, b}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	roots, err := repo.GetRoots(dbc, "msc")
	if err != nil || len(roots) != 1 || roots[0].URL != "/r" {
		t.Fatalf("GetRoots: roots=%v err=%v", roots, err)
	}
	children, err := repo.GetChildren(dbc, "msc", "/r")
	if err != nil || len(children) != 2 || children[0].URL != "/a" || children[1].URL != "/b" {
		t.Fatalf("GetChildren: children=%v err=%v", children, err)
	}
	if got, err := repo.GetByURL(dbc, "msc", "/a"); err != nil || got == nil || got.MaxCredits == nil || *got.MaxCredits != 10 {
		t.Fatalf("GetByURL: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByURL(dbc, "other", "/a"); err != nil || got != nil {
		t.Fatalf("GetByURL other course: got=%v err=%v", got, err)
	}
	if rows, err := repo.GetByParentAndName(dbc, "msc", testutil.StrPtr("/r"), "B"); err != nil || len(rows) != 1 || rows[0].URL != "/b" {
		t.Fatalf("GetByParentAndName: rows=%v err=%v", rows, err)
	}
	if rows, err := repo.GetByParentAndName(dbc, "msc", nil, "Root"); err != nil || len(rows) != 1 {
		t.Fatalf("GetByParentAndName root: rows=%v err=%v", rows, err)
	}

	// Conflicts move the node but keep name and quota.
	moved := &types.CurriculumNode{CourseOfStudy: "msc", URL: "/a", Parent: testutil.StrPtr("/b"), Name: "renamed"}
	if err := repo.Upsert(dbc, []*types.CurriculumNode{moved}); err != nil {
		t.Fatalf("Upsert conflict: %v", err)
	}
	got, _ := repo.GetByURL(dbc, "msc", "/a")
	if got == nil || got.Parent == nil || *got.Parent != "/b" || got.Name != "A" || got.MaxCredits == nil {
		t.Fatalf("Upsert conflict verify: got=%+v", got)
	}
	if chain, err := repo.Ancestors(dbc, "msc", "/a"); err != nil || len(chain) != 3 || chain[0] != "/a" || chain[2] != "/r" {
		t.Fatalf("Ancestors: chain=%v err=%v", chain, err)
	}

	if err := repo.UpdateQuota(dbc, "msc", "/b", types.QuotaRule{MinCredits: 5, MaxModules: testutil.IntPtr(2)}); err != nil {
		t.Fatalf("UpdateQuota: %v", err)
	}
	got, _ = repo.GetByURL(dbc, "msc", "/b")
	if got.MinCredits != 5 || got.MaxModules == nil || *got.MaxModules != 2 || got.MaxCredits != nil {
		t.Fatalf("UpdateQuota verify: got=%+v", got)
	}
	if err := repo.UpdateQuota(dbc, "msc", "/missing", types.QuotaRule{}); !errors.Is(err, aggregates.ErrNotFound) {
		t.Fatalf("UpdateQuota missing: err=%v", err)
	}

	all, err := repo.ListByCourse(dbc, "msc")
	if err != nil || len(all) != 3 {
		t.Fatalf("ListByCourse: len=%d err=%v", len(all), err)
	}
}

func TestNodeRepoRejectsBrokenTrees(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewNodeRepo(db, testutil.Logger(t))

	if err := repo.Upsert(dbc, []*types.CurriculumNode{
		{CourseOfStudy: "msc", URL: "/r", Name: "Root"},
		{CourseOfStudy: "msc", URL: "/a", Parent: testutil.StrPtr("/r"), Name: "A"},
		{CourseOfStudy: "msc", URL: "/b", Parent: testutil.StrPtr("/a"), Name: "B"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name string
		rows []*types.CurriculumNode
		want error
	}{
		{
			name: "missing parent",
			rows: []*types.CurriculumNode{{CourseOfStudy: "msc", URL: "/x", Parent: testutil.StrPtr("/nowhere"), Name: "X"}},
			want: aggregates.ErrPrecondition,
		},
		{
			name: "second root",
			rows: []*types.CurriculumNode{{CourseOfStudy: "msc", URL: "/r2", Name: "Other root"}},
			want: aggregates.ErrInvariant,
		},
		{
			name: "cycle",
			rows: []*types.CurriculumNode{{CourseOfStudy: "msc", URL: "/a", Parent: testutil.StrPtr("/b"), Name: "A"}},
			want: aggregates.ErrInvariant,
		},
		{
			name: "self parent",
			rows: []*types.CurriculumNode{{CourseOfStudy: "msc", URL: "/b", Parent: testutil.StrPtr("/b"), Name: "B"}},
			want: aggregates.ErrInvariant,
		},
		{
			name: "mixed courses",
			rows: []*types.CurriculumNode{
				{CourseOfStudy: "msc", URL: "/c", Parent: testutil.StrPtr("/r"), Name: "C"},
				{CourseOfStudy: "bsc", URL: "/d", Name: "D"},
			},
			want: aggregates.ErrValidation,
		},
	}
	for _, tc := range cases {
		if err := repo.Upsert(dbc, tc.rows); !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, err)
		}
	}

	all, err := repo.ListByCourse(dbc, "msc")
	if err != nil || len(all) != 3 {
		t.Fatalf("store changed by rejected upserts: len=%d err=%v", len(all), err)
	}
	// A second course gets its own root.
	if err := repo.Upsert(dbc, []*types.CurriculumNode{{CourseOfStudy: "bsc", URL: "/r", Name: "Bachelor"}}); err != nil {
		t.Fatalf("second course root: %v", err)
	}
}
