package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	repoplanning "github.com/yungbote/degreeplan-backend/internal/data/repos/planning"
	"github.com/yungbote/degreeplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	uc := planning.New(planning.UsecasesDeps{
		Log:     log,
		Tx:      aggregates.NewGormTxRunner(db),
		Nodes:   repoplanning.NewNodeRepo(db, log),
		Entries: repoplanning.NewEntryRepo(db, log),
		Cache:   planning.NewStoreCache(repoplanning.NewCacheRepo(db, log), log),
	})
	h := NewPlanningHandler(log, uc)

	r := gin.New()
	g := r.Group("/api/courses/:course")
	g.GET("/roots", h.GetRoots)
	g.GET("/children", h.GetChildren)
	g.GET("/entries", h.GetEntries)
	g.GET("/aggregate", h.GetAggregate)
	g.POST("/nodes", h.UpsertNodes)
	g.POST("/entries", h.UpsertEntries)
	g.PUT("/entries", h.UpdateEntry)
	g.GET("/move-targets", h.GetMoveTargets)
	g.POST("/quota", h.SetQuota)
	g.GET("/semesters", h.GetSemesters)
	g.GET("/semesters/:year/:semester", h.GetSemester)
	g.GET("/unscheduled", h.GetUnscheduled)
	g.POST("/placements", h.PlaceEntries)
	g.POST("/snapshots", h.ImportSnapshot)
	g.POST("/reconciliations", h.ReconcileResults)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func seedTree(t *testing.T, r *gin.Engine) {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/courses/msc/nodes", gin.H{"nodes": []gin.H{
		{"url": "/r", "name": "Degree"},
		{"url": "/r/a", "parent": "/r", "name": "Required"},
		{"url": "/r/b", "parent": "/r", "name": "Elective", "max_credits": 10},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/api/courses/msc/entries", gin.H{"entries": []gin.H{
		{"node_url": "/r/a", "semester_tag": "winter", "activity_id": "M1", "name": "Algorithms", "credits": 8, "state": "done", "year": 2024, "semester": "winter"},
		{"node_url": "/r/b", "semester_tag": "winter", "activity_id": "M2", "name": "Graphics", "credits": 6, "state": "done", "year": 2025, "semester": "summer"},
		{"node_url": "/r/b", "semester_tag": "winter", "activity_id": "M3", "name": "Networks", "credits": 6, "state": "planned"},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPlanningHandlerTreeReads(t *testing.T) {
	r := newTestRouter(t)
	seedTree(t, r)

	var roots struct {
		Nodes []types.CurriculumNode `json:"nodes"`
	}
	rec := doJSON(t, r, http.MethodGet, "/api/courses/msc/roots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &roots)
	require.Len(t, roots.Nodes, 1)
	require.Equal(t, "/r", roots.Nodes[0].URL)

	var children struct {
		Nodes []types.CurriculumNode `json:"nodes"`
	}
	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/children?node="+url.QueryEscape("/r"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &children)
	require.Len(t, children.Nodes, 2)
	require.Equal(t, "/r/a", children.Nodes[0].URL)

	var entries struct {
		Entries []types.LeafEntry `json:"entries"`
	}
	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/entries?node="+url.QueryEscape("/r/b"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &entries)
	require.Len(t, entries.Entries, 2)

	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/children", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanningHandlerAggregate(t *testing.T) {
	r := newTestRouter(t)
	seedTree(t, r)

	var body struct {
		Aggregate types.AggregateNode `json:"aggregate"`
	}
	rec := doJSON(t, r, http.MethodGet, "/api/courses/msc/aggregate?expanded="+url.QueryEscape("/r/b"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &body)
	require.Len(t, body.Aggregate.Children, 2)
	// Elective holds 12 counted credits capped at 10.
	require.Equal(t, 18, body.Aggregate.ActualCredits)
	require.Equal(t, 18, body.Aggregate.PropagatedCredits)
	require.Equal(t, 12, body.Aggregate.Children[1].ActualCredits)
	require.Equal(t, 10, body.Aggregate.Children[1].PropagatedCredits)

	rec = doJSON(t, r, http.MethodGet, "/api/courses/other/aggregate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"aggregate": null}`, rec.Body.String())
}

func TestPlanningHandlerSemesters(t *testing.T) {
	r := newTestRouter(t)
	seedTree(t, r)

	var grouped struct {
		Groups []types.SemesterGroup `json:"groups"`
	}
	rec := doJSON(t, r, http.MethodGet, "/api/courses/msc/semesters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &grouped)
	require.Len(t, grouped.Groups, 2)
	require.Equal(t, 2024, grouped.Groups[0].Year)
	require.Equal(t, types.SemesterWinter, grouped.Groups[0].Semester)

	var one struct {
		Entries []types.EntryWithMoveTargets `json:"entries"`
	}
	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/semesters/2025/summer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &one)
	require.Len(t, one.Entries, 1)
	require.Equal(t, "M2", one.Entries[0].Entry.ActivityID)
	require.NotEmpty(t, one.Entries[0].MoveTargets)

	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/semesters/2025/autumn", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var unscheduled struct {
		Entries []types.EntryWithMoveTargets `json:"entries"`
	}
	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/unscheduled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &unscheduled)
	require.Len(t, unscheduled.Entries, 1)
	require.Equal(t, "M3", unscheduled.Entries[0].Entry.ActivityID)
}

func TestPlanningHandlerUpdateAndMoveTargets(t *testing.T) {
	r := newTestRouter(t)
	seedTree(t, r)

	var targets struct {
		MoveTargets []types.MoveTarget `json:"move_targets"`
	}
	rec := doJSON(t, r, http.MethodGet, "/api/courses/msc/move-targets?node="+url.QueryEscape("/r/b")+"&semester_tag=winter&activity_id=M3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &targets)
	require.Equal(t, "/r/b", targets.MoveTargets[0].URL)
	require.Equal(t, "/r", targets.MoveTargets[len(targets.MoveTargets)-1].URL)

	rec = doJSON(t, r, http.MethodPut, "/api/courses/msc/entries", gin.H{
		"old": gin.H{"node_url": "/r/b", "semester_tag": "winter", "activity_id": "M3"},
		"new": gin.H{"node_url": "/r/a", "semester_tag": "winter", "activity_id": "M3", "name": "Networks", "credits": 6, "state": "planned"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, "/api/courses/msc/move-targets?node="+url.QueryEscape("/r/b")+"&semester_tag=winter&activity_id=M3", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/courses/msc/entries", gin.H{
		"old": gin.H{"node_url": "/r/a", "semester_tag": "winter", "activity_id": "M3"},
		"new": gin.H{"node_url": "/r/missing", "semester_tag": "winter", "activity_id": "M3", "name": "Networks", "state": "planned"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestPlanningHandlerQuotaAndPlacement(t *testing.T) {
	r := newTestRouter(t)
	seedTree(t, r)

	var resolved struct {
		URL string `json:"url"`
	}
	rec := doJSON(t, r, http.MethodPost, "/api/courses/msc/quota", gin.H{"parent": "/r", "name": "Elective", "rules": gin.H{"min_credits": 6, "max_credits": 12}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &resolved)
	require.Equal(t, "/r/b", resolved.URL)

	rec = doJSON(t, r, http.MethodPost, "/api/courses/msc/quota", gin.H{"parent": "/r", "name": "Nope"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var placed struct {
		Failed []types.EntryWithMoveTargets `json:"failed"`
	}
	rec = doJSON(t, r, http.MethodPost, "/api/courses/msc/placements", gin.H{"inserts": []gin.H{
		{"node_url": "/r", "entry": gin.H{"semester_tag": "winter", "activity_id": "M2", "name": "Graphics", "credits": 6, "state": "done", "year": 2025, "semester": "summer"}},
		{"node_url": "/r", "entry": gin.H{"semester_tag": "winter", "activity_id": "M9", "name": "Unknown", "credits": 5, "state": "done"}},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &placed)
	require.Len(t, placed.Failed, 1)
	require.Equal(t, "M9", placed.Failed[0].Entry.ActivityID)
	require.True(t, placed.Failed[0].Entry.Unplaced)

	rec = doJSON(t, r, http.MethodPost, "/api/courses/msc/placements", gin.H{"inserts": []gin.H{
		{"node_url": "/r/missing", "entry": gin.H{"semester_tag": "winter", "activity_id": "M1", "name": "x", "state": "done"}},
	}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlanningHandlerImportSnapshotBrotli(t *testing.T) {
	r := newTestRouter(t)

	snap := types.Snapshot{
		Registrations: []types.SnapshotRegistration{{
			Path: []types.PathSegment{{Name: "Degree", URL: "/r"}, {Name: "Required", URL: "/r/a"}},
			Entries: []types.SnapshotEntry{{Module: &types.SnapshotModuleRef{
				ID: "M1", Name: "Algorithms", URL: "/mod/m1",
			}}},
		}},
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, err = bw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/courses/msc/snapshots?semester=winter", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "br")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Stats types.ImportStats `json:"stats"`
	}
	decode(t, rec, &body)
	require.Equal(t, 2, body.Stats.Nodes)
	require.Equal(t, 1, body.Stats.Entries)

	rec = doJSON(t, r, http.MethodPost, "/api/courses/msc/snapshots", snap)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
