package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/degreeplan-backend/internal/domain/aggregates"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/http/response"
	"github.com/yungbote/degreeplan-backend/internal/ingestion/snapshot"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type PlanningHandler struct {
	log      *logger.Logger
	uc       planning.Usecases
	validate *validator.Validate
}

func NewPlanningHandler(log *logger.Logger, uc planning.Usecases) *PlanningHandler {
	return &PlanningHandler{
		log:      log.With("handler", "PlanningHandler"),
		uc:       uc,
		validate: validator.New(),
	}
}

type upsertNodesRequest struct {
	Nodes []*types.CurriculumNode `json:"nodes" validate:"dive,required"`
}

type upsertEntriesRequest struct {
	Entries []*types.LeafEntry `json:"entries" validate:"dive,required"`
}

type updateEntryRequest struct {
	Old types.EntryKey  `json:"old"`
	New types.LeafEntry `json:"new"`
}

type setQuotaRequest struct {
	Parent *string         `json:"parent,omitempty"`
	Name   string          `json:"name" validate:"required"`
	Rules  types.QuotaRule `json:"rules"`
}

type placeEntriesRequest struct {
	Inserts []types.NominalEntry `json:"inserts" validate:"dive"`
}

// GET /api/courses/:course/roots
func (h *PlanningHandler) GetRoots(c *gin.Context) {
	nodes, err := h.uc.GetRoots(c.Request.Context(), c.Param("course"))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"nodes": nodes})
}

// GET /api/courses/:course/children?node=
func (h *PlanningHandler) GetChildren(c *gin.Context) {
	node, ok := requireQuery(c, "node")
	if !ok {
		return
	}
	nodes, err := h.uc.GetChildren(c.Request.Context(), c.Param("course"), node)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"nodes": nodes})
}

// GET /api/courses/:course/entries?node=
func (h *PlanningHandler) GetEntries(c *gin.Context) {
	node, ok := requireQuery(c, "node")
	if !ok {
		return
	}
	entries, err := h.uc.GetEntries(c.Request.Context(), c.Param("course"), node)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

// GET /api/courses/:course/aggregate?expanded=
func (h *PlanningHandler) GetAggregate(c *gin.Context) {
	view, err := h.uc.Aggregate(c.Request.Context(), c.Param("course"), c.QueryArray("expanded"))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	// An unknown course of study yields a null aggregate.
	response.RespondOK(c, gin.H{"aggregate": view})
}

// POST /api/courses/:course/nodes
func (h *PlanningHandler) UpsertNodes(c *gin.Context) {
	var req upsertNodesRequest
	if !h.bind(c, &req, func() {
		for _, n := range req.Nodes {
			if n != nil && n.CourseOfStudy == "" {
				n.CourseOfStudy = c.Param("course")
			}
		}
	}) {
		return
	}
	if err := h.uc.UpsertNodes(c.Request.Context(), c.Param("course"), req.Nodes); err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"nodes": len(req.Nodes)})
}

// POST /api/courses/:course/entries
func (h *PlanningHandler) UpsertEntries(c *gin.Context) {
	var req upsertEntriesRequest
	if !h.bind(c, &req, func() {
		for _, e := range req.Entries {
			fillEntry(e, c.Param("course"))
		}
	}) {
		return
	}
	if err := h.uc.UpsertEntries(c.Request.Context(), c.Param("course"), req.Entries); err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": len(req.Entries)})
}

// PUT /api/courses/:course/entries
func (h *PlanningHandler) UpdateEntry(c *gin.Context) {
	var req updateEntryRequest
	if !h.bind(c, &req, func() {
		if req.Old.CourseOfStudy == "" {
			req.Old.CourseOfStudy = c.Param("course")
		}
		fillEntry(&req.New, c.Param("course"))
	}) {
		return
	}
	if req.Old.CourseOfStudy != c.Param("course") {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("old entry belongs to %q", req.Old.CourseOfStudy))
		return
	}
	entry, err := h.uc.UpdateEntry(c.Request.Context(), req.Old, req.New)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// GET /api/courses/:course/move-targets?node=&semester_tag=&activity_id=
func (h *PlanningHandler) GetMoveTargets(c *gin.Context) {
	key := types.EntryKey{
		CourseOfStudy: c.Param("course"),
		NodeURL:       strings.TrimSpace(c.Query("node")),
		SemesterTag:   types.Semester(strings.TrimSpace(c.Query("semester_tag"))),
		ActivityID:    strings.TrimSpace(c.Query("activity_id")),
	}
	if err := h.validate.Struct(key); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	targets, err := h.uc.MoveTargets(c.Request.Context(), key)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"move_targets": targets})
}

// POST /api/courses/:course/quota
func (h *PlanningHandler) SetQuota(c *gin.Context) {
	var req setQuotaRequest
	if !h.bind(c, &req, nil) {
		return
	}
	url, err := h.uc.SetQuotaAndResolve(c.Request.Context(), planning.SetQuotaInput{
		CourseOfStudy: c.Param("course"),
		Parent:        req.Parent,
		Name:          req.Name,
		Rules:         req.Rules,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"url": url})
}

// GET /api/courses/:course/semesters
func (h *PlanningHandler) GetSemesters(c *gin.Context) {
	groups, err := h.uc.EntriesBySemester(c.Request.Context(), c.Param("course"))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	if groups == nil {
		groups = []types.SemesterGroup{}
	}
	response.RespondOK(c, gin.H{"groups": groups})
}

// GET /api/courses/:course/semesters/:year/:semester
func (h *PlanningHandler) GetSemester(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("invalid year %q", c.Param("year")))
		return
	}
	sem, err := types.ParseSemester(c.Param("semester"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	entries, err := h.uc.EntriesInSemester(c.Request.Context(), c.Param("course"), year, sem)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": nonNil(entries)})
}

// GET /api/courses/:course/unscheduled
func (h *PlanningHandler) GetUnscheduled(c *gin.Context) {
	entries, err := h.uc.UnscheduledEntries(c.Request.Context(), c.Param("course"))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": nonNil(entries)})
}

// POST /api/courses/:course/placements
func (h *PlanningHandler) PlaceEntries(c *gin.Context) {
	var req placeEntriesRequest
	if !h.bind(c, &req, func() {
		for i := range req.Inserts {
			fillEntry(&req.Inserts[i].Entry, c.Param("course"))
			if req.Inserts[i].Entry.NodeURL == "" {
				req.Inserts[i].Entry.NodeURL = req.Inserts[i].NodeURL
			}
		}
	}) {
		return
	}
	failed, err := h.uc.PlaceEntries(c.Request.Context(), c.Param("course"), req.Inserts)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"failed": nonNil(failed)})
}

// POST /api/courses/:course/snapshots?semester=
func (h *PlanningHandler) ImportSnapshot(c *gin.Context) {
	sem, err := types.ParseSemester(c.Query("semester"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	compressed := strings.EqualFold(strings.TrimSpace(c.GetHeader("Content-Encoding")), "br")
	snap, err := snapshot.Decode(c.Request.Body, compressed)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	stats, err := h.uc.ImportSnapshot(c.Request.Context(), planning.ImportSnapshotInput{
		CourseOfStudy: c.Param("course"),
		SemesterTag:   sem,
		Snapshot:      snap,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// POST /api/courses/:course/reconciliations
func (h *PlanningHandler) ReconcileResults(c *gin.Context) {
	compressed := strings.EqualFold(strings.TrimSpace(c.GetHeader("Content-Encoding")), "br")
	in, err := snapshot.DecodeResults(c.Request.Body, compressed)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return
	}
	failed, err := h.uc.ReconcileResults(c.Request.Context(), c.Param("course"), in)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"failed": nonNil(failed)})
}

// bind decodes the JSON body, runs fill, then validates.
func (h *PlanningHandler) bind(c *gin.Context, dst any, fill func()) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	if fill != nil {
		fill()
	}
	if err := h.validate.Struct(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), err)
		return false
	}
	return true
}

func requireQuery(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		response.RespondError(c, http.StatusBadRequest, string(domainagg.CodeValidation), fmt.Errorf("missing query parameter %q", name))
		return "", false
	}
	return v, true
}

func fillEntry(e *types.LeafEntry, courseOfStudy string) {
	if e == nil {
		return
	}
	if e.CourseOfStudy == "" {
		e.CourseOfStudy = courseOfStudy
	}
	if e.State == "" {
		e.State = types.StateNotPlanned
	}
}

func nonNil(entries []types.EntryWithMoveTargets) []types.EntryWithMoveTargets {
	if entries == nil {
		return []types.EntryWithMoveTargets{}
	}
	return entries
}
