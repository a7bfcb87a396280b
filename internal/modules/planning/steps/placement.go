package steps

import (
	"errors"
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	repoplanning "github.com/yungbote/degreeplan-backend/internal/data/repos/planning"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type PlaceEntriesDeps struct {
	Log     *logger.Logger
	Nodes   repos.NodeRepo
	Entries repos.EntryRepo
}

type PlaceEntriesInput struct {
	CourseOfStudy string
	Inserts       []types.NominalEntry
}

// PlaceEntries stores each incoming entry where the activity already lives if
// that placement sits at or below the nominal node. Entries that cannot be
// confirmed are stored under the nominal node, flagged unplaced and returned.
func PlaceEntries(dbc dbctx.Context, deps PlaceEntriesDeps, in PlaceEntriesInput) ([]types.EntryWithMoveTargets, error) {
	if deps.Log == nil || deps.Nodes == nil || deps.Entries == nil {
		return nil, fmt.Errorf("place_entries: missing deps")
	}
	log := deps.Log.With("step", "PlaceEntries", "course_of_study", in.CourseOfStudy)

	failed := []types.EntryWithMoveTargets{}
	for _, insert := range in.Inserts {
		entry := insert.Entry
		entry.CourseOfStudy = in.CourseOfStudy

		nominal, err := deps.Nodes.GetByURL(dbc, in.CourseOfStudy, insert.NodeURL)
		if err != nil {
			return nil, err
		}
		if nominal == nil {
			return nil, aggregates.PreconditionError(fmt.Sprintf("nominal node %q does not exist in %q", insert.NodeURL, in.CourseOfStudy))
		}

		placedAt, err := findPlacement(dbc, deps, log, entry, insert.NodeURL)
		if err != nil {
			return nil, err
		}
		if placedAt != "" {
			entry.NodeURL = placedAt
			entry.Unplaced = false
			if err := deps.Entries.Upsert(dbc, []*types.LeafEntry{&entry}, placementColumns()); err != nil {
				return nil, err
			}
			continue
		}

		entry.NodeURL = insert.NodeURL
		entry.Unplaced = true
		if err := deps.Entries.Upsert(dbc, []*types.LeafEntry{&entry}, placementColumns()); err != nil {
			return nil, err
		}
		targets, err := MoveTargets(dbc, MoveTargetsDeps{Nodes: deps.Nodes}, entry)
		if err != nil {
			return nil, err
		}
		log.Debug("Entry could not be placed", "activity_id", entry.ActivityID, "nominal", insert.NodeURL)
		failed = append(failed, types.EntryWithMoveTargets{Entry: entry, MoveTargets: targets})
	}
	return failed, nil
}

// placementColumns are the columns a placement overwrites on conflict. The
// unplaced flag always reflects the outcome of the latest pass.
func placementColumns() []string {
	return append(append([]string{}, repoplanning.ProgressColumns...), "unplaced")
}

// findPlacement returns the node of the first existing placement of the
// activity whose ancestor chain contains nominal, or "" if there is none.
func findPlacement(dbc dbctx.Context, deps PlaceEntriesDeps, log *logger.Logger, entry types.LeafEntry, nominal string) (string, error) {
	candidates, err := deps.Entries.GetByActivity(dbc, entry.CourseOfStudy, entry.ActivityID, false)
	if err != nil {
		return "", err
	}
	for _, candidate := range candidates {
		chain, err := deps.Nodes.Ancestors(dbc, entry.CourseOfStudy, candidate.NodeURL)
		if errors.Is(err, aggregates.ErrInvariant) || errors.Is(err, aggregates.ErrPrecondition) {
			log.Warn("Skipping candidate with broken ancestry", "activity_id", entry.ActivityID, "node_url", candidate.NodeURL, "error", err)
			continue
		}
		if err != nil {
			return "", err
		}
		for _, url := range chain {
			if url == nominal {
				return candidate.NodeURL, nil
			}
		}
	}
	return "", nil
}
