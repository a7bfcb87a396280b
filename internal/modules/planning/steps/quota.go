package steps

import (
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type SetQuotaDeps struct {
	Log   *logger.Logger
	Nodes repos.NodeRepo
}

type SetQuotaInput struct {
	CourseOfStudy string
	// Parent is nil when resolving the root.
	Parent *string
	Name   string
	Rules  types.QuotaRule
}

// SetQuotaAndResolve finds the node named Name below Parent, overwrites its
// quota rule and returns its url.
func SetQuotaAndResolve(dbc dbctx.Context, deps SetQuotaDeps, in SetQuotaInput) (string, error) {
	if deps.Log == nil || deps.Nodes == nil {
		return "", fmt.Errorf("set_quota: missing deps")
	}
	matches, err := deps.Nodes.GetByParentAndName(dbc, in.CourseOfStudy, in.Parent, in.Name)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		parent := "<root>"
		if in.Parent != nil {
			parent = *in.Parent
		}
		return "", aggregates.NotFoundError(fmt.Sprintf("no node named %q below %s in %q", in.Name, parent, in.CourseOfStudy))
	}
	if len(matches) > 1 {
		deps.Log.Warn("Several nodes share a name below one parent, using the first",
			"course_of_study", in.CourseOfStudy, "name", in.Name, "matches", len(matches))
	}

	target := matches[0]
	if err := deps.Nodes.UpdateQuota(dbc, in.CourseOfStudy, target.URL, in.Rules); err != nil {
		return "", err
	}
	return target.URL, nil
}
