// Package audience turns a target-audience specification into recipients.
package audience

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
)

// Resolve filters all by spec. The result has no duplicate ids and is never
// empty: an empty match is reported as *appErrors.EmptyTargetError.
func Resolve(spec model.TargetAudience, all []model.Member) ([]model.Member, error) {
	if err := spec.Validate(); err != nil {
		return nil, appErrors.NewValidation("audience", err.Error())
	}

	var matched []model.Member
	switch spec.Kind {
	case model.AudienceAll:
		matched = all
	case model.AudienceBatch:
		if len(spec.IDs) > 0 {
			matched = byIDs(all, spec.IDs)
			break
		}
		matched = lo.Filter(all, func(m model.Member, _ int) bool {
			if spec.BatchValue == model.NoBatch {
				return strings.TrimSpace(m.Batch) == ""
			}
			return m.Batch == spec.BatchValue
		})
	case model.AudienceMembershipPattern:
		prefix := spec.Prefix + "-"
		matched = lo.Filter(all, func(m model.Member, _ int) bool {
			return strings.HasPrefix(m.MembershipCode, prefix)
		})
	case model.AudienceExplicit:
		matched = byIDs(all, spec.IDs)
	}

	matched = lo.UniqBy(matched, func(m model.Member) int { return m.ID })
	if len(matched) == 0 {
		return nil, &appErrors.EmptyTargetError{Audience: Describe(spec)}
	}
	return matched, nil
}

func byIDs(all []model.Member, ids []int) []model.Member {
	want := lo.SliceToMap(ids, func(id int) (int, struct{}) { return id, struct{}{} })
	return lo.Filter(all, func(m model.Member, _ int) bool {
		_, ok := want[m.ID]
		return ok
	})
}

// Describe renders spec for logs and error messages.
func Describe(spec model.TargetAudience) string {
	switch spec.Kind {
	case model.AudienceAll:
		return "all members"
	case model.AudienceBatch:
		if len(spec.IDs) > 0 {
			return fmt.Sprintf("batch %q (%d selected)", spec.BatchValue, len(spec.IDs))
		}
		if spec.BatchValue == model.NoBatch {
			return "members without a batch"
		}
		return fmt.Sprintf("batch %q", spec.BatchValue)
	case model.AudienceMembershipPattern:
		return fmt.Sprintf("membership %s-*", spec.Prefix)
	case model.AudienceExplicit:
		return fmt.Sprintf("%d selected members", len(spec.IDs))
	}
	return string(spec.Kind)
}
