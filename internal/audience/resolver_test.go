package audience

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
)

func members() []model.Member {
	return []model.Member{
		{ID: 1, Name: "Rahim", MembershipCode: "GM-0012", Batch: "2019"},
		{ID: 2, Name: "Karim", MembershipCode: "GM2", Batch: "2020"},
		{ID: 3, Name: "Salma", MembershipCode: "LM-0003", Batch: ""},
		{ID: 4, Name: "Nadia", MembershipCode: "GM-0100", Batch: "2019"},
		{ID: 1, Name: "Rahim (dup)", MembershipCode: "GM-0012", Batch: "2019"},
		{ID: 5, Name: "Tariq", MembershipCode: "AM-0001", Batch: "batch-a"},
	}
}

func ids(ms []model.Member) []int {
	return lo.Map(ms, func(m model.Member, _ int) int { return m.ID })
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		spec model.TargetAudience
		want []int
	}{
		{"all", model.AllMembers(), []int{1, 2, 3, 4, 5}},
		{"batch exact", model.Batch("2019"), []int{1, 4}},
		{"batch is case sensitive", model.Batch("Batch-A"), nil},
		{"batch none sentinel", model.Batch(model.NoBatch), []int{3}},
		{"batch with explicit ids", model.Batch("2019", 2, 5), []int{2, 5}},
		{"membership prefix", model.MembershipPattern("GM"), []int{1, 4}},
		{"explicit", model.ExplicitSelection(5, 3, 3), []int{3, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.spec, members())
			if tt.want == nil {
				var empty *appErrors.EmptyTargetError
				require.ErrorAs(t, err, &empty)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(got))
		})
	}
}

func TestResolveNeverReturnsDuplicates(t *testing.T) {
	specs := []model.TargetAudience{
		model.AllMembers(),
		model.Batch("2019"),
		model.MembershipPattern("GM"),
		model.ExplicitSelection(1, 1, 4),
	}
	for _, spec := range specs {
		got, err := Resolve(spec, members())
		require.NoError(t, err)
		assert.Len(t, lo.Uniq(ids(got)), len(got), Describe(spec))
	}
}

func TestResolveRejectsMixedVariant(t *testing.T) {
	_, err := Resolve(model.TargetAudience{Kind: model.AudienceAll, Prefix: "GM"}, members())
	var ve *appErrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolveEmptyInput(t *testing.T) {
	_, err := Resolve(model.AllMembers(), nil)
	var empty *appErrors.EmptyTargetError
	require.ErrorAs(t, err, &empty)
	assert.Contains(t, err.Error(), "all members")
}
