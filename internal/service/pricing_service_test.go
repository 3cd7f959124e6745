package service

import (
	"testing"
	"time"

	"credit_engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planner = domain.ToolCostRule{
	ToolID:                     "planner",
	Slug:                       "trip-planner",
	BaseCostInCredits:          4,
	IsPlanningTool:             true,
	PlanningMonthlyLimit:       3,
	PlanningProOverflowCost:    2,
	PlanningFullExperienceCost: 9,
}

func TestQuoteStandardTool(t *testing.T) {
	f := newFixture(t)
	f.tool(domain.ToolCostRule{ToolID: "summarize", Slug: "summarizer", BaseCostInCredits: 3})

	q, err := f.eng.Pricing.Quote(f.ctx, 1, "summarizer", "")
	require.NoError(t, err)
	assert.Equal(t, "summarize", q.ToolID)
	assert.Equal(t, int64(3), q.CostInCredits)
	assert.Equal(t, domain.AccessStandard, q.AccessType)
	assert.Nil(t, q.UsageInfo)
	assert.Nil(t, q.ComparableFreeCost)
}

func TestQuoteUnknownOrInactiveTool(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.UpsertToolRule(f.ctx, &domain.ToolCostRule{ToolID: "old", BaseCostInCredits: 1}))

	_, err := f.eng.Pricing.Quote(f.ctx, 1, "missing", "")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)

	_, err = f.eng.Pricing.Quote(f.ctx, 1, "old", "")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestQuoteProOnly(t *testing.T) {
	f := newFixture(t)
	f.tool(domain.ToolCostRule{ToolID: "agent", BaseCostInCredits: 6, IsProOnly: true})

	_, err := f.eng.Pricing.Quote(f.ctx, 1, "agent", "")
	assert.ErrorIs(t, err, domain.ErrProRequired)

	f.makePro(1, 30)
	q, err := f.eng.Pricing.Quote(f.ctx, 1, "agent", "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), q.CostInCredits)
}

func TestQuoteExperienceLevel(t *testing.T) {
	f := newFixture(t)
	f.tool(planner)

	tests := []struct {
		level  string
		cost   int64
		access domain.AccessType
	}{
		{"", 4, domain.AccessFreeExperimental},
		{"experimental", 4, domain.AccessFreeExperimental},
		{"full", 9, domain.AccessFreeFull},
	}
	for _, tt := range tests {
		q, err := f.eng.Pricing.Quote(f.ctx, 1, "planner", tt.level)
		require.NoError(t, err, tt.level)
		assert.Equal(t, tt.cost, q.CostInCredits, tt.level)
		assert.Equal(t, tt.access, q.AccessType, tt.level)
	}

	_, err := f.eng.Pricing.Quote(f.ctx, 1, "planner", "deluxe")
	assert.ErrorIs(t, err, domain.ErrInvalidExperienceLevel)
}

func TestQuoteProOverflow(t *testing.T) {
	f := newFixture(t)
	f.tool(planner)
	f.makePro(1, 30)
	f.fund(1, 0, 100)

	for i := 0; i < 3; i++ {
		q, err := f.eng.Pricing.Quote(f.ctx, 1, "planner", "full")
		require.NoError(t, err)
		assert.Equal(t, int64(0), q.CostInCredits)
		assert.Equal(t, domain.AccessProIncluded, q.AccessType)
		require.NotNil(t, q.UsageInfo)
		assert.Equal(t, i, q.UsageInfo.Used)
		assert.Equal(t, 3-i, q.UsageInfo.Remaining)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), q.UsageInfo.ResetDate)
		require.NotNil(t, q.ComparableFreeCost)
		assert.Equal(t, int64(9), *q.ComparableFreeCost)

		_, err = f.eng.Charge.ChargeAndRecordUsage(f.ctx, 1, "planner", "full")
		require.NoError(t, err)
	}

	q, err := f.eng.Pricing.Quote(f.ctx, 1, "planner", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.CostInCredits)
	assert.Equal(t, domain.AccessProOverflow, q.AccessType)
	require.NotNil(t, q.ComparableFreeCost)
	assert.Equal(t, int64(4), *q.ComparableFreeCost)

	// a non-Pro user is priced the same regardless of usage
	for i := 0; i < 5; i++ {
		q, err := f.eng.Pricing.Quote(f.ctx, 2, "planner", "")
		require.NoError(t, err)
		assert.Equal(t, int64(4), q.CostInCredits)
		assert.Equal(t, domain.AccessFreeExperimental, q.AccessType)
	}
}

func TestQuoteDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	f.tool(planner)
	f.makePro(1, 30)

	for i := 0; i < 5; i++ {
		_, err := f.eng.Pricing.Quote(f.ctx, 1, "planner", "")
		require.NoError(t, err)
	}

	used, err := f.store.GetMonthlyUsage(f.ctx, 1, "planner", domain.UsagePeriod(f.now))
	require.NoError(t, err)
	assert.Zero(t, used)

	_, err = f.store.GetWallet(f.ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteUsageResetsNextMonth(t *testing.T) {
	f := newFixture(t)
	f.tool(planner)
	f.makePro(1, 90)

	for i := 0; i < 3; i++ {
		_, err := f.eng.Charge.ChargeAndRecordUsage(f.ctx, 1, "planner", "")
		require.NoError(t, err)
	}

	f.now = f.now.AddDate(0, 1, 0)
	q, err := f.eng.Pricing.Quote(f.ctx, 1, "planner", "")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessProIncluded, q.AccessType)
	assert.Equal(t, 0, q.UsageInfo.Used)
}
