package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shanesun1208/LifeAdventure/internal/model"
)

func TestFixedCostStatus_PostedMatching(t *testing.T) {
	fixed := table(model.FixedSchema,
		[]string{"房租", "房租", "12000", "現金", "monthly", "5"},
		[]string{"Netflix 訂閱", "訂閱", "390", "信用卡", "monthly", "15"},
		[]string{"健身房", "其他", "1500", "信用卡", "monthly", "20"},
		[]string{"保險", "保險", "24000", "信用卡", "annual", "3/15"},
	)
	expenses := table(model.FinanceSchema,
		[]string{"2025-06-05", "23", "房租", "12000", "固定開銷", "房租"},
		[]string{"2025-06-15", "24", "netflix訂閱", "390", "固定開銷", "訂閱"},
		// 分类不是固定开销，不算入账
		[]string{"2025-06-20", "25", "健身房", "1500", "娛樂", ""},
		// 上个月的不算
		[]string{"2025-05-15", "20", "保險", "24000", "固定開銷", "保險"},
	)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	sum := FixedCostStatus(month, now, fixed, expenses)
	require.Len(t, sum.Items, 4)
	require.Equal(t, 2, sum.PostedCount)

	require.True(t, sum.Items[0].Posted)
	require.Equal(t, "房租", sum.Items[0].MatchedItem)
	require.True(t, sum.Items[1].Posted)
	require.Equal(t, "netflix訂閱", sum.Items[1].MatchedItem)
	require.False(t, sum.Items[2].Posted)
	require.False(t, sum.Items[3].Posted)

	require.Equal(t, 3, sum.Items[1].Row)
	requireDec(t, "15890", sum.MonthlyPlan)
}

func TestNextDue(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		plan model.FixedCost
		want string
	}{
		{model.FixedCost{Cycle: model.CycleMonthly, CycleDetail: "15"}, "2025-06-15"},
		{model.FixedCost{Cycle: model.CycleMonthly, CycleDetail: "5"}, "2025-07-05"},
		{model.FixedCost{Cycle: model.CycleMonthly, CycleDetail: "10"}, "2025-06-10"},
		{model.FixedCost{Cycle: model.CycleMonthly, CycleDetail: "31"}, "2025-06-30"},
		{model.FixedCost{Cycle: model.CycleAnnual, CycleDetail: "3/15"}, "2026-03-15"},
		{model.FixedCost{Cycle: model.CycleAnnual, CycleDetail: "12月1日"}, "2025-12-01"},
		{model.FixedCost{Cycle: model.CycleSemiannual, CycleDetail: "1/20"}, "2025-07-20"},
	}
	for _, tc := range cases {
		got, ok := NextDue(tc.plan, now)
		require.True(t, ok)
		require.Equal(t, tc.want, got.Format("2006-01-02"), "%+v", tc.plan)
	}
}

func TestNextDue_LateDayClampsOnlyInShortMonths(t *testing.T) {
	plan := model.FixedCost{Cycle: model.CycleMonthly, CycleDetail: "30"}
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC), "2025-01-30"},
		{time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC), "2025-02-28"},
		{time.Date(2025, 2, 5, 9, 0, 0, 0, time.UTC), "2025-02-28"},
		{time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), "2025-03-30"},
	}
	for _, tc := range cases {
		got, ok := NextDue(plan, tc.now)
		require.True(t, ok)
		require.Equal(t, tc.want, got.Format("2006-01-02"), "now=%s", tc.now.Format("2006-01-02"))
	}

	got, ok := NextDue(model.FixedCost{Cycle: model.CycleMonthly, CycleDetail: "29"}, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Equal(t, "2024-02-29", got.Format("2006-01-02"))
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("房租", "房租"))
	require.Equal(t, 0.0, Similarity("", ""))
	require.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
}
