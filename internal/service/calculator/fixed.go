package calculator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"

	"github.com/shanesun1208/LifeAdventure/internal/model"
	"github.com/shanesun1208/LifeAdventure/internal/parser"
)

// PostedSimilarity 名称相似度达到该值即视为已入账
const PostedSimilarity = 0.8

// FixedStatus 固定开销计划在某个月的状态
type FixedStatus struct {
	Index   int             `json:"index"`
	Row     int             `json:"row"`
	Plan    model.FixedCost `json:"plan"`
	Monthly decimal.Decimal `json:"monthly"`
	// Posted 本月流水中已有对应的固定开销记录
	Posted      bool       `json:"posted"`
	MatchedItem string     `json:"matchedItem,omitempty"`
	NextDue     *time.Time `json:"nextDue,omitempty"`
}

// FixedSummary 固定开销页汇总
type FixedSummary struct {
	Items       []FixedStatus   `json:"items"`
	MonthlyPlan decimal.Decimal `json:"monthlyPlan"`
	PostedCount int             `json:"postedCount"`
}

// FixedFromRecord 从表格行读取固定开销计划
func FixedFromRecord(r model.Record) model.FixedCost {
	return model.FixedCost{
		Item:        r.Get(model.ColItem),
		Type:        r.Get(model.ColType),
		Amount:      parser.ParseAmount(r.Get(model.ColAmount)),
		PaidBy:      r.Get(model.ColPaidBy),
		Cycle:       model.ParseCycle(r.Get(model.ColCycle)),
		CycleDetail: r.Get(model.ColCycleDetail),
	}
}

// FixedCostStatus 逐条判断固定开销是否已入账，并推算下一次扣款日
func FixedCostStatus(month string, now time.Time, fixed, expenses *model.Table) *FixedSummary {
	out := &FixedSummary{Items: []FixedStatus{}}
	if fixed == nil {
		return out
	}

	posted := postedItems(month, expenses)
	for i, r := range fixed.Records {
		plan := FixedFromRecord(r)
		if plan.Item == "" {
			continue
		}
		st := FixedStatus{
			Index:   i,
			Row:     model.RowNumber(i),
			Plan:    plan,
			Monthly: MonthlyEquivalent(plan.Amount, plan.Cycle),
		}
		if match, ok := matchPosted(plan.Item, posted); ok {
			st.Posted = true
			st.MatchedItem = match
			out.PostedCount++
		}
		if due, ok := NextDue(plan, now); ok {
			st.NextDue = &due
		}
		out.MonthlyPlan = out.MonthlyPlan.Add(st.Monthly)
		out.Items = append(out.Items, st)
	}
	return out
}

// postedItems 本月标记为固定开销的流水项目名
func postedItems(month string, expenses *model.Table) []string {
	if expenses == nil {
		return nil
	}
	var items []string
	for _, r := range expenses.Records {
		if r.Get(model.ColType1) != model.CategoryFixed {
			continue
		}
		if !parser.InMonth(r.Get(model.ColDate), month) {
			continue
		}
		items = append(items, r.Get(model.ColItem))
	}
	return items
}

// matchPosted 先精确匹配，再按编辑距离归一化后的相似度匹配
func matchPosted(item string, posted []string) (string, bool) {
	for _, p := range posted {
		if p == item {
			return p, true
		}
	}
	target := normalizeItem(item)
	best, bestScore := "", 0.0
	for _, p := range posted {
		score := Similarity(target, normalizeItem(p))
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	if bestScore >= PostedSimilarity {
		return best, true
	}
	return "", false
}

func normalizeItem(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Similarity 1 - 编辑距离 / 较长字符串长度（按字符计）
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

var digitsRe = regexp.MustCompile(`\d+`)

// parseAnchor 从周期说明里取出扣款月、日
// "15" -> 每月 15 日；"3/15"、"03-15"、"3月15日" -> 3 月 15 日
func parseAnchor(detail string) (month, day int) {
	nums := digitsRe.FindAllString(detail, 2)
	month, day = 1, 1
	switch len(nums) {
	case 1:
		day, _ = strconv.Atoi(nums[0])
	case 2:
		month, _ = strconv.Atoi(nums[0])
		day, _ = strconv.Atoi(nums[1])
	}
	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}
	return month, day
}

// NextDue 下一次扣款日（含当天）
// 按月底展开周期，再把扣款日夹到当月天数内：30 日在一月是 1/30，在二月是月底
func NextDue(plan model.FixedCost, now time.Time) (time.Time, bool) {
	month, day := parseAnchor(plan.CycleDetail)
	loc := now.Location()

	start := time.Date(now.Year()-1, time.Month(month), 1, 0, 0, 0, 0, loc)
	if plan.Cycle == model.CycleMonthly || plan.Cycle == "" {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:       rrule.MONTHLY,
		Interval:   plan.Cycle.Months(),
		Dtstart:    start,
		Bymonthday: []int{-1},
	})
	if err != nil {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	for end := rule.After(today, true); !end.IsZero(); end = rule.After(end, false) {
		d := day
		if end.Day() < d {
			d = end.Day()
		}
		due := time.Date(end.Year(), end.Month(), d, 0, 0, 0, 0, loc)
		if !due.Before(today) {
			return due, true
		}
	}
	return time.Time{}, false
}
