package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// 表格里手工录入的日期可能出现的写法
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006.01.02",
	"20060102",
}

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	numericRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// ParseAmount 解析金额；非数字一律视为 0（手工改表出错时不影响整体统计）
// 支持 "1,200" / "$1200" / "NT$ 1,200.5" 等写法
func ParseAmount(s string) decimal.Decimal {
	d, ok := ParseAmountStrict(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict 解析金额并返回是否成功
func ParseAmountStrict(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "NT$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = spaceRe.ReplaceAllString(s, "")
	if s == "" || !numericRe.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDate 解析日期，失败返回 false
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// NormalizeDate 能解析的日期统一成 YYYY-MM-DD，否则原样返回（去空白）
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(dateLayout)
	}
	return strings.TrimSpace(s)
}

// ParseMonth 解析 "2025-06" 形式的月份
func ParseMonth(s string) (time.Time, bool) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MonthKey 日期所在月份 "2006-01"
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}

// InMonth 日期文本是否落在目标月份；无法解析的日期返回 false
func InMonth(date, month string) bool {
	t, ok := ParseDate(date)
	if !ok {
		return false
	}
	return MonthKey(t) == strings.TrimSpace(month)
}

// SplitList 逗号分隔的选项列表，去空白、去空项
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList 与 SplitList 相反
func JoinList(items []string) string {
	return strings.Join(items, ",")
}

// NormalizeColumnName 规范化列名，去除空格和特殊字符
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	return spaceRe.ReplaceAllString(name, "")
}
