package model

// 工作表名称
const (
	SheetFinance       = "Finance"
	SheetFixedExpenses = "FixedExpenses"
	SheetIncome        = "Income"
	SheetBudget        = "Budget"
	SheetReserveFund   = "ReserveFund"
	SheetQuestBoard    = "QuestBoard"
	SheetAdventures    = "Adventures"
	SheetSetting       = "Setting"
	SheetChatHistory   = "ChatHistory"

	// SheetLegacyAdventures 旧版冒险日志所在的默认工作表
	SheetLegacyAdventures = "Sheet1"
)

// 列名
const (
	ColDate        = "Date"
	ColWeek        = "Week"
	ColItem        = "Item"
	ColPrice       = "Price"
	ColType1       = "Type1"
	ColType2       = "Type2"
	ColAmount      = "Amount"
	ColType        = "Type"
	ColNote        = "Note"
	ColPaidBy      = "PaidBy"
	ColCycle       = "Cycle"
	ColCycleDetail = "CycleDetail"
	ColBudget      = "Budget"
	ColName        = "Name"
	ColContent     = "Content"
	ColStatus      = "Status"
	ColDeadline    = "Deadline"
	ColReward      = "Reward"
	ColDescription = "Description"
	ColStartDate   = "StartDate"
	ColNotionLink  = "NotionLink"
	ColValue       = "Value"
	ColTimestamp   = "Timestamp"
	ColRole        = "Role"
	ColMessage     = "Message"
)

// Schema 工作表结构：名称 + 表头顺序
// 写入时统一按表头顺序序列化，单列更新时按实际表头解析列号
type Schema struct {
	Sheet  string
	Header []string
}

var (
	FinanceSchema     = Schema{SheetFinance, []string{ColDate, ColWeek, ColItem, ColPrice, ColType1, ColType2}}
	IncomeSchema      = Schema{SheetIncome, []string{ColDate, ColItem, ColAmount, ColType, ColNote}}
	FixedSchema       = Schema{SheetFixedExpenses, []string{ColItem, ColType, ColAmount, ColPaidBy, ColCycle, ColCycleDetail}}
	BudgetSchema      = Schema{SheetBudget, []string{ColItem, ColBudget}}
	ReserveSchema     = Schema{SheetReserveFund, []string{ColDate, ColType, ColAmount, ColNote}}
	QuestSchema       = Schema{SheetQuestBoard, []string{ColName, ColContent, ColType, ColStatus, ColDeadline, ColReward}}
	AdventureSchema   = Schema{SheetAdventures, []string{ColName, ColDescription, ColStatus, ColStartDate, ColNotionLink, ColType}}
	SettingSchema     = Schema{SheetSetting, []string{ColItem, ColValue}}
	ChatHistorySchema = Schema{SheetChatHistory, []string{ColTimestamp, ColRole, ColMessage}}
)

// Schemas 全部工作表结构（用于初始化本地工作簿）
func Schemas() []Schema {
	return []Schema{
		FinanceSchema,
		FixedSchema,
		IncomeSchema,
		BudgetSchema,
		ReserveSchema,
		QuestSchema,
		AdventureSchema,
		SettingSchema,
		ChatHistorySchema,
	}
}

// SchemaFor 按工作表名称查找结构
func SchemaFor(sheet string) (Schema, bool) {
	for _, s := range Schemas() {
		if s.Sheet == sheet {
			return s, true
		}
	}
	return Schema{}, false
}

// FinanceSheets 商会页面一次性读取的工作表
var FinanceSheets = []string{
	SheetFinance,
	SheetFixedExpenses,
	SheetIncome,
	SheetBudget,
	SheetReserveFund,
	SheetQuestBoard,
}

// Column 表头中列的位置（从 1 开始）
func (s Schema) Column(col string) (int, bool) {
	for i, h := range s.Header {
		if h == col {
			return i + 1, true
		}
	}
	return 0, false
}

// Values 按表头顺序序列化一行
func (s Schema) Values(rec Record) []any {
	out := make([]any, len(s.Header))
	for i, h := range s.Header {
		out[i] = rec[h]
	}
	return out
}

// ColumnIn 优先使用实际表头的列号，表头缺失时退回结构定义的位置
func (s Schema) ColumnIn(t *Table, col string) (int, bool) {
	if t != nil && len(t.Header) > 0 {
		return t.Column(col)
	}
	return s.Column(col)
}

// ValuesFor 按实际表头顺序序列化；表头为空时按结构定义顺序
func (s Schema) ValuesFor(t *Table, rec Record) []any {
	if t == nil || len(t.Header) == 0 {
		return s.Values(rec)
	}
	out := make([]any, len(t.Header))
	for i, h := range t.Header {
		out[i] = rec[h]
	}
	return out
}
