package model

import (
	"strings"

	"github.com/shanesun1208/LifeAdventure/internal/parser"
)

// HeaderRows 表头占用的行数；数据从第 HeaderRows+1 行开始
const HeaderRows = 1

// Record 一行数据（列名 -> 单元格文本）
type Record map[string]string

// Get 读取列值（去除首尾空白）
func (r Record) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Clone 复制一行
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table 工作表快照（某一时刻读取的全部数据行）
// Records 保持表内顺序，下标从 0 开始，对应表格行号 = 下标 + 2
type Table struct {
	Name    string   `json:"name"`
	Header  []string `json:"header"`
	Records []Record `json:"records"`
}

// NewTable 由原始单元格矩阵构建快照，第一行视为表头
func NewTable(name string, values [][]string) *Table {
	t := &Table{Name: name}
	if len(values) == 0 {
		return t
	}

	t.Header = make([]string, 0, len(values[0]))
	for _, h := range values[0] {
		t.Header = append(t.Header, parser.NormalizeColumnName(h))
	}
	// 去掉表头尾部的空列
	for len(t.Header) > 0 && t.Header[len(t.Header)-1] == "" {
		t.Header = t.Header[:len(t.Header)-1]
	}

	rows := values[1:]
	// 去掉末尾的全空行；中间的空行保留，避免行号错位
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	t.Records = make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(t.Header))
		for i, col := range t.Header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// EmptyTable 空快照（工作表不存在时使用）
func EmptyTable(name string) *Table {
	return &Table{Name: name}
}

// Len 数据行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Empty 是否没有数据
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Has 表头是否包含某列
func (t *Table) Has(col string) bool {
	_, ok := t.Column(col)
	return ok
}

// Column 按列名返回列号（从 1 开始）
func (t *Table) Column(col string) (int, bool) {
	if t == nil {
		return 0, false
	}
	for i, h := range t.Header {
		if h == col {
			return i + 1, true
		}
	}
	return 0, false
}

// RowNumber 记录下标对应的表格行号
func RowNumber(index int) int {
	return index + HeaderRows + 1
}

// RecordIndex 表格行号对应的记录下标
func RecordIndex(row int) int {
	return row - HeaderRows - 1
}

// Append 返回追加一行后的新快照（不修改原快照）
func (t *Table) Append(rec Record) *Table {
	out := t.Clone()
	out.Records = append(out.Records, rec.Clone())
	return out
}

// Clone 深复制
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Name:    t.Name,
		Header:  append([]string(nil), t.Header...),
		Records: make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		out.Records[i] = r.Clone()
	}
	return out
}
