package model

import (
	"strings"
)

// QuestStatus 任务状态（表格中的原始字样）
type QuestStatus string

const (
	QuestUnclaimed  QuestStatus = "待接取"
	QuestInProgress QuestStatus = "進行中"
	QuestDone       QuestStatus = "已完成"
)

const (
	NoDeadline        = "無"
	NoReward          = "無"
	QuestTypeFallback = "其他"
)

// Quest 任务看板上的委托
type Quest struct {
	Index    int         `json:"index"` // 记录下标，表格行号 = Index + 2
	Row      int         `json:"row"`
	Name     string      `json:"name"`
	Content  string      `json:"content"`
	Type     string      `json:"type"`
	Status   QuestStatus `json:"status"`
	Deadline string      `json:"deadline"`
	Reward   string      `json:"reward"`
}

// Record 转为表格行
func (q Quest) Record() Record {
	return Record{
		ColName:     q.Name,
		ColContent:  q.Content,
		ColType:     q.Type,
		ColStatus:   string(q.Status),
		ColDeadline: q.Deadline,
		ColReward:   q.Reward,
	}
}

// QuestFromRecord 从表格行读取任务
func QuestFromRecord(index int, r Record) Quest {
	typ := r.Get(ColType)
	if typ == "" {
		typ = QuestTypeFallback
	}
	return Quest{
		Index:    index,
		Row:      RowNumber(index),
		Name:     r.Get(ColName),
		Content:  r.Get(ColContent),
		Type:     typ,
		Status:   QuestStatus(r.Get(ColStatus)),
		Deadline: r.Get(ColDeadline),
		Reward:   r.Get(ColReward),
	}
}

// AdventureStatus 冒险状态
type AdventureStatus string

const (
	AdventureActive AdventureStatus = "進行中"
	AdventureDone   AdventureStatus = "已完成"
	AdventurePaused AdventureStatus = "暫停"
)

// Valid 是否为已知状态
func (s AdventureStatus) Valid() bool {
	switch s {
	case AdventureActive, AdventureDone, AdventurePaused:
		return true
	}
	return false
}

// AdventureKind 冒险类型
type AdventureKind string

const (
	AdventureContinuous AdventureKind = "Continuous"
	AdventureInstance   AdventureKind = "Instance"
)

// ParseAdventureKind 只要包含 Continuous（不区分大小写）就视为持续型，其余一律为副本型
func ParseAdventureKind(s string) AdventureKind {
	if strings.Contains(strings.ToLower(s), "continuous") {
		return AdventureContinuous
	}
	return AdventureInstance
}

// minLinkLength 少于该长度的链接视为未填写
const minLinkLength = 6

// Adventure 冒险日志中的一个篇章
type Adventure struct {
	Index       int             `json:"index"`
	Row         int             `json:"row"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      AdventureStatus `json:"status"`
	StartDate   string          `json:"startDate"`
	Link        string          `json:"link"`
	Kind        AdventureKind   `json:"kind"`
}

// HasLink 是否已挂上外部链接
func (a Adventure) HasLink() bool {
	return len(strings.TrimSpace(a.Link)) >= minLinkLength
}

// Record 转为表格行
func (a Adventure) Record() Record {
	return Record{
		ColName:        a.Name,
		ColDescription: a.Description,
		ColStatus:      string(a.Status),
		ColStartDate:   a.StartDate,
		ColNotionLink:  a.Link,
		ColType:        string(a.Kind),
	}
}

// AdventureFromRecord 从表格行读取冒险
func AdventureFromRecord(index int, r Record) Adventure {
	status := AdventureStatus(r.Get(ColStatus))
	if status == "" {
		status = AdventureActive
	}
	return Adventure{
		Index:       index,
		Row:         RowNumber(index),
		Name:        r.Get(ColName),
		Description: r.Get(ColDescription),
		Status:      status,
		StartDate:   r.Get(ColStartDate),
		Link:        r.Get(ColNotionLink),
		Kind:        ParseAdventureKind(r.Get(ColType)),
	}
}
