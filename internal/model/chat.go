package model

import "time"

// TimestampLayout 聊天记录时间戳格式
const TimestampLayout = "2006-01-02 15:04:05"

// ChatRole 对话角色
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ParseChatRole 旧数据中的 model 视为 assistant
func ParseChatRole(s string) ChatRole {
	if s == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

// ChatMessage 一条聊天记录（只追加）
type ChatMessage struct {
	Timestamp string   `json:"timestamp"`
	Role      ChatRole `json:"role"`
	Message   string   `json:"message"`
}

// NewChatMessage 以当前时间创建聊天记录
func NewChatMessage(now time.Time, role ChatRole, msg string) ChatMessage {
	return ChatMessage{
		Timestamp: now.Format(TimestampLayout),
		Role:      role,
		Message:   msg,
	}
}

// Record 转为表格行
func (m ChatMessage) Record() Record {
	return Record{
		ColTimestamp: m.Timestamp,
		ColRole:      string(m.Role),
		ColMessage:   m.Message,
	}
}

// ChatMessageFromRecord 从表格行读取聊天记录
func ChatMessageFromRecord(r Record) ChatMessage {
	return ChatMessage{
		Timestamp: r.Get(ColTimestamp),
		Role:      ParseChatRole(r.Get(ColRole)),
		Message:   r.Get(ColMessage),
	}
}
