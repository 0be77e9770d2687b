// Package llm 文本生成能力：OpenAI 兼容接口 + 失败兜底
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// 默认走 Gemini 的 OpenAI 兼容端点
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 30 * time.Second
)

var ErrNoAPIKey = errors.New("llm: api key not configured")

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 一条对话消息
type Message struct {
	Role    Role
	Content string
}

// Generator 文本生成
type Generator interface {
	Generate(ctx context.Context, msgs []Message) (string, error)
}

// Options OpenAI 兼容客户端参数
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI 基于 openai-go 的 Chat Completions 实现
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI 创建客户端；没有 API key 时返回 ErrNoAPIKey
func NewOpenAI(opts Options) (*OpenAI, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrNoAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(opts.BaseURL),
		option.WithMaxRetries(1),
	)
	return &OpenAI{client: client, model: opts.Model, timeout: opts.Timeout}, nil
}

// Generate 发送整段对话，返回第一条回复
func (p *OpenAI) Generate(ctx context.Context, msgs []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)),
	}
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Safe 任何失败都返回固定文案，调用方无需处理错误
type Safe struct {
	Gen      Generator
	Fallback string
}

// Generate 实现 Generator，error 恒为 nil
func (s Safe) Generate(ctx context.Context, msgs []Message) (string, error) {
	if s.Gen == nil {
		return s.Fallback, nil
	}
	out, err := s.Gen.Generate(ctx, msgs)
	if err != nil {
		log.Printf("[llm] generate failed: %v", err)
		return s.Fallback, nil
	}
	if out == "" {
		return s.Fallback, nil
	}
	return out, nil
}
