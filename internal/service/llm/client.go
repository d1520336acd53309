// Package llm 封装 OpenAI 兼容的对话补全接口
// 每次调用按 Endpoint 新建模型实例，调用之间不共享可变配置
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/model"
)

// ErrUpstream 模型服务调用失败
var ErrUpstream = errors.New("upstream model error")

// Endpoint 单次调用的模型地址与凭证
// BaseURL 为空时使用 OpenAI 默认地址
type Endpoint struct {
	BaseURL string
	APIKey  string
	Model   string
}

// EndpointFromWorkflow 从工作流构造 Endpoint
func EndpointFromWorkflow(w *model.Workflow) Endpoint {
	return Endpoint{BaseURL: w.URL, APIKey: w.APIKey, Model: w.Model}
}

// Chunk 流式输出片段，Err 非空时为最后一个片段
type Chunk struct {
	Content string
	Err     error
}

// ModelFactory 按 Endpoint 创建模型
type ModelFactory func(ctx context.Context, ep Endpoint) (einomodel.BaseChatModel, error)

// Client 模型客户端
type Client struct {
	newModel ModelFactory
	handler  callbacks.Handler
	log      *zap.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithModelFactory 替换模型创建方式
func WithModelFactory(f ModelFactory) Option {
	return func(c *Client) { c.newModel = f }
}

// WithCallbackHandler 为每次调用挂载 eino 回调
func WithCallbackHandler(h callbacks.Handler) Option {
	return func(c *Client) { c.handler = h }
}

// NewClient 创建模型客户端
func NewClient(log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{newModel: newOpenAIModel, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newOpenAIModel(ctx context.Context, ep Endpoint) (einomodel.BaseChatModel, error) {
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  ep.APIKey,
		BaseURL: ep.BaseURL,
		Model:   ep.Model,
	})
}

// StreamComplete 流式补全
// ctx 取消后停止读取并关闭上游流；中途出错时以 Chunk{Err} 结束
func (c *Client) StreamComplete(ctx context.Context, ep Endpoint, history []*schema.Message) (<-chan Chunk, error) {
	cm, err := c.newModel(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	ctx = c.withCallbacks(ctx, ep, "stream")
	reader, err := cm.Stream(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer reader.Close()

		for {
			msg, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn("upstream stream failed", zap.String("model", ep.Model), zap.Error(err))
				select {
				case out <- Chunk{Err: fmt.Errorf("%w: %w", ErrUpstream, err)}:
				case <-ctx.Done():
				}
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}

			select {
			case out <- Chunk{Content: msg.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Complete 非流式补全，maxTokens 限制输出长度
func (c *Client) Complete(ctx context.Context, ep Endpoint, history []*schema.Message, maxTokens int) (string, error) {
	cm, err := c.newModel(ctx, ep)
	if err != nil {
		return "", fmt.Errorf("failed to create chat model: %w", err)
	}

	var opts []einomodel.Option
	if maxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(maxTokens))
	}

	msg, err := cm.Generate(c.withCallbacks(ctx, ep, "complete"), history, opts...)
	if err != nil {
		c.log.Warn("upstream completion failed", zap.String("model", ep.Model), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return msg.Content, nil
}

func (c *Client) withCallbacks(ctx context.Context, ep Endpoint, name string) context.Context {
	if c.handler == nil {
		return ctx
	}
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      name + ":" + ep.Model,
		Type:      "OpenAI",
		Component: components.ComponentOfChatModel,
	}, c.handler)
}

// ToSchemaMessages 将对话历史转换为 eino 消息
func ToSchemaMessages(messages []model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, &schema.Message{Role: roleToSchema(m.Role), Content: m.Content})
	}
	return out
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case model.RoleSystem:
		return schema.System
	case model.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}
