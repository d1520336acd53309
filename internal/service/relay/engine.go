// Package relay 将一次对话补全以事件流的形式转发给客户端
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/markdown"
)

var (
	// ErrClientGone 客户端在回合结束前断开
	ErrClientGone = errors.New("client disconnected")
	// ErrTitleGeneration 标题生成失败，不影响回合结果
	ErrTitleGeneration = errors.New("title generation failed")
	// ErrTurnUsed 回合只能运行一次
	ErrTurnUsed = errors.New("turn already started")
)

const (
	abortMarker = "..."
	titlePrompt = "Summarize the following conversation in 5 words or less:\n\n%s\n\n%s"
)

// Emitter 事件输出
type Emitter interface {
	// Open 写出响应头并立即刷新
	Open() error
	// Emit 写出一个事件并刷新
	Emit(event string, data any) error
}

// Store 回合所需的持久化操作
type Store interface {
	GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error)
	WorkflowForChat(ctx context.Context, chatID string) (*model.Workflow, error)
	AppendMessage(ctx context.Context, msg *model.Message) error
	UpdateTitle(ctx context.Context, chatID, title string) error
}

// Completer 模型调用
type Completer interface {
	StreamComplete(ctx context.Context, ep llm.Endpoint, history []*schema.Message) (<-chan llm.Chunk, error)
	Complete(ctx context.Context, ep llm.Endpoint, history []*schema.Message, maxTokens int) (string, error)
}

// Options 引擎配置
type Options struct {
	TitleMaxTokens int
	PersistTimeout time.Duration
}

// Engine 流式转发引擎
type Engine struct {
	store     Store
	completer Completer
	opts      Options
	log       *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine 创建转发引擎
func NewEngine(store Store, completer Completer, opts Options, log *zap.Logger) *Engine {
	if opts.TitleMaxTokens <= 0 {
		opts.TitleMaxTokens = 10
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:     store,
		completer: completer,
		opts:      opts,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Prepare 校验对话归属并推导工作流，失败时尚未写出任何数据
func (e *Engine) Prepare(ctx context.Context, userID, chatID string) (*Turn, error) {
	chat, err := e.store.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	workflow, err := e.store.WorkflowForChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &Turn{
		engine:   e,
		chat:     chat,
		workflow: workflow,
		log:      e.log.With(zap.String("chat_id", chat.ID), zap.String("workflow_id", workflow.ID)),
	}, nil
}

// Turn 一次流式回合
type Turn struct {
	engine   *Engine
	chat     *model.Chat
	workflow *model.Workflow
	log      *zap.Logger

	state   State
	content strings.Builder

	messageID string
	title     string
}

// State 当前状态
func (t *Turn) State() State { return t.state }

// MessageID 已保存的助手消息 ID
func (t *Turn) MessageID() string { return t.messageID }

// Title 本回合生成的标题，未生成时为空
func (t *Turn) Title() string { return t.title }

// Run 执行回合直到完成或中断
// 中断时返回原因，ErrClientGone 表示客户端断开
func (t *Turn) Run(ctx context.Context, em Emitter) error {
	if t.state != StateIdle {
		return ErrTurnUsed
	}

	if err := em.Open(); err != nil {
		t.state = StateAborted
		return fmt.Errorf("%w: %w", ErrClientGone, err)
	}

	t.state = StateRequestingCompletion
	upstreamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ep := llm.EndpointFromWorkflow(t.workflow)
	chunks, err := t.engine.completer.StreamComplete(upstreamCtx, ep, llm.ToSchemaMessages(t.chat.Messages))
	if err != nil {
		return t.abort(ctx, err)
	}

	t.state = StateStreaming
	for {
		select {
		case <-ctx.Done():
			cancel()
			return t.abort(ctx, fmt.Errorf("%w: %w", ErrClientGone, ctx.Err()))

		case chunk, ok := <-chunks:
			if !ok {
				return t.finalize(ctx, em)
			}
			if ctx.Err() != nil {
				cancel()
				return t.abort(ctx, fmt.Errorf("%w: %w", ErrClientGone, ctx.Err()))
			}
			if chunk.Err != nil {
				return t.abort(ctx, chunk.Err)
			}

			t.content.WriteString(chunk.Content)
			payload := AppendPayload{Content: markdown.Repair(t.content.String())}
			if err := em.Emit(EventAppend, payload); err != nil {
				cancel()
				return t.abort(ctx, fmt.Errorf("%w: %w", ErrClientGone, err))
			}
		}
	}
}

// abort 保存修复后的部分内容并追加中断标记，不再发送任何事件
func (t *Turn) abort(ctx context.Context, cause error) error {
	t.state = StateAborted

	msg := t.newMessage(markdown.Repair(t.content.String()) + abortMarker)
	if err := t.persist(ctx, msg); err != nil {
		t.log.Error("failed to save interrupted message", zap.Error(err), zap.NamedError("cause", cause))
		return cause
	}
	t.messageID = msg.ID
	t.log.Info("turn aborted", zap.String("message_id", msg.ID), zap.Int("content_len", t.content.Len()), zap.Error(cause))
	return cause
}

func (t *Turn) finalize(ctx context.Context, em Emitter) error {
	t.state = StateFinalizing

	raw := t.content.String()
	msg := t.newMessage(raw)
	if err := t.persist(ctx, msg); err != nil {
		t.state = StateAborted
		return fmt.Errorf("failed to save message: %w", err)
	}
	t.messageID = msg.ID

	if len(t.chat.Messages) == 1 {
		title, err := t.generateTitle(ctx, raw)
		if err != nil {
			t.log.Warn("title generation skipped", zap.Error(err))
		} else {
			t.title = title
		}
	}

	t.state = StateCompleted

	if t.title != "" {
		if err := em.Emit(EventTitle, t.title); err != nil {
			return t.lateWriteFailure(err)
		}
	}
	if err := em.Emit(EventID, msg.ID); err != nil {
		return t.lateWriteFailure(err)
	}
	if err := em.Emit(EventEnd, ""); err != nil {
		return t.lateWriteFailure(err)
	}
	return nil
}

// lateWriteFailure 消息已保存后客户端断开
func (t *Turn) lateWriteFailure(err error) error {
	t.log.Info("client gone after completion", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrClientGone, err)
}

func (t *Turn) generateTitle(ctx context.Context, reply string) (string, error) {
	var history []*schema.Message
	if t.workflow.SystemPrompt != "" {
		history = append(history, schema.SystemMessage(t.workflow.SystemPrompt))
	}
	history = append(history, schema.UserMessage(fmt.Sprintf(titlePrompt, t.chat.Messages[0].Content, reply)))

	ep := llm.EndpointFromWorkflow(t.workflow)
	title, err := t.engine.completer.Complete(ctx, ep, history, t.engine.opts.TitleMaxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTitleGeneration, err)
	}
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: blank title", ErrTitleGeneration)
	}

	persistCtx, cancel := t.engine.persistContext(ctx)
	defer cancel()
	if err := t.engine.store.UpdateTitle(persistCtx, t.chat.ID, title); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTitleGeneration, err)
	}
	return title, nil
}

func (t *Turn) newMessage(content string) *model.Message {
	return &model.Message{
		ID:         t.engine.newID(),
		ChatID:     t.chat.ID,
		Role:       model.RoleAssistant,
		Content:    content,
		WorkflowID: t.workflow.ID,
		DatePosted: t.engine.now(),
	}
}

func (t *Turn) persist(ctx context.Context, msg *model.Message) error {
	persistCtx, cancel := t.engine.persistContext(ctx)
	defer cancel()
	return t.engine.store.AppendMessage(persistCtx, msg)
}

// persistContext 脱离请求取消，写库不受客户端断开影响
func (e *Engine) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.opts.PersistTimeout)
}
