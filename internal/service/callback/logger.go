// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口，记录模型组件的执行事件
type Logger struct {
	log *zap.Logger
}

// NewLogger 创建日志回调处理器
func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log}
}

var _ callbacks.Handler = (*Logger)(nil)

func (l *Logger) fields(info *callbacks.RunInfo) []zap.Field {
	if info == nil {
		return nil
	}
	return []zap.Field{
		zap.String("name", info.Name),
		zap.String("type", info.Type),
		zap.String("component", string(info.Component)),
	}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	fields := l.fields(info)
	if in := model.ConvCallbackInput(input); in != nil {
		fields = append(fields, zap.Int("messages", len(in.Messages)))
	}
	l.log.Debug("eino start", fields...)
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	fields := l.fields(info)
	if out := model.ConvCallbackOutput(output); out != nil {
		if out.Message != nil {
			fields = append(fields, zap.Int("content_len", len(out.Message.Content)))
		}
		if out.TokenUsage != nil {
			fields = append(fields, zap.Int("total_tokens", out.TokenUsage.TotalTokens))
		}
	}
	l.log.Debug("eino end", fields...)
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.log.Warn("eino error", append(l.fields(info), zap.Error(err))...)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用，必须关闭 input
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	l.log.Debug("eino stream input", l.fields(info)...)
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
// 在后台读完副本后记录片段数并关闭
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	fields := l.fields(info)
	go func() {
		defer output.Close()

		chunks := 0
		for {
			_, err := output.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				l.log.Debug("eino stream output aborted", append(fields, zap.Int("chunks", chunks), zap.Error(err))...)
				return
			}
			chunks++
		}
		l.log.Debug("eino stream output", append(fields, zap.Int("chunks", chunks))...)
	}()
	return ctx
}
