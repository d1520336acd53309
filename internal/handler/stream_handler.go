package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/relay"
)

// StreamHandler 流式回复处理器
type StreamHandler struct {
	svc *service.Services
	log *zap.Logger
}

// NewStreamHandler 创建流式回复处理器
func NewStreamHandler(svc *service.Services, log *zap.Logger) *StreamHandler {
	return &StreamHandler{svc: svc, log: log}
}

// Stream 以事件流转发助手回复
// GET /api/stream/:id
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")

	turn, err := h.svc.Relay.Prepare(ctx, middleware.GetUserID(c), chatID)
	if err != nil {
		if !isNotFound(err) {
			h.log.Error("failed to prepare stream", zap.String("chat_id", chatID), zap.Error(err))
		}
		Error(c, err)
		return
	}

	err = turn.Run(ctx, newSSEEmitter(c))
	switch {
	case err == nil:
	case errors.Is(err, relay.ErrClientGone):
		h.log.Info("stream client disconnected", zap.String("chat_id", chatID), zap.Error(err))
	default:
		h.log.Warn("stream ended early", zap.String("chat_id", chatID),
			zap.Stringer("state", turn.State()), zap.Error(err))
	}
}

// sseEmitter 基于 gin 响应的 relay.Emitter
type sseEmitter struct {
	c *gin.Context
}

func newSSEEmitter(c *gin.Context) *sseEmitter {
	return &sseEmitter{c: c}
}

// Open 写出事件流响应头并刷新
func (e *sseEmitter) Open() error {
	if err := e.c.Request.Context().Err(); err != nil {
		return err
	}
	h := e.c.Writer.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	e.c.Status(http.StatusOK)
	e.c.Writer.WriteHeaderNow()
	e.c.Writer.Flush()
	return nil
}

// Emit 写出一个事件并刷新
func (e *sseEmitter) Emit(event string, data any) error {
	if err := e.c.Request.Context().Err(); err != nil {
		return err
	}
	if err := sse.Encode(e.c.Writer, sse.Event{Event: event, Data: data}); err != nil {
		return err
	}
	e.c.Writer.Flush()
	return nil
}

var _ relay.Emitter = (*sseEmitter)(nil)
