package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/dto"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
	"github.com/danglinh9623-svg/MuseFlow/pkg/metrics"
)

const eventsKeepAlive = 15 * time.Second

// Events 以 SSE 推送会话集合快照
//
// 连接建立后先推送一次当前快照，之后每次变更推送最新快照。
// 变更通知会合并，客户端只应依赖最后收到的快照。
// @Summary 订阅会话变更
// @Tags Sessions
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/events [get]
func (h *SessionHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	notify, unsubscribe := h.store.Subscribe()
	defer unsubscribe()

	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	var sent uint64
	push := func() {
		st := h.store.Snapshot()
		if sent != 0 && st.Version == sent {
			return
		}
		sent = st.Version
		c.SSEvent("snapshot", dto.ToStateResponse(st))
	}

	// 首个快照立即发出，不等待下一次变更
	push()
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-notify:
			push()
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UnixMilli()})
			return true
		case <-ctx.Done():
			logger.Debug(ctx, "event stream closed")
			return false
		}
	})
}
