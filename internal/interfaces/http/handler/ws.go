package handler

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/ragpro/backend/internal/infrastructure/config"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/infrastructure/websocket"
	"github.com/ragpro/backend/internal/interfaces/http/response"
)

// WSHandler WebSocket 处理器
// 客户端按主题订阅运行事件或语料变更通知
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *websocket.Hub, cfg *config.Config) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// 本机服务，允许所有来源
				return true
			},
		},
		logger: log.NewModuleLogger("http", "ws_handler"),
	}
}

// Subscribe 订阅主题通知
// @Summary 升级为 WebSocket 连接并订阅主题（runs/corpus）
// @Tags 通知
// @Param topic query string false "主题，默认 runs"
// @Router /ws [get]
func (h *WSHandler) Subscribe(c *gin.Context) {
	topic := c.DefaultQuery("topic", websocket.TopicRuns)
	if topic != websocket.TopicRuns && topic != websocket.TopicCorpus {
		response.Error(c, http.StatusBadRequest, 1001, "unknown topic: "+topic)
		return
	}

	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := &websocket.Connection{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}
	h.hub.Register(conn)

	h.logger.Info("WebSocket subscriber connected", "topic", topic)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// writePump 将主题消息推送给客户端
func (h *WSHandler) writePump(wsConn *gorilla.Conn, conn *websocket.Connection) {
	defer wsConn.Close()

	for data := range conn.Send {
		if err := wsConn.WriteMessage(gorilla.TextMessage, data); err != nil {
			return
		}
	}
	// Send 通道已被 Hub 关闭
	_ = wsConn.WriteMessage(gorilla.CloseMessage, []byte{})
}

// readPump 丢弃入站消息，仅用于感知客户端断开
func (h *WSHandler) readPump(wsConn *gorilla.Conn, conn *websocket.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			return
		}
	}
}
