package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/hub"
)

// WebSocketHandler 负责 WebSocket 升级和客户端注册。
// 房间加入不在这里发生：连接建立后客户端通过 join_note 消息
// 订阅具体笔记，权限检查由 Hub 执行。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// TODO: 生产环境应检查 Origin 白名单
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection 处理 /ws 的 WebSocket 连接请求。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 认证中间件写入的用户 ID
	userIDAny, exists := c.Get("userID")
	if !exists {
		logrus.Warn("WS Handler: user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: user ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	sessionID := uuid.NewString()
	logCtx = logCtx.WithField("session_id", sessionID)
	logCtx.Info("WS Handler: connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, sessionID, userID)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
		logCtx.Error("WS Handler: hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	go client.Run()
}
