package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一条连接到 Hub 的 WebSocket 连接。
// 同一用户可以有多条连接，每条连接可以同时订阅多个笔记房间。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string // 连接级别的唯一标识
	userID    uint   // 认证时确定，不随客户端消息改变

	// 该连接已加入的房间集合，由 hub.mu 保护
	rooms map[uint]bool

	// mu 保护 closed 和对 send 的关闭。注销后 closed 置位，
	// 迟到的 join 和广播都以它为准，不会再写已关闭的通道。
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient 创建 Client 实例。
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, userID uint) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		userID:    userID,
		rooms:     make(map[uint]bool),
		send:      make(chan []byte, 256),
	}
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// trySend 非阻塞地把消息放入发送队列。队列满或连接已注销返回 false。
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend 标记连接已注销并关闭发送队列，幂等。
// 队列里未消费的消息保留给 WritePump 排空。
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// isClosed 报告连接是否已注销。
func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadPump 把客户端消息泵入 Hub 的处理通道。
// 连接断开时触发注销，Hub 会把该连接移出其全部房间。
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: "unregister", Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).
				Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).
			Info("readPump exited, client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		frame := HubMessage{Type: "client", Client: c, RawData: message}
		if !c.hub.QueueMessage(frame) {
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).
				Warn("Hub busy, dropping client message")
		}
	}
}

// WritePump 把 send 通道的消息泵入 WebSocket 连接，并定期发 Ping。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 在注销时关闭了 send 通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).
					WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (c *Client) UserID() uint      { return c.userID }
func (c *Client) SessionID() string { return c.sessionID }
func (c *Client) CloseConn()        { c.conn.Close() }
