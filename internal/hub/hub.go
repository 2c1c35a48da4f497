package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/event"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// RoomAuthorizer 判定用户能否订阅某笔记的房间。
// 由 NoteService 实现 (read 权限检查)。
type RoomAuthorizer interface {
	CanJoinRoom(ctx context.Context, userID, noteID uint) error
}

// HubMessage 是 Hub 内部通道传递的消息。
type HubMessage struct {
	Type    string // "register", "unregister", "client"
	Client  *Client
	RawData []byte // 仅 "client" 消息携带，客户端发来的原始 JSON
}

// clientFrame 是客户端上行消息的格式。
type clientFrame struct {
	Type   string          `json:"type"` // "join_note", "leave_note", "note_updated", "checklist_item_toggled", "label_removed"
	NoteID uint            `json:"note_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Hub 维护活跃连接集合，按笔记房间和用户两个维度索引。
// 它同时实现 event.Sink：服务层提交变更后通过 Publish 同步扇出。
type Hub struct {
	messageChan chan HubMessage

	// 连接索引。rooms 按笔记房间组织，userClients 按用户组织
	// (重排、提醒这类用户范围的事件走后者)。
	mu          sync.RWMutex
	rooms       map[uint]map[*Client]bool
	userClients map[uint]map[*Client]bool

	authorizer RoomAuthorizer
	presence   repository.PresenceRepository
}

// NewHub 创建 Hub 实例。presence 镜像是尽力而为的，可以为 nil。
// 事件源 (服务层) 依赖 Hub 做扇出，而 join 鉴权又依赖服务层，
// 所以 authorizer 在服务构造完成后通过 SetAuthorizer 注入。
func NewHub(presence repository.PresenceRepository) *Hub {
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[uint]map[*Client]bool),
		userClients: make(map[uint]map[*Client]bool),
		presence:    presence,
	}
}

// SetAuthorizer 注入房间鉴权器，必须在 Run 之前调用。
func (h *Hub) SetAuthorizer(authorizer RoomAuthorizer) {
	if authorizer == nil {
		panic("RoomAuthorizer cannot be nil for Hub")
	}
	h.authorizer = authorizer
}

// Run 启动 Hub 主循环，应在单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "client":
			// join 需要查库做权限检查，异步处理避免阻塞主循环
			go h.handleClientFrame(msg.Client, msg.RawData)
		default:
			log.Warnf("Received unknown hub message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage 将消息非阻塞地放入 Hub 的处理队列。
// 返回 false 表示队列已满，消息被丢弃。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient 将新连接加入用户索引。此时客户端还不属于任何房间。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.mu.Lock()
	if _, ok := h.userClients[client.userID]; !ok {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"user_id":    client.userID,
		"session_id": client.sessionID,
	}).Info("Client registered to Hub")
}

// unregisterClient 处理连接断开：隐式退出该连接加入的全部房间，
// 通知各房间的其余成员，清理变空的房间。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":    client.userID,
		"session_id": client.sessionID,
	})

	h.mu.Lock()
	leftRooms := make([]uint, 0, len(client.rooms))
	emptiedRooms := make([]uint, 0, len(client.rooms))
	for noteID := range client.rooms {
		if roomClients, ok := h.rooms[noteID]; ok {
			delete(roomClients, client)
			if len(roomClients) == 0 {
				delete(h.rooms, noteID)
				emptiedRooms = append(emptiedRooms, noteID)
			}
		}
		leftRooms = append(leftRooms, noteID)
	}
	client.rooms = make(map[uint]bool)

	if userConns, ok := h.userClients[client.userID]; ok {
		delete(userConns, client)
		if len(userConns) == 0 {
			delete(h.userClients, client.userID)
		}
	}

	client.closeSend()
	h.mu.Unlock()

	// 锁外通知和清理 presence 镜像
	for _, noteID := range leftRooms {
		h.notifyPeers(noteID, client, event.KindUserLeft)
		h.removePresence(noteID, client)
	}
	for _, noteID := range emptiedRooms {
		h.cleanupPresence(noteID)
	}
	logCtx.WithField("rooms_left", len(leftRooms)).Info("Client unregistered from Hub")
}

// handleClientFrame 解析并分发客户端上行消息。
func (h *Hub) handleClientFrame(client *Client, raw []byte) {
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":    client.userID,
		"session_id": client.sessionID,
	})

	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logCtx.WithError(err).Warn("Failed to parse client frame, ignoring")
		return
	}
	if frame.NoteID == 0 {
		logCtx.Warnf("Client frame %q missing note_id, ignoring", frame.Type)
		return
	}
	logCtx = logCtx.WithField("note_id", frame.NoteID)

	switch frame.Type {
	case "join_note":
		h.joinRoom(client, frame.NoteID, logCtx)
	case "leave_note":
		h.leaveRoom(client, frame.NoteID, logCtx)
	case "note_updated", "checklist_item_toggled", "label_removed":
		// 轻量中继：已在房间内的客户端把本地变更转发给房间其他成员。
		// 权威的变更事件仍由服务层在提交后发出，这里只是降低感知延迟。
		h.relay(client, frame, logCtx)
	default:
		logCtx.Warnf("Unknown client frame type: %s", frame.Type)
	}
}

// joinRoom 校验权限后把连接加入笔记房间。
// 身份取连接认证时的 userID，不信任客户端载荷。
func (h *Hub) joinRoom(client *Client, noteID uint, logCtx *logrus.Entry) {
	if h.authorizer == nil {
		logCtx.Error("Hub has no authorizer configured, denying join")
		client.trySend(errorFrame("join denied"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.authorizer.CanJoinRoom(ctx, client.userID, noteID); err != nil {
		logCtx.WithError(err).Warn("Room join denied")
		client.trySend(errorFrame("join denied"))
		return
	}

	h.mu.Lock()
	// 权限检查期间连接可能已断开注销，迟到的 join 不能把
	// 死连接塞回房间，否则房间永远不会回收
	if client.isClosed() {
		h.mu.Unlock()
		logCtx.Warn("Client disconnected while join was in flight, ignoring")
		return
	}
	if _, ok := h.rooms[noteID]; !ok {
		h.rooms[noteID] = make(map[*Client]bool)
	}
	already := h.rooms[noteID][client]
	h.rooms[noteID][client] = true
	client.rooms[noteID] = true
	h.mu.Unlock()

	if already {
		return // 重复 join 幂等
	}
	logCtx.Info("Client joined note room")

	h.notifyPeers(noteID, client, event.KindUserJoined)
	h.addPresence(noteID, client)
}

// leaveRoom 把连接移出笔记房间，房间变空则回收。
func (h *Hub) leaveRoom(client *Client, noteID uint, logCtx *logrus.Entry) {
	h.mu.Lock()
	member := client.rooms[noteID]
	emptied := false
	if member {
		delete(client.rooms, noteID)
		if roomClients, ok := h.rooms[noteID]; ok {
			delete(roomClients, client)
			if len(roomClients) == 0 {
				delete(h.rooms, noteID)
				emptied = true
			}
		}
	}
	h.mu.Unlock()

	if !member {
		return // 未加入过的 leave 是 no-op
	}
	logCtx.Info("Client left note room")

	h.notifyPeers(noteID, client, event.KindUserLeft)
	h.removePresence(noteID, client)
	if emptied {
		h.cleanupPresence(noteID)
	}
}

// relay 将房间成员的消息原样转发给房间内其他成员。
func (h *Hub) relay(client *Client, frame clientFrame, logCtx *logrus.Entry) {
	h.mu.RLock()
	member := client.rooms[frame.NoteID]
	h.mu.RUnlock()
	if !member {
		logCtx.Warn("Relay from client not in room, ignoring")
		return
	}

	payload, err := json.Marshal(event.Event{
		Room: frame.NoteID,
		Kind: event.Kind(frame.Type),
		Data: map[string]interface{}{
			"note_id": frame.NoteID,
			"user_id": client.userID,
			"payload": frame.Data,
		},
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal relay frame")
		return
	}
	h.fanOutRoom(frame.NoteID, payload, client)
}

// Publish 实现 event.Sink。
// Room 非零时投递给该笔记房间的全部成员；否则按 UserScope
// 投递给该用户的全部连接。投递是同步的：调用返回时消息已进入
// 每个接收者的发送队列 (或因队列满被丢弃)，保证同一来源的事件
// 对每个接收者保持发出顺序。
func (h *Hub) Publish(evt event.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).WithField("kind", evt.Kind).Error("Failed to marshal event for broadcast")
		return
	}

	if evt.Room != 0 {
		h.fanOutRoom(evt.Room, payload, nil)
		return
	}
	if evt.UserScope != 0 {
		h.fanOutUser(evt.UserScope, payload)
	}
}

// fanOutRoom 把消息发给房间全部成员，排除 exclude (可为 nil)。
// 在锁内做成员快照，锁外投递，慢客户端不会拖住广播。
func (h *Hub) fanOutRoom(noteID uint, payload []byte, exclude *Client) {
	h.mu.RLock()
	roomClients, ok := h.rooms[noteID]
	recipients := make([]*Client, 0, len(roomClients))
	if ok {
		for c := range roomClients {
			if c != exclude {
				recipients = append(recipients, c)
			}
		}
	}
	h.mu.RUnlock()

	// 没有订阅者的房间是 no-op，事件直接丢弃
	if len(recipients) == 0 {
		return
	}
	for _, c := range recipients {
		if !c.trySend(payload) {
			logrus.WithFields(logrus.Fields{
				"note_id":  noteID,
				"user_id":  c.userID,
				"msg_size": len(payload),
			}).Warn("Client send channel full during broadcast, message dropped for this client")
		}
	}
}

// fanOutUser 把消息发给某用户的全部连接。
func (h *Hub) fanOutUser(userID uint, payload []byte) {
	h.mu.RLock()
	userConns, ok := h.userClients[userID]
	recipients := make([]*Client, 0, len(userConns))
	if ok {
		for c := range userConns {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		if !c.trySend(payload) {
			logrus.WithFields(logrus.Fields{
				"user_id":  userID,
				"msg_size": len(payload),
			}).Warn("Client send channel full during user broadcast, message dropped")
		}
	}
}

// notifyPeers 向房间其他成员发送 user_joined / user_left 通知，
// 不回显给动作发起者本人。
func (h *Hub) notifyPeers(noteID uint, actor *Client, kind event.Kind) {
	payload, err := json.Marshal(event.Event{
		Room: noteID,
		Kind: kind,
		Data: map[string]interface{}{
			"note_id": noteID,
			"user_id": actor.userID,
		},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal peer notification")
		return
	}
	h.fanOutRoom(noteID, payload, actor)
}

// --- presence 镜像，尽力而为，失败只记日志 ---

func (h *Hub) addPresence(noteID uint, client *Client) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.AddToRoom(ctx, noteID, client.sessionID, client.userID); err != nil {
		logrus.WithError(err).WithField("note_id", noteID).Warn("Failed to mirror room join to presence store")
	}
}

func (h *Hub) removePresence(noteID uint, client *Client) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.RemoveFromRoom(ctx, noteID, client.sessionID); err != nil {
		logrus.WithError(err).WithField("note_id", noteID).Warn("Failed to mirror room leave to presence store")
	}
}

// cleanupPresence 在房间被回收后清空镜像，避免残留过期会话。
func (h *Hub) cleanupPresence(noteID uint) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.CleanupRoom(ctx, noteID); err != nil {
		logrus.WithError(err).WithField("note_id", noteID).Warn("Failed to cleanup room presence mirror")
	}
}

func errorFrame(message string) []byte {
	payload, _ := json.Marshal(map[string]string{"kind": "error", "message": message})
	return payload
}

// RoomSize 返回房间当前的连接数，测试和诊断用。
func (h *Hub) RoomSize(noteID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[noteID])
}
