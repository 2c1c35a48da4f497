package repository

import (
	"context"
	"time"
)

// PresenceRepository 定义了房间在线状态相关的操作，由 Redis 实现。
// 在线状态是纯粹的临时数据，进程重启后由活跃连接重建，不要求持久化。
type PresenceRepository interface {
	// AddToRoom 记录某会话 (及其用户) 出现在笔记房间中。
	AddToRoom(ctx context.Context, noteID uint, sessionID string, userID uint) error

	// RemoveFromRoom 移除某会话在笔记房间中的在线记录。
	RemoveFromRoom(ctx context.Context, noteID uint, sessionID string) error

	// RoomMembers 返回笔记房间当前的 sessionID -> userID 映射。
	RoomMembers(ctx context.Context, noteID uint) (map[string]uint, error)

	// CleanupRoom 清除笔记房间的全部在线记录 (房间变空或笔记被删除时)。
	CleanupRoom(ctx context.Context, noteID uint) error

	// MarkReminderDelivered 原子地标记某笔记的提醒已投递。
	// 返回 true 表示本次调用完成了标记 (提醒应当发送)，
	// false 表示此前已有标记 (提醒已发送过，跳过)。
	MarkReminderDelivered(ctx context.Context, noteID uint, ttl time.Duration) (bool, error)
}
