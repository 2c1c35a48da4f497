package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisPresenceRepository 是 PresenceRepository 接口的 Redis 实现。
// 房间在线状态存储为 Hash (sessionID -> userID)，提醒投递标记使用 SETNX。
type RedisPresenceRepository struct {
	client *redis.Client
	// Redis key 前缀，方便多实例共用一个 Redis
	keyPrefix string
}

// NewRedisPresenceRepository 创建 RedisPresenceRepository 实例
func NewRedisPresenceRepository(client *redis.Client, keyPrefix string) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "fn:" // 默认前缀 "fn:" (fridgenotes)
	}
	return &RedisPresenceRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisPresenceRepository) roomPresenceKey(noteID uint) string {
	return fmt.Sprintf("%snote:%d:presence", r.keyPrefix, noteID)
}

func (r *RedisPresenceRepository) reminderSentKey(noteID uint) string {
	return fmt.Sprintf("%snote:%d:reminder_sent", r.keyPrefix, noteID)
}

// --- PresenceRepository Interface Implementation ---

// AddToRoom 记录会话出现在笔记房间中
func (r *RedisPresenceRepository) AddToRoom(ctx context.Context, noteID uint, sessionID string, userID uint) error {
	key := r.roomPresenceKey(noteID)
	if err := r.client.HSet(ctx, key, sessionID, userID).Err(); err != nil {
		return fmt.Errorf("redis: add session %s to room %d presence: %w", sessionID, noteID, err)
	}
	return nil
}

// RemoveFromRoom 移除会话的在线记录
func (r *RedisPresenceRepository) RemoveFromRoom(ctx context.Context, noteID uint, sessionID string) error {
	key := r.roomPresenceKey(noteID)
	if err := r.client.HDel(ctx, key, sessionID).Err(); err != nil {
		return fmt.Errorf("redis: remove session %s from room %d presence: %w", sessionID, noteID, err)
	}
	return nil
}

// RoomMembers 返回房间当前的 sessionID -> userID 映射
func (r *RedisPresenceRepository) RoomMembers(ctx context.Context, noteID uint) (map[string]uint, error) {
	key := r.roomPresenceKey(noteID)
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get room %d presence: %w", noteID, err)
	}
	members := make(map[string]uint, len(raw))
	for sessionID, userStr := range raw {
		userID, convErr := strconv.ParseUint(userStr, 10, 32)
		if convErr != nil {
			// 损坏的条目跳过即可，在线状态是临时数据
			continue
		}
		members[sessionID] = uint(userID)
	}
	return members, nil
}

// CleanupRoom 清除房间的全部在线记录
func (r *RedisPresenceRepository) CleanupRoom(ctx context.Context, noteID uint) error {
	key := r.roomPresenceKey(noteID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: cleanup room %d presence: %w", noteID, err)
	}
	return nil
}

// MarkReminderDelivered 用 SETNX 原子地标记提醒已投递
func (r *RedisPresenceRepository) MarkReminderDelivered(ctx context.Context, noteID uint, ttl time.Duration) (bool, error) {
	key := r.reminderSentKey(noteID)
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark reminder delivered for note %d: %w", noteID, err)
	}
	return ok, nil
}
