package service

import "sync"

// keyedMutex 提供按 ID 粒度的互斥锁。
// 用于把同一笔记的写操作串行化 (防止 delete 和 update 竞争后广播引用
// 已消失的笔记)，以及把同一用户的重排请求串行化。
// 锁条目带引用计数，空闲时回收，不随 key 数量无限增长。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*lockEntry)}
}

// Lock 获取 id 对应的锁，阻塞直到可用。
func (k *keyedMutex) Lock(id uint) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock 释放 id 对应的锁。
func (k *keyedMutex) Unlock(id uint) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if ok {
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
	}
	k.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
