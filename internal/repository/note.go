package repository

import (
	"context"
	"time"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
)

// NoteRepository 定义了笔记及其清单条目的存储和检索操作。
// 所有写操作都在隐式的事务单元中执行，失败时不留下部分状态。
type NoteRepository interface {
	// FindByID 根据 ID 查找笔记，预加载清单条目和共享记录。
	// 笔记不存在时返回 ErrNoteNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Note, error)

	// FindByOwner 查找某用户拥有的全部笔记，
	// 按置顶优先、position 升序返回。
	FindByOwner(ctx context.Context, ownerID uint) ([]domain.Note, error)

	// FindSharedWith 查找共享给某用户的笔记。
	// hidden 控制返回接收者已隐藏的还是未隐藏的那部分。
	FindSharedWith(ctx context.Context, userID uint, hidden bool) ([]domain.Note, error)

	// Save 保存笔记 (基于 ID 创建或更新)。
	Save(ctx context.Context, note *domain.Note) error

	// Delete 删除笔记，并在同一事务内级联删除其清单条目和全部共享记录。
	Delete(ctx context.Context, id uint) error

	// ReplaceChecklistItems 整体替换笔记的清单条目：
	// 删除现有条目并重建为给定列表，在同一事务内完成。
	ReplaceChecklistItems(ctx context.Context, noteID uint, items []domain.ChecklistItem) error

	// FindChecklistItem 查找笔记下的单个清单条目。
	// 条目不存在时返回 ErrChecklistItemNotFound。
	FindChecklistItem(ctx context.Context, noteID, itemID uint) (*domain.ChecklistItem, error)

	// SaveChecklistItem 保存单个清单条目。
	SaveChecklistItem(ctx context.Context, item *domain.ChecklistItem) error

	// MaxPosition 返回某用户笔记的最大 position，没有笔记时返回 -1。
	MaxPosition(ctx context.Context, ownerID uint) (int, error)

	// ReorderOwned 按给定顺序重新分配某用户笔记的 position (0 起始的密集序列)。
	// 序列中任何 ID 不属于该用户时返回 ErrPartialOwnership 且不产生任何变更；
	// 全部位置在单个事务内提交，要么全部更新要么全部不更新。
	ReorderOwned(ctx context.Context, ownerID uint, noteIDs []uint) error

	// FindDueReminders 查找提醒已到期的笔记：
	// 提醒时间 <= now，未标记完成，且未被暂缓到 now 之后。
	FindDueReminders(ctx context.Context, now time.Time) ([]domain.Note, error)
}
