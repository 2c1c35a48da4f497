package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// GormNoteRepository 是 NoteRepository 接口的 GORM 实现
type GormNoteRepository struct {
	db *gorm.DB
}

// NewGormNoteRepository 创建 GormNoteRepository 实例
func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	if db == nil {
		panic("database connection cannot be nil for GormNoteRepository")
	}
	return &GormNoteRepository{db: db}
}

// preload 返回带清单条目和共享记录预加载的查询
func (r *GormNoteRepository) preload(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("ChecklistItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("SharedNotes")
}

// FindByID 实现根据 ID 查找笔记
func (r *GormNoteRepository) FindByID(ctx context.Context, id uint) (*domain.Note, error) {
	var note domain.Note
	err := r.preload(ctx).First(&note, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNoteNotFound
		}
		return nil, fmt.Errorf("gorm: find note by id %d: %w", id, err)
	}
	return &note, nil
}

// FindByOwner 实现查找某用户拥有的全部笔记
func (r *GormNoteRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.preload(ctx).
		Where("user_id = ?", ownerID).
		Order("pinned desc, position asc").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find notes by owner %d: %w", ownerID, err)
	}
	return notes, nil
}

// FindSharedWith 实现查找共享给某用户的笔记
func (r *GormNoteRepository) FindSharedWith(ctx context.Context, userID uint, hidden bool) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.preload(ctx).
		Joins("JOIN shared_notes ON shared_notes.note_id = notes.id").
		Where("shared_notes.user_id = ? AND shared_notes.hidden_by_recipient = ?", userID, hidden).
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find notes shared with user %d: %w", userID, err)
	}
	return notes, nil
}

// Save 实现保存笔记 (创建或更新)
func (r *GormNoteRepository) Save(ctx context.Context, note *domain.Note) error {
	// Save 会同时写关联对象，这里只保存笔记本身；
	// 清单条目由 ReplaceChecklistItems 单独管理
	err := r.db.WithContext(ctx).Omit("ChecklistItems", "SharedNotes").Save(note).Error
	if err != nil {
		return fmt.Errorf("gorm: save note (id: %d): %w", note.ID, err)
	}
	return nil
}

// Delete 实现删除笔记，级联删除清单条目和共享记录
func (r *GormNoteRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", id).Delete(&domain.ChecklistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", id).Delete(&domain.SharedNote{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Note{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNoteNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNoteNotFound
		}
		return fmt.Errorf("gorm: delete note %d: %w", id, err)
	}
	return nil
}

// ReplaceChecklistItems 实现整体替换笔记的清单条目
func (r *GormNoteRepository) ReplaceChecklistItems(ctx context.Context, noteID uint, items []domain.ChecklistItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", noteID).Delete(&domain.ChecklistItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].NoteID = noteID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: replace checklist items for note %d: %w", noteID, err)
	}
	return nil
}

// FindChecklistItem 实现查找笔记下的单个清单条目
func (r *GormNoteRepository) FindChecklistItem(ctx context.Context, noteID, itemID uint) (*domain.ChecklistItem, error) {
	var item domain.ChecklistItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND note_id = ?", itemID, noteID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrChecklistItemNotFound
		}
		return nil, fmt.Errorf("gorm: find checklist item %d of note %d: %w", itemID, noteID, err)
	}
	return &item, nil
}

// SaveChecklistItem 实现保存单个清单条目
func (r *GormNoteRepository) SaveChecklistItem(ctx context.Context, item *domain.ChecklistItem) error {
	err := r.db.WithContext(ctx).Save(item).Error
	if err != nil {
		return fmt.Errorf("gorm: save checklist item (id: %d): %w", item.ID, err)
	}
	return nil
}

// MaxPosition 实现查询某用户笔记的最大 position
func (r *GormNoteRepository) MaxPosition(ctx context.Context, ownerID uint) (int, error) {
	var max int
	// COALESCE 保证没有笔记时返回 -1，新笔记的 position 从 0 开始
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Where("user_id = ?", ownerID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: max position for owner %d: %w", ownerID, err)
	}
	return max, nil
}

// ReorderOwned 实现按给定顺序重新分配 position，全部或全不更新
func (r *GormNoteRepository) ReorderOwned(ctx context.Context, ownerID uint, noteIDs []uint) error {
	if len(noteIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先验证序列中的每个 ID 都属于操作者；数量不符则整体拒绝
		var owned int64
		if err := tx.Model(&domain.Note{}).
			Where("id IN ? AND user_id = ?", noteIDs, ownerID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(noteIDs)) {
			return repository.ErrPartialOwnership
		}

		// position = 序列下标，0 起始的密集序列
		for i, id := range noteIDs {
			if err := tx.Model(&domain.Note{}).
				Where("id = ? AND user_id = ?", id, ownerID).
				Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrPartialOwnership) {
			return repository.ErrPartialOwnership
		}
		return fmt.Errorf("gorm: reorder notes for owner %d: %w", ownerID, err)
	}
	return nil
}

// FindDueReminders 实现查找提醒已到期的笔记
func (r *GormNoteRepository) FindDueReminders(ctx context.Context, now time.Time) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.db.WithContext(ctx).
		Where("reminder_datetime IS NOT NULL AND reminder_datetime <= ?", now).
		Where("reminder_completed = ?", false).
		Where("reminder_snoozed_until IS NULL OR reminder_snoozed_until <= ?", now).
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find due reminders: %w", err)
	}
	return notes, nil
}
