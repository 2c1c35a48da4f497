package repository

import (
	"context"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
)

// ShareRepository 定义了共享授权记录的存储和检索操作。
type ShareRepository interface {
	// FindByID 根据 ID 查找共享记录。
	// 记录不存在时返回 ErrShareNotFound。
	FindByID(ctx context.Context, id uint) (*domain.SharedNote, error)

	// FindByNote 查找某笔记的全部共享记录。
	FindByNote(ctx context.Context, noteID uint) ([]domain.SharedNote, error)

	// FindByNoteAndUser 查找 (笔记, 接收者) 对应的共享记录。
	// 记录不存在时返回 ErrShareNotFound。
	FindByNoteAndUser(ctx context.Context, noteID, userID uint) (*domain.SharedNote, error)

	// Save 保存共享记录。违反 (note_id, user_id) 唯一约束时
	// 返回 ErrDuplicateEntry。
	Save(ctx context.Context, share *domain.SharedNote) error

	// Delete 删除共享记录。
	Delete(ctx context.Context, id uint) error

	// SetHidden 设置接收者的隐藏标记，不触碰共享记录的其他字段。
	SetHidden(ctx context.Context, id uint, hidden bool) error
}
