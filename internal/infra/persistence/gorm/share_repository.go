package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// GormShareRepository 是 ShareRepository 接口的 GORM 实现
type GormShareRepository struct {
	db *gorm.DB
}

// NewGormShareRepository 创建 GormShareRepository 实例
func NewGormShareRepository(db *gorm.DB) *GormShareRepository {
	if db == nil {
		panic("database connection cannot be nil for GormShareRepository")
	}
	return &GormShareRepository{db: db}
}

// FindByID 实现根据 ID 查找共享记录
func (r *GormShareRepository) FindByID(ctx context.Context, id uint) (*domain.SharedNote, error) {
	var share domain.SharedNote
	err := r.db.WithContext(ctx).First(&share, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrShareNotFound
		}
		return nil, fmt.Errorf("gorm: find share by id %d: %w", id, err)
	}
	return &share, nil
}

// FindByNote 实现查找某笔记的全部共享记录
func (r *GormShareRepository) FindByNote(ctx context.Context, noteID uint) ([]domain.SharedNote, error) {
	var shares []domain.SharedNote
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("note_id = ?", noteID).
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find shares by note %d: %w", noteID, err)
	}
	return shares, nil
}

// FindByNoteAndUser 实现查找 (笔记, 接收者) 对应的共享记录
func (r *GormShareRepository) FindByNoteAndUser(ctx context.Context, noteID, userID uint) (*domain.SharedNote, error) {
	var share domain.SharedNote
	err := r.db.WithContext(ctx).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrShareNotFound
		}
		return nil, fmt.Errorf("gorm: find share (note %d, user %d): %w", noteID, userID, err)
	}
	return &share, nil
}

// Save 实现保存共享记录
func (r *GormShareRepository) Save(ctx context.Context, share *domain.SharedNote) error {
	err := r.db.WithContext(ctx).Omit("User").Save(share).Error
	if err != nil {
		// (note_id, user_id) 唯一约束冲突映射为仓库层错误
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save share (note %d, user %d): %w", share.NoteID, share.UserID, err)
	}
	return nil
}

// Delete 实现删除共享记录
func (r *GormShareRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.SharedNote{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete share %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrShareNotFound
	}
	return nil
}

// SetHidden 实现设置接收者的隐藏标记
func (r *GormShareRepository) SetHidden(ctx context.Context, id uint, hidden bool) error {
	result := r.db.WithContext(ctx).Model(&domain.SharedNote{}).
		Where("id = ?", id).
		Update("hidden_by_recipient", hidden)
	if result.Error != nil {
		return fmt.Errorf("gorm: set hidden on share %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrShareNotFound
	}
	return nil
}

// isDuplicateEntryError 检查常见的唯一约束错误字符串。
// TODO: 替换为 go-sql-driver/mysql 的 MySQLError 编号检查 (1062)。
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") || // MySQL
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}
