package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// GormUserRepository 是 UserRepository 接口的 GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository 创建 GormUserRepository 实例
// db *gorm.DB 通过依赖注入传入
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

// FindByUsername 实现根据用户名查找用户
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by username '%s': %w", username, err)
	}
	return &user, nil
}

// FindByID 实现根据用户 ID 查找用户
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by id %d: %w", id, err)
	}
	return &user, nil
}

// Save 实现保存用户信息 (创建或更新)
func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save user (id: %d, username: %s): %w", user.ID, user.Username, err)
	}
	return nil
}
