package setup

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
)

// MigrateDB 自动迁移数据库模式。
// 共享记录的 (note_id, user_id) 唯一索引由模型 tag 声明，
// AutoMigrate 会负责创建。
func MigrateDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Note{},
		&domain.ChecklistItem{},
		&domain.SharedNote{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
