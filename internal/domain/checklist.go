package domain

import "time"

// ChecklistItem 表示清单类型笔记中的单个条目。
// 条目在每次清单更新时整体替换，不做逐项合并。
type ChecklistItem struct {
	ID        uint      `gorm:"primaryKey"`
	NoteID    uint      `gorm:"index;not null"` // 所属笔记 (外键关联 Note.ID)
	Text      string    `gorm:"size:500;not null"`
	Completed bool      `gorm:"default:false"`
	Position  int       `gorm:"not null;default:0"` // 在清单内的顺序
	Category  string    `gorm:"size:50"`            // 可选的分类标签 (如商店分区)
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ChecklistItemView 是清单条目的 API 表示。
type ChecklistItemView struct {
	ID        uint   `json:"id"`
	NoteID    uint   `json:"note_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Position  int    `json:"order"`
	Category  string `json:"category,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ToView 将清单条目转换为 API 表示。
func (c *ChecklistItem) ToView() ChecklistItemView {
	return ChecklistItemView{
		ID:        c.ID,
		NoteID:    c.NoteID,
		Text:      c.Text,
		Completed: c.Completed,
		Position:  c.Position,
		Category:  c.Category,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
