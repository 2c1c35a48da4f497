package domain

import "time"

// 共享访问级别常量。
const (
	AccessRead = "read" // 只读 (外加归档/取消归档)
	AccessEdit = "edit" // 可编辑字段
)

// SharedNote 表示所有者对单个接收者的定向共享授权。
// 同一 (note_id, user_id) 对最多存在一条记录。
type SharedNote struct {
	ID          uint   `gorm:"primaryKey"`
	NoteID      uint   `gorm:"uniqueIndex:idx_note_recipient;not null"` // 被共享的笔记
	UserID      uint   `gorm:"uniqueIndex:idx_note_recipient;not null"` // 接收者用户 ID
	AccessLevel string `gorm:"size:10;not null;default:read"`           // "read" 或 "edit"

	// 接收者自行隐藏的标记。只有接收者本人可以修改，
	// 只影响该接收者的笔记列表，不影响笔记本身。
	HiddenByRecipient bool `gorm:"not null;default:false"`

	SharedAt time.Time `gorm:"autoCreateTime"`

	// 接收者用户，按需 Preload
	User *User `gorm:"foreignKey:UserID"`
}

// SharedNoteView 是共享记录的 API 表示。
type SharedNoteView struct {
	ID                uint      `json:"id"`
	NoteID            uint      `json:"note_id"`
	UserID            uint      `json:"user_id"`
	AccessLevel       string    `json:"access_level"`
	HiddenByRecipient bool      `json:"hidden_by_recipient"`
	SharedAt          string    `json:"shared_at"`
	User              *UserView `json:"user,omitempty"` // 接收者信息，查询共享列表时填充
}

// ToView 将共享记录转换为 API 表示。
func (s *SharedNote) ToView(recipient *User) SharedNoteView {
	view := SharedNoteView{
		ID:                s.ID,
		NoteID:            s.NoteID,
		UserID:            s.UserID,
		AccessLevel:       s.AccessLevel,
		HiddenByRecipient: s.HiddenByRecipient,
		SharedAt:          s.SharedAt.Format(time.RFC3339),
	}
	if recipient != nil {
		v := recipient.ToView()
		view.User = &v
	}
	return view
}

// IsValidAccessLevel 检查访问级别是否合法。
func IsValidAccessLevel(level string) bool {
	return level == AccessRead || level == AccessEdit
}
