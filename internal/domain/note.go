package domain

import "time"

// 笔记类型常量。目前仅支持纯文本和清单两种。
const (
	NoteTypeText      = "text"
	NoteTypeChecklist = "checklist"
)

// ReminderTimeLayout 是提醒时间在 API 上使用的格式。
// 前端发送的是不带时区的本地时间（例如 "2024-08-14T22:40:00"），
// 解析和输出时都不做任何时区转换。
const ReminderTimeLayout = "2006-01-02T15:04:05"

// Note 表示一条笔记，支持纯文本和清单两种类型。
type Note struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"index;not null"` // 笔记所有者 (外键关联 User.ID)

	// 内容字段
	Title    string `gorm:"size:200"`                        // 标题，可以为空
	Content  string `gorm:"type:text"`                       // 文本内容 (text 类型笔记使用)
	NoteType string `gorm:"size:20;not null;default:text"`   // "text" 或 "checklist"
	Color    string `gorm:"size:20;not null;default:default"` // UI 颜色标签

	// 排序与展示状态
	Position int  `gorm:"not null;default:0"` // 所有者范围内的拖拽排序位置
	Pinned   bool `gorm:"not null;default:false"`
	Archived bool `gorm:"default:false"`

	// 提醒系统
	ReminderDatetime     *time.Time // 提醒触发时间
	ReminderCompleted    bool       `gorm:"default:false"`
	ReminderSnoozedUntil *time.Time // 暂缓到此时间之前不再提醒

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// 关联关系，删除笔记时级联删除
	ChecklistItems []ChecklistItem `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	SharedNotes    []SharedNote    `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
}

// NoteView 是笔记在 API 响应和广播事件中的完整表示。
type NoteView struct {
	ID                   uint                `json:"id"`
	UserID               uint                `json:"user_id"`
	Title                string              `json:"title"`
	Content              string              `json:"content"`
	NoteType             string              `json:"note_type"`
	Color                string              `json:"color"`
	Position             int                 `json:"position"`
	Pinned               bool                `json:"pinned"`
	Archived             bool                `json:"archived"`
	ReminderDatetime     *string             `json:"reminder_datetime"`
	ReminderCompleted    bool                `json:"reminder_completed"`
	ReminderSnoozedUntil *string             `json:"reminder_snoozed_until"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            string              `json:"updated_at"`
	ChecklistItems       []ChecklistItemView `json:"checklist_items"`

	// 共享信息，依赖请求方的身份
	IsShared              bool   `json:"is_shared"`
	SharedWithCurrentUser bool   `json:"shared_with_current_user"`
	CurrentUserShareID    uint   `json:"current_user_share_id,omitempty"`
	CurrentUserAccess     string `json:"current_user_access_level,omitempty"`
	HiddenByCurrentUser   bool   `json:"hidden_by_current_user,omitempty"`
	SharesCount           int    `json:"shares_count,omitempty"`
}

// ToView 将笔记转换为 API 表示。
// currentUserID 用于填充与请求方相关的共享字段，传 0 表示不需要。
func (n *Note) ToView(currentUserID uint) NoteView {
	view := NoteView{
		ID:                n.ID,
		UserID:            n.UserID,
		Title:             n.Title,
		Content:           n.Content,
		NoteType:          n.NoteType,
		Color:             n.Color,
		Position:          n.Position,
		Pinned:            n.Pinned,
		Archived:          n.Archived,
		ReminderCompleted: n.ReminderCompleted,
		CreatedAt:         n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         n.UpdatedAt.Format(time.RFC3339),
		ChecklistItems:    []ChecklistItemView{},
	}

	// 提醒时间按本地格式输出，不附带时区
	if n.ReminderDatetime != nil {
		s := n.ReminderDatetime.Format(ReminderTimeLayout)
		view.ReminderDatetime = &s
	}
	if n.ReminderSnoozedUntil != nil {
		s := n.ReminderSnoozedUntil.Format(ReminderTimeLayout)
		view.ReminderSnoozedUntil = &s
	}

	// 清单项只在 checklist 类型下输出
	if n.NoteType == NoteTypeChecklist {
		for i := range n.ChecklistItems {
			view.ChecklistItems = append(view.ChecklistItems, n.ChecklistItems[i].ToView())
		}
	}

	if currentUserID != 0 {
		var own *SharedNote
		for i := range n.SharedNotes {
			if n.SharedNotes[i].UserID == currentUserID {
				own = &n.SharedNotes[i]
				break
			}
		}
		if own != nil {
			view.IsShared = true
			view.SharedWithCurrentUser = true
			view.CurrentUserShareID = own.ID
			view.CurrentUserAccess = own.AccessLevel
			view.HiddenByCurrentUser = own.HiddenByRecipient
		} else {
			view.IsShared = len(n.SharedNotes) > 0
			view.SharesCount = len(n.SharedNotes)
		}
	}

	return view
}

// IsValidNoteType 检查笔记类型是否合法。
func IsValidNoteType(t string) bool {
	return t == NoteTypeText || t == NoteTypeChecklist
}
