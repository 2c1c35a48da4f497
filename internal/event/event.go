// Package event 定义变更事件的类型化契约。
// 业务服务在持久化提交成功后发出事件，由订阅方 (Hub) 负责广播，
// 持久化正确性与投递关注点因此解耦。
package event

// Kind 是变更事件的类型。
type Kind string

// 支持的事件类型。
const (
	KindNoteCreated     Kind = "note_created"
	KindNoteUpdated     Kind = "note_updated"
	KindNoteDeleted     Kind = "note_deleted"
	KindNoteShared      Kind = "note_shared"
	KindNoteUnshared    Kind = "note_unshared"
	KindNotePinned      Kind = "note_pinned"
	KindChecklistToggle Kind = "checklist_item_toggled"
	KindLabelRemoved    Kind = "label_removed"
	KindNotesReordered  Kind = "notes_reordered"
	KindReminderDue     Kind = "reminder_due"
	KindUserJoined      Kind = "user_joined"
	KindUserLeft        Kind = "user_left"
)

// Event 是一条变更事件。
// Room 为笔记 ID，事件投递给该笔记房间的所有订阅者；
// UserScope 非零时事件改为投递给该用户的全部连接 (用于 notes_reordered，
// 它影响整个列表视图而非单个笔记房间)。
type Event struct {
	Room      uint        `json:"room,omitempty"`
	UserScope uint        `json:"-"`
	Kind      Kind        `json:"kind"`
	Data      interface{} `json:"data"`
}

// Sink 接收业务层发出的变更事件。
// 实现方 (Hub) 必须保证：投递失败不影响调用方，调用是同步入队的，
// 因此对同一笔记按提交顺序调用 Publish 即可保证订阅者按提交顺序收到事件。
type Sink interface {
	Publish(evt Event)
}

// NopSink 丢弃所有事件，用于测试和不需要广播的场景。
type NopSink struct{}

func (NopSink) Publish(Event) {}
