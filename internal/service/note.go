package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/event"
	"github.com/Sc00tz/FridgeNotes/internal/permission"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// ChecklistItemInput 是清单条目在创建/更新请求中的形式。
type ChecklistItemInput struct {
	Text      string `json:"text" binding:"required"`
	Completed bool   `json:"completed"`
	Category  string `json:"category"`
}

// NoteInput 是笔记创建/更新请求的数据。
// 更新使用部分更新语义：nil 的字段保持原值不动。
type NoteInput struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	NoteType string  `json:"note_type"` // 仅创建时使用
	Color    *string `json:"color"`
	Pinned   *bool   `json:"pinned"`
	Archived *bool   `json:"archived"`

	// 提醒时间是不带时区的本地时间字符串，空字符串表示清除
	ReminderDatetime     *string `json:"reminder_datetime"`
	ReminderCompleted    *bool   `json:"reminder_completed"`
	ReminderSnoozedUntil *string `json:"reminder_snoozed_until"`

	// 提供时整体替换现有清单 (不做逐项合并)
	ChecklistItems *[]ChecklistItemInput `json:"checklist_items"`
}

// isArchiveOnly 判断请求是否只包含归档标记。
// read 级别的接收者只允许这种受限写入。
func (in *NoteInput) isArchiveOnly() bool {
	return in.Archived != nil &&
		in.Title == nil && in.Content == nil && in.NoteType == "" &&
		in.Color == nil && in.Pinned == nil &&
		in.ReminderDatetime == nil && in.ReminderCompleted == nil &&
		in.ReminderSnoozedUntil == nil && in.ChecklistItems == nil
}

// NoteService 负责笔记的创建、更新、删除、列表和重排业务逻辑。
// 每个成功提交的变更都会向 event.Sink 发出一条变更事件；
// 事件投递失败不回滚提交。
type NoteService struct {
	noteRepo  repository.NoteRepository
	shareRepo repository.ShareRepository
	sink      event.Sink

	// 同一笔记的写操作串行化，同一用户的重排串行化
	noteLocks  *keyedMutex
	ownerLocks *keyedMutex
}

// NewNoteService 创建 NoteService 实例。
func NewNoteService(noteRepo repository.NoteRepository, shareRepo repository.ShareRepository, sink event.Sink) *NoteService {
	if noteRepo == nil || shareRepo == nil {
		panic("all repositories must be non-nil for NoteService")
	}
	if sink == nil {
		sink = event.NopSink{}
	}
	return &NoteService{
		noteRepo:   noteRepo,
		shareRepo:  shareRepo,
		sink:       sink,
		noteLocks:  newKeyedMutex(),
		ownerLocks: newKeyedMutex(),
	}
}

// Create 为 ownerID 创建一条新笔记。
// 新笔记的 position = 该用户当前最大 position + 1 (没有笔记时为 0)，
// 追加是 O(1) 的，不需要重扫全部笔记。
func (s *NoteService) Create(ctx context.Context, ownerID uint, in NoteInput) (*domain.Note, error) {
	logCtx := logrus.WithField("user_id", ownerID)

	if !domain.IsValidNoteType(in.NoteType) {
		return nil, ErrInvalidNoteType
	}

	maxPos, err := s.noteRepo.MaxPosition(ctx, ownerID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to query max note position")
		return nil, ErrInternalServer
	}

	note := &domain.Note{
		UserID:   ownerID,
		Title:    strValue(in.Title),
		Content:  strValue(in.Content),
		NoteType: in.NoteType,
		Color:    strValueOr(in.Color, "default"),
		Position: maxPos + 1,
		Pinned:   boolValue(in.Pinned),
		Archived: boolValue(in.Archived),
	}
	if err := applyReminderFields(note, &in); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Save(ctx, note); err != nil {
		logCtx.WithError(err).Error("Failed to save new note")
		return nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("note_id", note.ID)

	// 清单条目整体写入，ordinal position 取列表下标
	if note.NoteType == domain.NoteTypeChecklist && in.ChecklistItems != nil {
		items := buildChecklistItems(note.ID, *in.ChecklistItems)
		if err := s.noteRepo.ReplaceChecklistItems(ctx, note.ID, items); err != nil {
			logCtx.WithError(err).Error("Failed to create checklist items")
			return nil, ErrInternalServer
		}
		note.ChecklistItems = items
	}

	logCtx.WithField("position", note.Position).Info("Note created")
	s.sink.Publish(event.Event{
		Room: note.ID,
		Kind: event.KindNoteCreated,
		Data: note.ToView(ownerID),
	})
	return note, nil
}

// Update 更新一条笔记。
// 权限按请求的字段集判定：只含归档标记的请求按 archive-only 处理，
// read 级别的接收者也允许；其余字段要求 edit 级别或所有者。
// 缺席的字段保持原值 (部分更新语义)。
func (s *NoteService) Update(ctx context.Context, noteID, actorID uint, in NoteInput) (*domain.Note, error) {
	s.noteLocks.Lock(noteID)
	defer s.noteLocks.Unlock(noteID)

	logCtx := logrus.WithFields(logrus.Fields{"note_id": noteID, "user_id": actorID})

	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return nil, err
	}

	op := permission.OpEditFields
	if in.isArchiveOnly() {
		op = permission.OpEditArchiveOnly
	}
	if dec := permission.Check(actorID, note, share, op); !dec.Allowed {
		logCtx.WithField("reason", dec.Reason).Warn("Note update denied")
		return nil, mapDenyReason(dec.Reason)
	}

	if in.Title != nil {
		note.Title = *in.Title
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	if in.Color != nil {
		note.Color = *in.Color
	}
	if in.Pinned != nil {
		note.Pinned = *in.Pinned
	}
	if in.Archived != nil {
		note.Archived = *in.Archived
	}
	if err := applyReminderFields(note, &in); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Save(ctx, note); err != nil {
		logCtx.WithError(err).Error("Failed to save note update")
		return nil, ErrInternalServer
	}

	if note.NoteType == domain.NoteTypeChecklist && in.ChecklistItems != nil {
		items := buildChecklistItems(note.ID, *in.ChecklistItems)
		if err := s.noteRepo.ReplaceChecklistItems(ctx, note.ID, items); err != nil {
			logCtx.WithError(err).Error("Failed to replace checklist items")
			return nil, ErrInternalServer
		}
		note.ChecklistItems = items
	}

	logCtx.Info("Note updated")
	// 广播携带完整表示而不是差量
	s.sink.Publish(event.Event{
		Room: note.ID,
		Kind: event.KindNoteUpdated,
		Data: note.ToView(actorID),
	})
	return note, nil
}

// Delete 删除一条笔记，只允许所有者执行。
// 删除事件在持久化删除完成之前发出，保证订阅者无论级联删除
// 是否已物理完成都能收到通知。
func (s *NoteService) Delete(ctx context.Context, noteID, actorID uint) error {
	s.noteLocks.Lock(noteID)
	defer s.noteLocks.Unlock(noteID)

	logCtx := logrus.WithFields(logrus.Fields{"note_id": noteID, "user_id": actorID})

	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return err
	}

	if dec := permission.Check(actorID, note, share, permission.OpDelete); !dec.Allowed {
		logCtx.WithField("reason", dec.Reason).Warn("Note delete denied")
		if dec.Reason == permission.ReasonOwnerOnlyDelete {
			// 有访问权的接收者得到明确的引导：用隐藏代替删除
			return ErrDeleteSharedNote
		}
		return ErrDeleteNotOwner
	}

	s.sink.Publish(event.Event{
		Room: note.ID,
		Kind: event.KindNoteDeleted,
		Data: map[string]interface{}{"id": note.ID},
	})

	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		logCtx.WithError(err).Error("Failed to delete note")
		return ErrInternalServer
	}
	logCtx.Info("Note deleted (cascade: checklist items, shares)")
	return nil
}

// Get 返回单条笔记，要求 read 权限。
func (s *NoteService) Get(ctx context.Context, noteID, actorID uint) (*domain.Note, error) {
	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return nil, err
	}
	if dec := permission.Check(actorID, note, share, permission.OpRead); !dec.Allowed {
		return nil, mapDenyReason(dec.Reason)
	}
	return note, nil
}

// ListForUser 返回用户可见的全部笔记：
// 自己拥有的，加上共享给他且未被他隐藏的，按 ID 去重。
func (s *NoteService) ListForUser(ctx context.Context, userID uint) ([]domain.NoteView, error) {
	own, err := s.noteRepo.FindByOwner(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list own notes")
		return nil, ErrInternalServer
	}
	shared, err := s.noteRepo.FindSharedWith(ctx, userID, false)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list shared notes")
		return nil, ErrInternalServer
	}

	views := make([]domain.NoteView, 0, len(own)+len(shared))
	seen := make(map[uint]bool, len(own))
	for i := range own {
		seen[own[i].ID] = true
		views = append(views, own[i].ToView(userID))
	}
	for i := range shared {
		if seen[shared[i].ID] {
			continue
		}
		views = append(views, shared[i].ToView(userID))
	}
	return views, nil
}

// ListHidden 返回共享给用户但被他隐藏的笔记。
func (s *NoteService) ListHidden(ctx context.Context, userID uint) ([]domain.NoteView, error) {
	hidden, err := s.noteRepo.FindSharedWith(ctx, userID, true)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list hidden shared notes")
		return nil, ErrInternalServer
	}
	views := make([]domain.NoteView, 0, len(hidden))
	for i := range hidden {
		views = append(views, hidden[i].ToView(userID))
	}
	return views, nil
}

// Reorder 按给定顺序重排用户自己的笔记。
// 序列中的每个 ID 都必须属于该用户，否则整体拒绝且不产生任何变更。
// 同一用户的并发重排请求串行执行。
func (s *NoteService) Reorder(ctx context.Context, ownerID uint, noteIDs []uint) error {
	if len(noteIDs) == 0 {
		return ErrEmptyReorderList
	}

	s.ownerLocks.Lock(ownerID)
	defer s.ownerLocks.Unlock(ownerID)

	logCtx := logrus.WithFields(logrus.Fields{"user_id": ownerID, "count": len(noteIDs)})

	if err := s.noteRepo.ReorderOwned(ctx, ownerID, noteIDs); err != nil {
		if errors.Is(err, repository.ErrPartialOwnership) {
			logCtx.Warn("Reorder rejected: sequence contains notes not owned by actor")
			return ErrReorderNotOwned
		}
		logCtx.WithError(err).Error("Failed to reorder notes")
		return ErrInternalServer
	}

	logCtx.Info("Notes reordered")
	// 重排影响整个列表视图，投递给该用户的全部连接而不是单个笔记房间
	s.sink.Publish(event.Event{
		UserScope: ownerID,
		Kind:      event.KindNotesReordered,
		Data:      map[string]interface{}{"user_id": ownerID, "note_ids": noteIDs},
	})
	return nil
}

// TogglePin 切换笔记的置顶状态，允许所有者或 edit 级别接收者。
func (s *NoteService) TogglePin(ctx context.Context, noteID, actorID uint, pinned bool) (*domain.Note, error) {
	s.noteLocks.Lock(noteID)
	defer s.noteLocks.Unlock(noteID)

	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return nil, err
	}
	if dec := permission.Check(actorID, note, share, permission.OpEditFields); !dec.Allowed {
		return nil, mapDenyReason(dec.Reason)
	}

	note.Pinned = pinned
	if err := s.noteRepo.Save(ctx, note); err != nil {
		logrus.WithError(err).WithField("note_id", noteID).Error("Failed to save pin change")
		return nil, ErrInternalServer
	}

	s.sink.Publish(event.Event{
		Room: note.ID,
		Kind: event.KindNotePinned,
		Data: map[string]interface{}{"note_id": note.ID, "pinned": pinned, "user_id": actorID},
	})
	return note, nil
}

// UpdateChecklistItem 更新单个清单条目的文本或完成状态。
// 完成状态翻转时向笔记房间广播 toggle 事件。
func (s *NoteService) UpdateChecklistItem(ctx context.Context, noteID, itemID, actorID uint, text *string, completed *bool) (*domain.ChecklistItem, error) {
	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return nil, err
	}
	if dec := permission.Check(actorID, note, share, permission.OpEditFields); !dec.Allowed {
		return nil, mapDenyReason(dec.Reason)
	}

	item, err := s.noteRepo.FindChecklistItem(ctx, noteID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		logrus.WithError(err).WithField("item_id", itemID).Error("Failed to load checklist item")
		return nil, ErrInternalServer
	}

	oldCompleted := item.Completed
	if text != nil {
		item.Text = *text
	}
	if completed != nil {
		item.Completed = *completed
	}
	if err := s.noteRepo.SaveChecklistItem(ctx, item); err != nil {
		logrus.WithError(err).WithField("item_id", itemID).Error("Failed to save checklist item")
		return nil, ErrInternalServer
	}

	if completed != nil && oldCompleted != item.Completed {
		s.sink.Publish(event.Event{
			Room: noteID,
			Kind: event.KindChecklistToggle,
			Data: map[string]interface{}{
				"note_id":   noteID,
				"item_id":   item.ID,
				"completed": item.Completed,
				"user_id":   actorID,
			},
		})
	}
	return item, nil
}

// CanJoinRoom 判定用户是否可以订阅某笔记的房间 (read 权限检查)。
// 供 Hub 在 join 时调用。
func (s *NoteService) CanJoinRoom(ctx context.Context, userID, noteID uint) error {
	note, share, err := s.loadNoteWithShare(ctx, noteID, userID)
	if err != nil {
		return err
	}
	if dec := permission.Check(userID, note, share, permission.OpRead); !dec.Allowed {
		return mapDenyReason(dec.Reason)
	}
	return nil
}

// --- 私有辅助函数 ---

// loadNoteWithShare 加载笔记和 (笔记, 请求者) 对应的共享记录。
// 请求者是所有者或没有共享记录时 share 为 nil。
func (s *NoteService) loadNoteWithShare(ctx context.Context, noteID, actorID uint) (*domain.Note, *domain.SharedNote, error) {
	note, err := s.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNoteNotFound
		}
		logrus.WithError(err).WithField("note_id", noteID).Error("Failed to load note")
		return nil, nil, ErrInternalServer
	}

	var share *domain.SharedNote
	if note.UserID != actorID {
		share, err = s.shareRepo.FindByNoteAndUser(ctx, noteID, actorID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logrus.WithError(err).WithField("note_id", noteID).Error("Failed to load share record")
				return nil, nil, ErrInternalServer
			}
			share = nil
		}
	}
	return note, share, nil
}

// mapDenyReason 把求值器的拒绝原因映射到服务层错误。
func mapDenyReason(reason permission.Reason) error {
	switch reason {
	case permission.ReasonInsufficientLevel:
		return ErrForbiddenInsufficientLevel
	case permission.ReasonNotRecipient:
		return ErrForbiddenNotRecipient
	case permission.ReasonOwnerOnlyDelete:
		return ErrDeleteSharedNote
	default:
		return ErrForbiddenNoGrant
	}
}

// applyReminderFields 应用提醒相关字段。
// 时间字符串按本地 naive 时间解析，不做时区转换；空字符串清除该字段。
func applyReminderFields(note *domain.Note, in *NoteInput) error {
	if in.ReminderDatetime != nil {
		t, err := parseReminder(*in.ReminderDatetime)
		if err != nil {
			return err
		}
		note.ReminderDatetime = t
	}
	if in.ReminderCompleted != nil {
		note.ReminderCompleted = *in.ReminderCompleted
	}
	if in.ReminderSnoozedUntil != nil {
		t, err := parseReminder(*in.ReminderSnoozedUntil)
		if err != nil {
			return err
		}
		note.ReminderSnoozedUntil = t
	}
	return nil
}

func parseReminder(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(domain.ReminderTimeLayout, value, time.Local)
	if err != nil {
		return nil, ErrInvalidReminder
	}
	return &t, nil
}

func buildChecklistItems(noteID uint, inputs []ChecklistItemInput) []domain.ChecklistItem {
	items := make([]domain.ChecklistItem, 0, len(inputs))
	for i, in := range inputs {
		items = append(items, domain.ChecklistItem{
			NoteID:    noteID,
			Text:      in.Text,
			Completed: in.Completed,
			Position:  i,
			Category:  in.Category,
		})
	}
	return items
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strValueOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func boolValue(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
