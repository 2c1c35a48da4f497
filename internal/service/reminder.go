package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/event"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// 同一条提醒触发后的去重窗口。窗口内不会重复投递，
// 除非用户修改了提醒时间 (snooze 会改写 snoozed_until，窗口过期后重查仍命中)。
const reminderDedupTTL = 24 * time.Hour

// ReminderService 扫描到期的提醒并向所有者推送 reminder_due 事件。
// 由后台 worker 的周期任务驱动。
type ReminderService struct {
	noteRepo     repository.NoteRepository
	presenceRepo repository.PresenceRepository
	sink         event.Sink
}

// NewReminderService 创建 ReminderService 实例。
func NewReminderService(noteRepo repository.NoteRepository, presenceRepo repository.PresenceRepository, sink event.Sink) *ReminderService {
	if noteRepo == nil || presenceRepo == nil {
		panic("all repositories must be non-nil for ReminderService")
	}
	if sink == nil {
		sink = event.NopSink{}
	}
	return &ReminderService{
		noteRepo:     noteRepo,
		presenceRepo: presenceRepo,
		sink:         sink,
	}
}

// CheckDue 查找 now 之前到期且未完成、未处于 snooze 的提醒并投递。
// Redis SETNX 标记保证多个 worker 实例并发扫描时每条提醒只投递一次。
func (s *ReminderService) CheckDue(ctx context.Context, now time.Time) (int, error) {
	notes, err := s.noteRepo.FindDueReminders(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("Failed to query due reminders")
		return 0, ErrInternalServer
	}

	delivered := 0
	for i := range notes {
		note := &notes[i]
		first, err := s.presenceRepo.MarkReminderDelivered(ctx, note.ID, reminderDedupTTL)
		if err != nil {
			// 标记失败时跳过本条而不是中断整轮扫描
			logrus.WithError(err).WithField("note_id", note.ID).Warn("Failed to mark reminder delivery")
			continue
		}
		if !first {
			continue
		}

		s.sink.Publish(event.Event{
			UserScope: note.UserID,
			Kind:      event.KindReminderDue,
			Data: map[string]interface{}{
				"note_id":           note.ID,
				"title":             note.Title,
				"reminder_datetime": note.ReminderDatetime.Format(domain.ReminderTimeLayout),
			},
		})
		delivered++
	}

	if delivered > 0 {
		logrus.WithField("count", delivered).Info("Reminder notifications delivered")
	}
	return delivered, nil
}
