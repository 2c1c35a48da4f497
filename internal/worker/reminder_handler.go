package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// ReminderCheckHandler 处理周期性的到期提醒扫描任务。
type ReminderCheckHandler struct {
	reminderService *service.ReminderService
}

// NewReminderCheckHandler 创建 Handler 实例。
func NewReminderCheckHandler(reminderService *service.ReminderService) *ReminderCheckHandler {
	if reminderService == nil {
		panic("ReminderService cannot be nil for ReminderCheckHandler")
	}
	return &ReminderCheckHandler{reminderService: reminderService}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *ReminderCheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	logCtx.Debug("Processing periodic reminder check task...")

	// 扫描本身有超时，避免数据库问题卡死 worker
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	delivered, err := h.reminderService.CheckDue(checkCtx, time.Now())
	if err != nil {
		logCtx.WithError(err).Error("Reminder check failed")
		// 周期任务下一轮会重试，这里不触发 asynq 的重试
		return nil
	}

	if delivered > 0 {
		logCtx.WithField("delivered", delivered).Info("Periodic reminder check task completed")
	}
	return nil
}
