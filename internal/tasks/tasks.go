package tasks

import (
	"github.com/hibiken/asynq"
)

// 任务类型常量。
const (
	// TypeReminderCheck 是周期性的到期提醒扫描任务。
	TypeReminderCheck = "reminder:check"
)

// NewReminderCheckTask 创建提醒扫描任务。
// 周期任务不需要 payload，扫描时刻由 worker 取当前时间。
func NewReminderCheckTask() *asynq.Task {
	return asynq.NewTask(TypeReminderCheck, nil)
}
