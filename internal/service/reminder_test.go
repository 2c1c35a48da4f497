package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/event"
	"github.com/Sc00tz/FridgeNotes/internal/repository/mocks"
	"github.com/Sc00tz/FridgeNotes/internal/service"
)

func TestReminderService_CheckDue_DeliversOncePerNote(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockPresenceRepo := new(mocks.PresenceRepository)
	sink := &recordingSink{}
	svc := service.NewReminderService(mockNoteRepo, mockPresenceRepo, sink)
	ctx := context.Background()

	now := time.Now()
	due := now.Add(-time.Minute)
	notes := []domain.Note{
		{ID: 1, UserID: 10, Title: "take out trash", ReminderDatetime: &due},
		{ID: 2, UserID: 11, Title: "buy milk", ReminderDatetime: &due},
	}
	mockNoteRepo.On("FindDueReminders", ctx, now).Return(notes, nil).Once()
	// 第一条是首次投递，第二条已被其他实例投递过
	mockPresenceRepo.On("MarkReminderDelivered", ctx, uint(1), mock.AnythingOfType("time.Duration")).
		Return(true, nil).Once()
	mockPresenceRepo.On("MarkReminderDelivered", ctx, uint(2), mock.AnythingOfType("time.Duration")).
		Return(false, nil).Once()

	delivered, err := svc.CheckDue(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindReminderDue, events[0].Kind)
	assert.Equal(t, uint(10), events[0].UserScope, "提醒应投递给笔记所有者")
	data, ok := events[0].Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, due.Format(domain.ReminderTimeLayout), data["reminder_datetime"],
		"提醒时间应使用与 API 一致的本地无时区格式")
	mockPresenceRepo.AssertExpectations(t)
}

func TestReminderService_CheckDue_MarkFailureSkipsNote(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockPresenceRepo := new(mocks.PresenceRepository)
	sink := &recordingSink{}
	svc := service.NewReminderService(mockNoteRepo, mockPresenceRepo, sink)
	ctx := context.Background()

	now := time.Now()
	due := now.Add(-time.Minute)
	notes := []domain.Note{{ID: 1, UserID: 10, ReminderDatetime: &due}}
	mockNoteRepo.On("FindDueReminders", ctx, now).Return(notes, nil).Once()
	mockPresenceRepo.On("MarkReminderDelivered", ctx, uint(1), mock.AnythingOfType("time.Duration")).
		Return(false, assert.AnError).Once()

	delivered, err := svc.CheckDue(ctx, now)

	// 单条标记失败不让整轮扫描失败
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Empty(t, sink.recorded())
}

func TestReminderService_CheckDue_NothingDue(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockPresenceRepo := new(mocks.PresenceRepository)
	sink := &recordingSink{}
	svc := service.NewReminderService(mockNoteRepo, mockPresenceRepo, sink)
	ctx := context.Background()

	now := time.Now()
	mockNoteRepo.On("FindDueReminders", ctx, now).Return([]domain.Note{}, nil).Once()

	delivered, err := svc.CheckDue(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Empty(t, sink.recorded())
	mockPresenceRepo.AssertNotCalled(t, "MarkReminderDelivered", mock.Anything, mock.Anything, mock.Anything)
}
