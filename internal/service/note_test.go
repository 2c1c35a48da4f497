package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/event"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
	"github.com/Sc00tz/FridgeNotes/internal/repository/mocks"
	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// recordingSink 按顺序记录发布的事件，供断言使用。
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Publish(evt event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) recorded() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// --- Create ---

func TestNoteService_Create_PositionIsMaxPlusOne(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	mockNoteRepo.On("MaxPosition", ctx, uint(1)).Return(4, nil).Once()
	mockNoteRepo.On("Save", ctx, mock.MatchedBy(func(n *domain.Note) bool {
		return n.UserID == 1 && n.Position == 5
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Note).ID = 42
	}).Return(nil).Once()

	note, err := svc.Create(ctx, 1, service.NoteInput{
		Title:    strPtr("groceries"),
		NoteType: domain.NoteTypeText,
	})

	require.NoError(t, err)
	assert.Equal(t, 5, note.Position, "新笔记 position 应为 max+1")
	assert.Equal(t, "default", note.Color, "未指定颜色时应使用默认值")

	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindNoteCreated, events[0].Kind)
	assert.Equal(t, uint(42), events[0].Room)
	mockNoteRepo.AssertExpectations(t)
}

func TestNoteService_Create_FirstNoteGetsPositionZero(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	// 没有任何笔记时 MaxPosition 返回 -1
	mockNoteRepo.On("MaxPosition", ctx, uint(1)).Return(-1, nil).Once()
	mockNoteRepo.On("Save", ctx, mock.AnythingOfType("*domain.Note")).Return(nil).Once()

	note, err := svc.Create(ctx, 1, service.NoteInput{NoteType: domain.NoteTypeText})

	require.NoError(t, err)
	assert.Equal(t, 0, note.Position)
	mockNoteRepo.AssertExpectations(t)
}

func TestNoteService_Create_InvalidType(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})

	_, err := svc.Create(context.Background(), 1, service.NoteInput{NoteType: "journal"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidNoteType))
	mockNoteRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestNoteService_Create_ChecklistItemsOrdinalPositions(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	mockNoteRepo.On("MaxPosition", ctx, uint(1)).Return(-1, nil).Once()
	mockNoteRepo.On("Save", ctx, mock.AnythingOfType("*domain.Note")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Note).ID = 7
	}).Return(nil).Once()
	mockNoteRepo.On("ReplaceChecklistItems", ctx, uint(7), mock.MatchedBy(func(items []domain.ChecklistItem) bool {
		return len(items) == 2 && items[0].Position == 0 && items[1].Position == 1
	})).Return(nil).Once()

	items := []service.ChecklistItemInput{{Text: "milk"}, {Text: "eggs"}}
	note, err := svc.Create(ctx, 1, service.NoteInput{
		NoteType:       domain.NoteTypeChecklist,
		ChecklistItems: &items,
	})

	require.NoError(t, err)
	assert.Len(t, note.ChecklistItems, 2)
	mockNoteRepo.AssertExpectations(t)
}

// --- Update ---

func TestNoteService_Update_ReadRecipientArchiveOnlyAllowed(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1, NoteType: domain.NoteTypeText}
	share := &domain.SharedNote{ID: 100, NoteID: 10, UserID: 2, AccessLevel: domain.AccessRead}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(2)).Return(share, nil).Once()
	mockNoteRepo.On("Save", ctx, mock.MatchedBy(func(n *domain.Note) bool {
		return n.Archived
	})).Return(nil).Once()

	// 请求只带归档标记，read 级别也放行
	updated, err := svc.Update(ctx, 10, 2, service.NoteInput{Archived: boolPtr(true)})

	require.NoError(t, err)
	assert.True(t, updated.Archived)
	require.Len(t, sink.recorded(), 1)
	assert.Equal(t, event.KindNoteUpdated, sink.recorded()[0].Kind)
	mockNoteRepo.AssertExpectations(t)
	mockShareRepo.AssertExpectations(t)
}

func TestNoteService_Update_ReadRecipientFullEditDenied(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1, NoteType: domain.NoteTypeText}
	share := &domain.SharedNote{ID: 100, NoteID: 10, UserID: 2, AccessLevel: domain.AccessRead}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(2)).Return(share, nil).Once()

	// 归档之外还带了其他字段，不再是 archive-only 请求
	_, err := svc.Update(ctx, 10, 2, service.NoteInput{
		Title:    strPtr("hijacked"),
		Archived: boolPtr(true),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrForbiddenInsufficientLevel))
	assert.Empty(t, sink.recorded(), "被拒绝的更新不应发事件")
	mockNoteRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestNoteService_Update_StrangerDenied(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1, NoteType: domain.NoteTypeText}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(3)).
		Return(nil, repository.ErrShareNotFound).Once()

	_, err := svc.Update(ctx, 10, 3, service.NoteInput{Title: strPtr("nope")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrForbiddenNoGrant))
}

func TestNoteService_Update_PartialUpdateKeepsOtherFields(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1, NoteType: domain.NoteTypeText, Title: "keep me", Content: "old"}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockNoteRepo.On("Save", ctx, mock.AnythingOfType("*domain.Note")).Return(nil).Once()

	updated, err := svc.Update(ctx, 10, 1, service.NoteInput{Content: strPtr("new")})

	require.NoError(t, err)
	assert.Equal(t, "keep me", updated.Title, "缺席字段应保持原值")
	assert.Equal(t, "new", updated.Content)
}

// --- Delete ---

func TestNoteService_Delete_OwnerEventEmittedBeforePersistence(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockNoteRepo.On("Delete", ctx, uint(10)).Run(func(args mock.Arguments) {
		// 持久化删除执行时删除事件必须已经发出
		assert.Len(t, sink.recorded(), 1, "deleted 事件应先于持久化删除")
	}).Return(nil).Once()

	err := svc.Delete(ctx, 10, 1)

	require.NoError(t, err)
	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindNoteDeleted, events[0].Kind)
	assert.Equal(t, uint(10), events[0].Room)
	mockNoteRepo.AssertExpectations(t)
}

func TestNoteService_Delete_RecipientGetsHideGuidance(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	share := &domain.SharedNote{ID: 100, NoteID: 10, UserID: 2, AccessLevel: domain.AccessEdit}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(2)).Return(share, nil).Once()

	err := svc.Delete(ctx, 10, 2)

	require.Error(t, err)
	// 有访问权的接收者得到引导使用隐藏的专门错误
	assert.True(t, errors.Is(err, service.ErrDeleteSharedNote))
	assert.Empty(t, sink.recorded())
	mockNoteRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestNoteService_Delete_StrangerGetsOwnerOnlyError(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(3)).
		Return(nil, repository.ErrShareNotFound).Once()

	err := svc.Delete(ctx, 10, 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrDeleteNotOwner))
	assert.False(t, errors.Is(err, service.ErrDeleteSharedNote), "无授权者不应得到隐藏引导")
}

// --- Reorder ---

func TestNoteService_Reorder_EmptyList(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})

	err := svc.Reorder(context.Background(), 1, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrEmptyReorderList))
	mockNoteRepo.AssertNotCalled(t, "ReorderOwned", mock.Anything, mock.Anything, mock.Anything)
}

func TestNoteService_Reorder_PartialOwnershipRejectedAtomically(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	ids := []uint{10, 11, 99}
	mockNoteRepo.On("ReorderOwned", ctx, uint(1), ids).
		Return(repository.ErrPartialOwnership).Once()

	err := svc.Reorder(ctx, 1, ids)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrReorderNotOwned))
	assert.Empty(t, sink.recorded(), "被拒绝的重排不应发事件")
	mockNoteRepo.AssertExpectations(t)
}

func TestNoteService_Reorder_SuccessEmitsUserScopedEvent(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	ids := []uint{11, 10, 12}
	mockNoteRepo.On("ReorderOwned", ctx, uint(1), ids).Return(nil).Once()

	err := svc.Reorder(ctx, 1, ids)

	require.NoError(t, err)
	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindNotesReordered, events[0].Kind)
	assert.Equal(t, uint(0), events[0].Room, "重排事件不属于单个笔记房间")
	assert.Equal(t, uint(1), events[0].UserScope)
}

// --- 列表 ---

func TestNoteService_ListForUser_MergesOwnAndSharedWithoutDuplicates(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	own := []domain.Note{{ID: 1, UserID: 2}, {ID: 2, UserID: 2}}
	shared := []domain.Note{{ID: 2, UserID: 2}, {ID: 3, UserID: 1}}
	mockNoteRepo.On("FindByOwner", ctx, uint(2)).Return(own, nil).Once()
	mockNoteRepo.On("FindSharedWith", ctx, uint(2), false).Return(shared, nil).Once()

	views, err := svc.ListForUser(ctx, 2)

	require.NoError(t, err)
	require.Len(t, views, 3, "重合的笔记应去重")
	seen := map[uint]bool{}
	for _, v := range views {
		assert.False(t, seen[v.ID], "笔记 %d 出现了多次", v.ID)
		seen[v.ID] = true
	}
}

func TestNoteService_ListHidden_QueriesHiddenShares(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, &recordingSink{})
	ctx := context.Background()

	hidden := []domain.Note{{ID: 5, UserID: 1}}
	mockNoteRepo.On("FindSharedWith", ctx, uint(2), true).Return(hidden, nil).Once()

	views, err := svc.ListHidden(ctx, 2)

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, uint(5), views[0].ID)
}

// --- 清单条目 ---

func TestNoteService_UpdateChecklistItem_ToggleEmitsEvent(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1, NoteType: domain.NoteTypeChecklist}
	item := &domain.ChecklistItem{ID: 3, NoteID: 10, Text: "milk", Completed: false}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockNoteRepo.On("FindChecklistItem", ctx, uint(10), uint(3)).Return(item, nil).Once()
	mockNoteRepo.On("SaveChecklistItem", ctx, mock.AnythingOfType("*domain.ChecklistItem")).Return(nil).Once()

	updated, err := svc.UpdateChecklistItem(ctx, 10, 3, 1, nil, boolPtr(true))

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindChecklistToggle, events[0].Kind)
}

func TestNoteService_UpdateChecklistItem_TextOnlyNoToggleEvent(t *testing.T) {
	mockNoteRepo := new(mocks.NoteRepository)
	mockShareRepo := new(mocks.ShareRepository)
	sink := &recordingSink{}
	svc := service.NewNoteService(mockNoteRepo, mockShareRepo, sink)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1, NoteType: domain.NoteTypeChecklist}
	item := &domain.ChecklistItem{ID: 3, NoteID: 10, Text: "milk"}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockNoteRepo.On("FindChecklistItem", ctx, uint(10), uint(3)).Return(item, nil).Once()
	mockNoteRepo.On("SaveChecklistItem", ctx, mock.AnythingOfType("*domain.ChecklistItem")).Return(nil).Once()

	updated, err := svc.UpdateChecklistItem(ctx, 10, 3, 1, strPtr("oat milk"), nil)

	require.NoError(t, err)
	assert.Equal(t, "oat milk", updated.Text)
	assert.Empty(t, sink.recorded(), "纯文本修改不发 toggle 事件")
}
