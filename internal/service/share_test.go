package service_test

import (
	"context"
	"errors"
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

func newShareService(t *testing.T) (*service.ShareService, *mocks.ShareRepository, *mocks.NoteRepository, *mocks.UserRepository, *recordingSink) {
	t.Helper()
	mockShareRepo := new(mocks.ShareRepository)
	mockNoteRepo := new(mocks.NoteRepository)
	mockUserRepo := new(mocks.UserRepository)
	sink := &recordingSink{}
	svc := service.NewShareService(mockShareRepo, mockNoteRepo, mockUserRepo, sink)
	return svc, mockShareRepo, mockNoteRepo, mockUserRepo, sink
}

func TestShareService_Share_Success(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, mockUserRepo, sink := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	recipient := &domain.User{ID: 2, Username: "roommate"}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockUserRepo.On("FindByUsername", ctx, "roommate").Return(recipient, nil).Once()
	mockShareRepo.On("Save", ctx, mock.MatchedBy(func(s *domain.SharedNote) bool {
		return s.NoteID == 10 && s.UserID == 2 && s.AccessLevel == domain.AccessEdit
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.SharedNote).ID = 100
	}).Return(nil).Once()

	share, err := svc.Share(ctx, 10, 1, "roommate", domain.AccessEdit)

	require.NoError(t, err)
	assert.Equal(t, uint(100), share.ID)
	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindNoteShared, events[0].Kind)
	assert.Equal(t, uint(10), events[0].Room)
	mockShareRepo.AssertExpectations(t)
}

func TestShareService_Share_DuplicateRejected(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, mockUserRepo, sink := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	recipient := &domain.User{ID: 2, Username: "roommate"}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockUserRepo.On("FindByUsername", ctx, "roommate").Return(recipient, nil).Once()
	mockShareRepo.On("Save", ctx, mock.AnythingOfType("*domain.SharedNote")).
		Return(repository.ErrDuplicateEntry).Once()

	_, err := svc.Share(ctx, 10, 1, "roommate", domain.AccessRead)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrDuplicateShare))
	assert.Empty(t, sink.recorded())
}

func TestShareService_Share_RecipientCannotReshare(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, _, _ := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	share := &domain.SharedNote{ID: 100, NoteID: 10, UserID: 2, AccessLevel: domain.AccessEdit}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(2)).Return(share, nil).Once()

	// edit 级别的接收者也不能再共享
	_, err := svc.Share(ctx, 10, 2, "someone", domain.AccessRead)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrForbiddenInsufficientLevel))
	mockShareRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestShareService_Share_WithSelfRejected(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, mockUserRepo, _ := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	owner := &domain.User{ID: 1, Username: "me"}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockUserRepo.On("FindByUsername", ctx, "me").Return(owner, nil).Once()

	_, err := svc.Share(ctx, 10, 1, "me", domain.AccessRead)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrShareWithSelf))
	mockShareRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestShareService_Share_InvalidAccessLevel(t *testing.T) {
	svc, _, mockNoteRepo, _, _ := newShareService(t)

	_, err := svc.Share(context.Background(), 10, 1, "roommate", "admin")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidAccessLevel))
	mockNoteRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestShareService_Unshare_Success(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, _, sink := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	share := &domain.SharedNote{ID: 100, NoteID: 10, UserID: 2}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByID", ctx, uint(100)).Return(share, nil).Once()
	mockShareRepo.On("Delete", ctx, uint(100)).Return(nil).Once()

	err := svc.Unshare(ctx, 10, 100, 1)

	require.NoError(t, err)
	events := sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindNoteUnshared, events[0].Kind)
	mockShareRepo.AssertExpectations(t)
}

func TestShareService_Unshare_ShareFromDifferentNote(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, _, _ := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	// share 记录存在但挂在另一条笔记上
	share := &domain.SharedNote{ID: 100, NoteID: 99, UserID: 2}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByID", ctx, uint(100)).Return(share, nil).Once()

	err := svc.Unshare(ctx, 10, 100, 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrShareNotFound))
	mockShareRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestShareService_ToggleHidden_RecipientOnlyNoBroadcast(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, _, sink := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	share := &domain.SharedNote{ID: 100, NoteID: 10, UserID: 2, AccessLevel: domain.AccessRead}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()
	mockShareRepo.On("FindByNoteAndUser", ctx, uint(10), uint(2)).Return(share, nil).Once()
	mockShareRepo.On("SetHidden", ctx, uint(100), true).Return(nil).Once()

	err := svc.ToggleHidden(ctx, 10, 2, true)

	require.NoError(t, err)
	// 隐藏是接收者的私有视图状态，其他人不应感知
	assert.Empty(t, sink.recorded(), "隐藏切换不应广播事件")
	mockShareRepo.AssertExpectations(t)
}

func TestShareService_ToggleHidden_OwnerRejected(t *testing.T) {
	svc, mockShareRepo, mockNoteRepo, _, _ := newShareService(t)
	ctx := context.Background()

	note := &domain.Note{ID: 10, UserID: 1}
	mockNoteRepo.On("FindByID", ctx, uint(10)).Return(note, nil).Once()

	// 所有者没有共享记录，隐藏对他无意义
	err := svc.ToggleHidden(ctx, 10, 1, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrForbiddenNotRecipient))
	mockShareRepo.AssertNotCalled(t, "SetHidden", mock.Anything, mock.Anything, mock.Anything)
}
