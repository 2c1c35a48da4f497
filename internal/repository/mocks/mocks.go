// Package mocks 提供 repository 接口的 testify mock 实现，供服务层测试使用。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
)

// NoteRepository 是 repository.NoteRepository 的 mock。
type NoteRepository struct {
	mock.Mock
}

func (m *NoteRepository) FindByID(ctx context.Context, id uint) (*domain.Note, error) {
	args := m.Called(ctx, id)
	if n := args.Get(0); n != nil {
		return n.(*domain.Note), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Note, error) {
	args := m.Called(ctx, ownerID)
	if n := args.Get(0); n != nil {
		return n.([]domain.Note), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) FindSharedWith(ctx context.Context, userID uint, hidden bool) ([]domain.Note, error) {
	args := m.Called(ctx, userID, hidden)
	if n := args.Get(0); n != nil {
		return n.([]domain.Note), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) Save(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *NoteRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NoteRepository) ReplaceChecklistItems(ctx context.Context, noteID uint, items []domain.ChecklistItem) error {
	args := m.Called(ctx, noteID, items)
	return args.Error(0)
}

func (m *NoteRepository) FindChecklistItem(ctx context.Context, noteID, itemID uint) (*domain.ChecklistItem, error) {
	args := m.Called(ctx, noteID, itemID)
	if n := args.Get(0); n != nil {
		return n.(*domain.ChecklistItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NoteRepository) SaveChecklistItem(ctx context.Context, item *domain.ChecklistItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *NoteRepository) MaxPosition(ctx context.Context, ownerID uint) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *NoteRepository) ReorderOwned(ctx context.Context, ownerID uint, noteIDs []uint) error {
	args := m.Called(ctx, ownerID, noteIDs)
	return args.Error(0)
}

func (m *NoteRepository) FindDueReminders(ctx context.Context, now time.Time) ([]domain.Note, error) {
	args := m.Called(ctx, now)
	if n := args.Get(0); n != nil {
		return n.([]domain.Note), args.Error(1)
	}
	return nil, args.Error(1)
}

// ShareRepository 是 repository.ShareRepository 的 mock。
type ShareRepository struct {
	mock.Mock
}

func (m *ShareRepository) FindByID(ctx context.Context, id uint) (*domain.SharedNote, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*domain.SharedNote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ShareRepository) FindByNote(ctx context.Context, noteID uint) ([]domain.SharedNote, error) {
	args := m.Called(ctx, noteID)
	if s := args.Get(0); s != nil {
		return s.([]domain.SharedNote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ShareRepository) FindByNoteAndUser(ctx context.Context, noteID, userID uint) (*domain.SharedNote, error) {
	args := m.Called(ctx, noteID, userID)
	if s := args.Get(0); s != nil {
		return s.(*domain.SharedNote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ShareRepository) Save(ctx context.Context, share *domain.SharedNote) error {
	args := m.Called(ctx, share)
	return args.Error(0)
}

func (m *ShareRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ShareRepository) SetHidden(ctx context.Context, id uint, hidden bool) error {
	args := m.Called(ctx, id, hidden)
	return args.Error(0)
}

// UserRepository 是 repository.UserRepository 的 mock。
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// PresenceRepository 是 repository.PresenceRepository 的 mock。
type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) AddToRoom(ctx context.Context, noteID uint, sessionID string, userID uint) error {
	args := m.Called(ctx, noteID, sessionID, userID)
	return args.Error(0)
}

func (m *PresenceRepository) RemoveFromRoom(ctx context.Context, noteID uint, sessionID string) error {
	args := m.Called(ctx, noteID, sessionID)
	return args.Error(0)
}

func (m *PresenceRepository) RoomMembers(ctx context.Context, noteID uint) (map[string]uint, error) {
	args := m.Called(ctx, noteID)
	if r := args.Get(0); r != nil {
		return r.(map[string]uint), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PresenceRepository) CleanupRoom(ctx context.Context, noteID uint) error {
	args := m.Called(ctx, noteID)
	return args.Error(0)
}

func (m *PresenceRepository) MarkReminderDelivered(ctx context.Context, noteID uint, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, noteID, ttl)
	return args.Bool(0), args.Error(1)
}
