package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/event"
	"github.com/Sc00tz/FridgeNotes/internal/permission"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// ShareService 负责共享关系的建立、撤销和接收者侧的隐藏标记。
type ShareService struct {
	shareRepo repository.ShareRepository
	noteRepo  repository.NoteRepository
	userRepo  repository.UserRepository
	sink      event.Sink
}

// NewShareService 创建 ShareService 实例。
func NewShareService(shareRepo repository.ShareRepository, noteRepo repository.NoteRepository, userRepo repository.UserRepository, sink event.Sink) *ShareService {
	if shareRepo == nil || noteRepo == nil || userRepo == nil {
		panic("all repositories must be non-nil for ShareService")
	}
	if sink == nil {
		sink = event.NopSink{}
	}
	return &ShareService{
		shareRepo: shareRepo,
		noteRepo:  noteRepo,
		userRepo:  userRepo,
		sink:      sink,
	}
}

// Share 把笔记共享给 username 指定的用户，只有所有者可以发起。
// 同一 (笔记, 接收者) 只能有一条共享记录。
func (s *ShareService) Share(ctx context.Context, noteID, actorID uint, username, accessLevel string) (*domain.SharedNote, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"note_id":  noteID,
		"user_id":  actorID,
		"username": username,
	})

	if !domain.IsValidAccessLevel(accessLevel) {
		return nil, ErrInvalidAccessLevel
	}

	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return nil, err
	}
	if dec := permission.Check(actorID, note, share, permission.OpReshare); !dec.Allowed {
		logCtx.WithField("reason", dec.Reason).Warn("Share denied")
		return nil, mapDenyReason(dec.Reason)
	}

	recipient, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to look up share recipient")
		return nil, ErrInternalServer
	}
	if recipient.ID == note.UserID {
		return nil, ErrShareWithSelf
	}

	newShare := &domain.SharedNote{
		NoteID:      noteID,
		UserID:      recipient.ID,
		AccessLevel: accessLevel,
	}
	if err := s.shareRepo.Save(ctx, newShare); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateShare
		}
		logCtx.WithError(err).Error("Failed to save share record")
		return nil, ErrInternalServer
	}
	newShare.User = recipient

	logCtx.WithFields(logrus.Fields{
		"recipient_id": recipient.ID,
		"access_level": accessLevel,
	}).Info("Note shared")
	s.sink.Publish(event.Event{
		Room: noteID,
		Kind: event.KindNoteShared,
		Data: map[string]interface{}{
			"note_id":      noteID,
			"shared_with":  recipient.ID,
			"access_level": accessLevel,
		},
	})
	return newShare, nil
}

// Unshare 撤销一条共享，只有笔记所有者可以执行。
func (s *ShareService) Unshare(ctx context.Context, noteID, shareID, actorID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"note_id":  noteID,
		"share_id": shareID,
		"user_id":  actorID,
	})

	note, actorShare, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return err
	}
	if dec := permission.Check(actorID, note, actorShare, permission.OpReshare); !dec.Allowed {
		logCtx.WithField("reason", dec.Reason).Warn("Unshare denied")
		return mapDenyReason(dec.Reason)
	}

	share, err := s.shareRepo.FindByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrShareNotFound
		}
		logCtx.WithError(err).Error("Failed to load share record")
		return ErrInternalServer
	}
	if share.NoteID != noteID {
		return ErrShareNotFound
	}

	if err := s.shareRepo.Delete(ctx, shareID); err != nil {
		logCtx.WithError(err).Error("Failed to delete share record")
		return ErrInternalServer
	}

	logCtx.WithField("recipient_id", share.UserID).Info("Share revoked")
	s.sink.Publish(event.Event{
		Room: noteID,
		Kind: event.KindNoteUnshared,
		Data: map[string]interface{}{
			"note_id":     noteID,
			"unshared_id": share.UserID,
		},
	})
	return nil
}

// ToggleHidden 设置接收者自己的隐藏标记。
// 只影响该接收者的列表视图，不广播事件，其他人感知不到。
func (s *ShareService) ToggleHidden(ctx context.Context, noteID, actorID uint, hidden bool) error {
	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return err
	}
	if dec := permission.Check(actorID, note, share, permission.OpToggleHidden); !dec.Allowed {
		return mapDenyReason(dec.Reason)
	}

	if err := s.shareRepo.SetHidden(ctx, share.ID, hidden); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrShareNotFound
		}
		logrus.WithError(err).WithField("share_id", share.ID).Error("Failed to set hidden flag")
		return ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{
		"note_id": noteID,
		"user_id": actorID,
		"hidden":  hidden,
	}).Info("Share hidden flag changed")
	return nil
}

// ListShares 列出笔记的全部共享记录，要求 read 权限。
func (s *ShareService) ListShares(ctx context.Context, noteID, actorID uint) ([]domain.SharedNoteView, error) {
	note, share, err := s.loadNoteWithShare(ctx, noteID, actorID)
	if err != nil {
		return nil, err
	}
	if dec := permission.Check(actorID, note, share, permission.OpRead); !dec.Allowed {
		return nil, mapDenyReason(dec.Reason)
	}

	shares, err := s.shareRepo.FindByNote(ctx, noteID)
	if err != nil {
		logrus.WithError(err).WithField("note_id", noteID).Error("Failed to list shares")
		return nil, ErrInternalServer
	}

	views := make([]domain.SharedNoteView, 0, len(shares))
	for i := range shares {
		views = append(views, shares[i].ToView(shares[i].User))
	}
	return views, nil
}

// loadNoteWithShare 与 NoteService 中的同名方法语义一致。
func (s *ShareService) loadNoteWithShare(ctx context.Context, noteID, actorID uint) (*domain.Note, *domain.SharedNote, error) {
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
