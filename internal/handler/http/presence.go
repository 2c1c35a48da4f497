package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/repository"
	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// PresenceHandler 提供笔记房间当前在线成员的查询。
// 前端用它渲染"正在查看"指示器。
type PresenceHandler struct {
	noteService  *service.NoteService
	presenceRepo repository.PresenceRepository
}

// NewPresenceHandler 创建 PresenceHandler 实例。
func NewPresenceHandler(noteService *service.NoteService, presenceRepo repository.PresenceRepository) *PresenceHandler {
	return &PresenceHandler{noteService: noteService, presenceRepo: presenceRepo}
}

// RoomPresence 返回当前订阅该笔记房间的用户 ID 列表 (去重)。
func (h *PresenceHandler) RoomPresence(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}
	noteID, ok := parseUintParam(c, "id")
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "invalid note id")
		return
	}

	// 在线列表和房间订阅遵循同一条可见性规则
	if err := h.noteService.CanJoinRoom(c.Request.Context(), userID, noteID); err != nil {
		HandleServiceError(c, err)
		return
	}

	members, err := h.presenceRepo.RoomMembers(c.Request.Context(), noteID)
	if err != nil {
		logrus.WithError(err).WithField("note_id", noteID).Error("Failed to load room presence")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	seen := make(map[uint]bool, len(members))
	userIDs := make([]uint, 0, len(members))
	for _, uid := range members {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		userIDs = append(userIDs, uid)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	SuccessResponse(c, http.StatusOK, gin.H{"note_id": noteID, "user_ids": userIDs})
}
