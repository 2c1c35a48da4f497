package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// NoteHandler 封装笔记相关的 HTTP 处理逻辑。
type NoteHandler struct {
	noteService *service.NoteService
}

// NewNoteHandler 创建 NoteHandler 实例。
func NewNoteHandler(noteService *service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// List 返回当前用户可见的全部笔记 (自己的 + 共享且未隐藏的)。
func (h *NoteHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	views, err := h.noteService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, views)
}

// ListHidden 返回当前用户隐藏掉的共享笔记。
func (h *NoteHandler) ListHidden(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	views, err := h.noteService.ListHidden(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, views)
}

// Get 返回单条笔记。
func (h *NoteHandler) Get(c *gin.Context) {
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

	note, err := h.noteService.Get(c.Request.Context(), noteID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, note.ToView(userID))
}

// Create 创建新笔记。
func (h *NoteHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req service.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateNote: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	note, err := h.noteService.Create(c.Request.Context(), userID, req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, note.ToView(userID))
}

// Update 更新笔记，部分更新语义。
func (h *NoteHandler) Update(c *gin.Context) {
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

	var req service.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.UpdateNote: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	note, err := h.noteService.Update(c.Request.Context(), noteID, userID, req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, note.ToView(userID))
}

// Delete 删除笔记，只有所有者可以执行。
func (h *NoteHandler) Delete(c *gin.Context) {
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

	if err := h.noteService.Delete(c.Request.Context(), noteID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Note deleted"})
}

// ReorderRequest 定义重排请求的结构。
type ReorderRequest struct {
	NoteIDs []uint `json:"note_ids" binding:"required"`
}

// Reorder 按请求给出的顺序重排当前用户的笔记。
func (h *NoteHandler) Reorder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.ReorderNotes: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: note_ids required")
		return
	}

	if err := h.noteService.Reorder(c.Request.Context(), userID, req.NoteIDs); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Notes reordered"})
}

// PinRequest 定义置顶请求的结构。
type PinRequest struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

// TogglePin 切换笔记的置顶状态。
func (h *NoteHandler) TogglePin(c *gin.Context) {
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

	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: pinned required")
		return
	}

	note, err := h.noteService.TogglePin(c.Request.Context(), noteID, userID, *req.Pinned)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, note.ToView(userID))
}

// ChecklistItemUpdateRequest 定义清单条目更新请求的结构。
type ChecklistItemUpdateRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// UpdateChecklistItem 更新单个清单条目。
func (h *NoteHandler) UpdateChecklistItem(c *gin.Context) {
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
	itemID, ok := parseUintParam(c, "itemId")
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "invalid checklist item id")
		return
	}

	var req ChecklistItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.Text == nil && req.Completed == nil {
		ErrorResponse(c, http.StatusBadRequest, "nothing to update")
		return
	}

	item, err := h.noteService.UpdateChecklistItem(c.Request.Context(), noteID, itemID, userID, req.Text, req.Completed)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, item.ToView())
}
