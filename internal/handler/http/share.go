package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// ShareHandler 封装共享相关的 HTTP 处理逻辑。
type ShareHandler struct {
	shareService *service.ShareService
}

// NewShareHandler 创建 ShareHandler 实例。
func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// ShareRequest 定义共享请求的结构。
type ShareRequest struct {
	Username    string `json:"username" binding:"required"`
	AccessLevel string `json:"access_level" binding:"required"`
}

// Share 把笔记共享给按用户名指定的用户。
func (h *ShareHandler) Share(c *gin.Context) {
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

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Share: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: username and access_level required")
		return
	}

	share, err := h.shareService.Share(c.Request.Context(), noteID, userID, req.Username, req.AccessLevel)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, share.ToView(share.User))
}

// ListShares 列出笔记的共享记录。
func (h *ShareHandler) ListShares(c *gin.Context) {
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

	views, err := h.shareService.ListShares(c.Request.Context(), noteID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, views)
}

// Unshare 撤销一条共享。
func (h *ShareHandler) Unshare(c *gin.Context) {
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
	shareID, ok := parseUintParam(c, "shareId")
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "invalid share id")
		return
	}

	if err := h.shareService.Unshare(c.Request.Context(), noteID, shareID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Share revoked"})
}

// HideRequest 定义隐藏请求的结构。
type HideRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// ToggleHidden 设置当前用户对某共享笔记的隐藏标记。
func (h *ShareHandler) ToggleHidden(c *gin.Context) {
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

	var req HideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: hidden required")
		return
	}

	if err := h.shareService.ToggleHidden(c.Request.Context(), noteID, userID, *req.Hidden); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Hidden flag updated"})
}
