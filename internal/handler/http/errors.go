package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// HandleServiceError 把服务层的业务错误映射为 HTTP 状态码。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoteNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrShareNotFound),
		errors.Is(err, service.ErrItemNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbiddenNoGrant),
		errors.Is(err, service.ErrForbiddenInsufficientLevel),
		errors.Is(err, service.ErrForbiddenNotRecipient),
		errors.Is(err, service.ErrDeleteSharedNote),
		errors.Is(err, service.ErrDeleteNotOwner),
		errors.Is(err, service.ErrReorderNotOwned):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidNoteType),
		errors.Is(err, service.ErrInvalidAccessLevel),
		errors.Is(err, service.ErrEmptyReorderList),
		errors.Is(err, service.ErrInvalidReminder),
		errors.Is(err, service.ErrShareWithSelf):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateShare):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
