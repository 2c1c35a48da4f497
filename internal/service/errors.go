package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrNoteNotFound         = errors.New("note not found")
	ErrShareNotFound        = errors.New("share not found")
	ErrItemNotFound         = errors.New("checklist item not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInternalServer       = errors.New("internal server error")

	// 权限拒绝，按求值器的原因分类
	ErrForbiddenNoGrant           = errors.New("access denied")
	ErrForbiddenInsufficientLevel = errors.New("access denied - edit permission required")
	ErrForbiddenNotRecipient      = errors.New("access denied - you can only hide notes shared with you")
	// ErrDeleteSharedNote 区分"完全无权限"和"有访问权但只有所有者能删除"
	ErrDeleteSharedNote = errors.New(`cannot delete shared notes - only the owner can delete, use "hide from my view" instead`)
	ErrDeleteNotOwner   = errors.New("access denied - only the owner can delete this note")

	// 输入校验和冲突
	ErrInvalidNoteType   = errors.New("note type must be 'text' or 'checklist'")
	ErrInvalidAccessLevel = errors.New("access level must be 'read' or 'edit'")
	ErrEmptyReorderList  = errors.New("no note ids provided for reorder")
	ErrReorderNotOwned   = errors.New("some notes not found or access denied")
	ErrDuplicateShare    = errors.New("note already shared with this user")
	ErrShareWithSelf     = errors.New("cannot share a note with yourself")
	ErrInvalidReminder   = errors.New("invalid reminder timestamp format")
)
