package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示插入或更新违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrPartialOwnership 表示批量操作引用了不属于操作者的记录，
	// 整个操作被拒绝且未产生任何变更
	ErrPartialOwnership = errors.New("repository: some records not owned by actor")
)

// 特定资源的错误 (基于通用错误创建，便于 errors.Is 判断)
var (
	ErrUserNotFound          = ErrNotFound
	ErrNoteNotFound          = ErrNotFound
	ErrShareNotFound         = ErrNotFound
	ErrChecklistItemNotFound = ErrNotFound
)
