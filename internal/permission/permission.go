// Package permission 实现笔记访问权限的纯函数求值。
// 不做任何 IO，调用方负责提供笔记和对应的共享记录。
package permission

import "github.com/Sc00tz/FridgeNotes/internal/domain"

// Op 是请求的操作类型。
type Op string

const (
	OpRead            Op = "read"
	OpEditFields      Op = "edit_fields"       // 修改任意字段 (含归档)
	OpEditArchiveOnly Op = "edit_archive_only" // 仅修改归档标记
	OpDelete          Op = "delete"
	OpReshare         Op = "reshare"
	OpToggleHidden    Op = "toggle_hidden"
)

// Reason 是拒绝原因的分类。
type Reason string

const (
	ReasonAllowed Reason = "allowed"

	// ReasonNoGrant 请求者既不是所有者也没有共享授权。
	ReasonNoGrant Reason = "forbidden_no_grant"
	// ReasonInsufficientLevel 有授权但级别不足以执行该操作。
	ReasonInsufficientLevel Reason = "forbidden_insufficient_level"
	// ReasonNotRecipient 操作只允许共享记录中的接收者执行。
	ReasonNotRecipient Reason = "forbidden_not_recipient"
	// ReasonOwnerOnlyDelete 请求者有访问权但删除只允许所有者，
	// 应引导其使用"从我的视图隐藏"。
	ReasonOwnerOnlyDelete Reason = "forbidden_owner_only_delete"
)

// Decision 是求值结果。
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func deny(r Reason) Decision {
	return Decision{Allowed: false, Reason: r}
}

// Check 判定 actorID 是否可以对 note 执行 op。
// share 是 (note, actor) 对应的共享记录，没有则传 nil。
//
// 规则:
//   - 所有者可以执行除 toggle_hidden 外的任何操作 (隐藏标记只对接收者有意义)。
//   - edit 级别接收者可以 read 和 edit_fields，不能 delete 和 reshare。
//   - read 级别接收者可以 read 和 edit_archive_only。
//   - toggle_hidden 只允许共享记录中的接收者本人。
//   - delete 只允许所有者；持有授权的其他人得到区分于"无权限"的拒绝原因。
func Check(actorID uint, note *domain.Note, share *domain.SharedNote, op Op) Decision {
	if note == nil {
		return deny(ReasonNoGrant)
	}

	if note.UserID == actorID {
		if op == OpToggleHidden {
			return deny(ReasonNotRecipient)
		}
		return allow()
	}

	// 非所有者必须持有针对自己的共享记录
	if share == nil || share.NoteID != note.ID || share.UserID != actorID {
		return deny(ReasonNoGrant)
	}

	switch op {
	case OpRead, OpEditArchiveOnly:
		// 任意级别的接收者都可以读，以及归档/取消归档
		return allow()
	case OpEditFields:
		if share.AccessLevel == domain.AccessEdit {
			return allow()
		}
		return deny(ReasonInsufficientLevel)
	case OpToggleHidden:
		return allow()
	case OpDelete:
		return deny(ReasonOwnerOnlyDelete)
	case OpReshare:
		return deny(ReasonInsufficientLevel)
	default:
		return deny(ReasonNoGrant)
	}
}
