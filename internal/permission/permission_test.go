package permission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/permission"
)

func TestCheck(t *testing.T) {
	const ownerID, recipientID, strangerID = 1, 2, 3

	note := &domain.Note{ID: 10, UserID: ownerID}
	readShare := &domain.SharedNote{ID: 100, NoteID: 10, UserID: recipientID, AccessLevel: domain.AccessRead}
	editShare := &domain.SharedNote{ID: 101, NoteID: 10, UserID: recipientID, AccessLevel: domain.AccessEdit}

	tests := []struct {
		name       string
		actorID    uint
		share      *domain.SharedNote
		op         permission.Op
		wantAllow  bool
		wantReason permission.Reason
	}{
		// 所有者
		{"所有者读取", ownerID, nil, permission.OpRead, true, permission.ReasonAllowed},
		{"所有者编辑", ownerID, nil, permission.OpEditFields, true, permission.ReasonAllowed},
		{"所有者删除", ownerID, nil, permission.OpDelete, true, permission.ReasonAllowed},
		{"所有者再共享", ownerID, nil, permission.OpReshare, true, permission.ReasonAllowed},
		// 隐藏标记只属于接收者，所有者不能操作
		{"所有者切换隐藏被拒", ownerID, nil, permission.OpToggleHidden, false, permission.ReasonNotRecipient},

		// read 级别接收者
		{"read接收者读取", recipientID, readShare, permission.OpRead, true, permission.ReasonAllowed},
		{"read接收者归档", recipientID, readShare, permission.OpEditArchiveOnly, true, permission.ReasonAllowed},
		{"read接收者编辑字段被拒", recipientID, readShare, permission.OpEditFields, false, permission.ReasonInsufficientLevel},
		{"read接收者切换隐藏", recipientID, readShare, permission.OpToggleHidden, true, permission.ReasonAllowed},
		{"read接收者删除被拒", recipientID, readShare, permission.OpDelete, false, permission.ReasonOwnerOnlyDelete},
		{"read接收者再共享被拒", recipientID, readShare, permission.OpReshare, false, permission.ReasonInsufficientLevel},

		// edit 级别接收者
		{"edit接收者编辑字段", recipientID, editShare, permission.OpEditFields, true, permission.ReasonAllowed},
		{"edit接收者归档", recipientID, editShare, permission.OpEditArchiveOnly, true, permission.ReasonAllowed},
		// edit 也挡不住删除和再共享
		{"edit接收者删除被拒", recipientID, editShare, permission.OpDelete, false, permission.ReasonOwnerOnlyDelete},
		{"edit接收者再共享被拒", recipientID, editShare, permission.OpReshare, false, permission.ReasonInsufficientLevel},

		// 无授权的第三方
		{"无授权读取被拒", strangerID, nil, permission.OpRead, false, permission.ReasonNoGrant},
		{"无授权编辑被拒", strangerID, nil, permission.OpEditFields, false, permission.ReasonNoGrant},
		{"无授权删除被拒", strangerID, nil, permission.OpDelete, false, permission.ReasonNoGrant},
		// 共享记录属于别人时等同于没有授权
		{"他人的共享记录不生效", strangerID, readShare, permission.OpRead, false, permission.ReasonNoGrant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := permission.Check(tt.actorID, note, tt.share, tt.op)
			assert.Equal(t, tt.wantAllow, dec.Allowed)
			assert.Equal(t, tt.wantReason, dec.Reason)
		})
	}
}
