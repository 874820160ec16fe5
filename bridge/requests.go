package bridge

import (
	"errors"
	"fmt"
	"time"

	"cqbridge/adapters"
	"cqbridge/bridge/types"
	"cqbridge/cache"
)

// 请求处置。处置码沿用旧 ABI 的数值约定，按请求变体解释：
// 入群申请 1=同意 2=拒绝 3=忽略；入群邀请 1=同意 2=忽略（没有拒绝）；
// 好友请求 1=同意 2=拒绝。未知或已处置的请求号是干净的空操作。

// 入群请求的变体编码
const (
	GroupRequestKindApplication int32 = 1
	GroupRequestKindInvite      int32 = 2
)

// SetFriendAddRequest 处置好友请求，remark 是通过后设置的备注
func (b *Bridge) SetFriendAddRequest(pluginID int32, token string, disposition int32, remark string) int32 {
	return call(b, pluginID, 0, "resolve friend request failed", func() (int32, error) {
		var state cache.RequestState
		switch disposition {
		case 1:
			state = cache.StateAccepted
		case 2:
			state = cache.StateRejected
		default:
			return 0, fmt.Errorf("friend request: bad disposition %d", disposition)
		}

		_, err := b.events.Resolve(token, state)
		if err != nil {
			b.noteResolveMiss("friend", token, err)
			return 0, nil
		}

		b.sched.submitSession(func() error {
			_, err := b.session.FriendRequestResolve(&adapters.FriendRequestResolveRequest{
				Token:  token,
				Accept: disposition == 1,
				Remark: remark,
			})
			if err != nil {
				return fmt.Errorf("resolve friend request %s: %w", token, err)
			}
			return nil
		})
		return 0, nil
	})
}

// SetGroupAddRequest 处置入群申请或邀请。同意入群申请时向插件侧
// 合成一条成员加入通知，恰好一条，以处置成功为准。
func (b *Bridge) SetGroupAddRequest(pluginID int32, token string, reqKind int32, disposition int32, reason string) int32 {
	return call(b, pluginID, 0, "resolve group request failed", func() (int32, error) {
		state, op, err := mapGroupDisposition(reqKind, disposition)
		if err != nil {
			return 0, err
		}

		evt, err := b.events.Resolve(token, state)
		if err != nil {
			b.noteResolveMiss("group", token, err)
			return 0, nil
		}

		b.sched.submitSession(func() error {
			_, err := b.session.GroupRequestResolve(&adapters.GroupRequestResolveRequest{
				Token:  token,
				Invite: reqKind == GroupRequestKindInvite,
				Op:     op,
				Reason: reason,
			})
			if err != nil {
				return fmt.Errorf("resolve group request %s: %w", token, err)
			}
			return nil
		})

		if reqKind == GroupRequestKindApplication && state == cache.StateAccepted {
			b.emitMemberJoined(&types.MemberJoinedEvent{
				Reason:  types.MemberJoinPermitted,
				Time:    time.Now().Unix(),
				GroupID: evt.GroupID,
				UserID:  evt.UserID,
			})
		}
		return 0, nil
	})
}

func mapGroupDisposition(reqKind, disposition int32) (cache.RequestState, adapters.GroupRequestOp, error) {
	switch reqKind {
	case GroupRequestKindApplication:
		switch disposition {
		case 1:
			return cache.StateAccepted, adapters.GroupRequestAccept, nil
		case 2:
			return cache.StateRejected, adapters.GroupRequestReject, nil
		case 3:
			return cache.StateIgnored, adapters.GroupRequestIgnore, nil
		}
	case GroupRequestKindInvite:
		switch disposition {
		case 1:
			return cache.StateAccepted, adapters.GroupRequestAccept, nil
		case 2:
			return cache.StateIgnored, adapters.GroupRequestIgnore, nil
		}
	}
	return 0, 0, fmt.Errorf("group request: bad kind/disposition %d/%d", reqKind, disposition)
}

// noteResolveMiss 把处置失败降级为日志。重复处置和未知请求号不能
// 打断其他处理，变体不支持的处置同样只记录。
func (b *Bridge) noteResolveMiss(kind, token string, err error) {
	switch {
	case errors.Is(err, cache.ErrAlreadyResolved):
		b.log.Infof("%s request %s already resolved, ignoring", kind, token)
	case errors.Is(err, cache.ErrUnknownRequest):
		b.log.Infof("%s request %s unknown or expired, ignoring", kind, token)
	default:
		b.log.Warnf("%s request %s: %v", kind, token, err)
	}
}
