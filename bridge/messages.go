package bridge

import (
	"fmt"

	"github.com/samber/lo"

	"cqbridge/adapters"
	"cqbridge/bridge/types"
)

// 消息类发送都是"先领号、后异步执行"：同步返回操作号，
// 发送确认后把持久引用写回结果缓存，供之后引用或转发。

// SendPrivateMessage 向单个账号发消息，返回操作号。
// 联系人解析要打网络查询，放进异步任务里做，调用方立刻拿到操作号。
func (b *Bridge) SendPrivateMessage(pluginID int32, accountID int64, text string) int32 {
	return call(b, pluginID, 0, "send private message failed", func() (int32, error) {
		opID := b.ledger.NextID()
		segments := types.MessageSegments{&types.TextElement{Content: text}}
		b.sched.submitSession(func() error {
			if err := b.resolveContact(accountID); err != nil {
				return err
			}
			ref, err := b.session.MsgSendToPerson(&adapters.MessageSendRequest{
				TargetID: accountID,
				Segments: segments,
			})
			if err != nil {
				return fmt.Errorf("send private message to %d: %w", accountID, err)
			}
			b.ledger.RecordResult(opID, ref)
			return nil
		})
		return opID, nil
	})
}

// SendGroupMessage 向群发消息，返回操作号
func (b *Bridge) SendGroupMessage(pluginID int32, groupID int64, text string) int32 {
	return call(b, pluginID, 0, "send group message failed", func() (int32, error) {
		opID := b.ledger.NextID()
		segments := types.MessageSegments{&types.TextElement{Content: text}}
		b.sched.submitSession(func() error {
			ref, err := b.session.MsgSendToGroup(&adapters.MessageSendRequest{
				TargetID: groupID,
				Segments: segments,
			})
			if err != nil {
				return fmt.Errorf("send group message to %d: %w", groupID, err)
			}
			b.ledger.RecordResult(opID, ref)
			return nil
		})
		return opID, nil
	})
}

// QuoteMessage 带引用地回复此前某次发送/接收的消息。
// 源消息在结果缓存里查不到（未完成、已逐出或从未存在）时，
// 整次发送静默跳过，引用只是尽力而为的装饰。
func (b *Bridge) QuoteMessage(pluginID int32, messageOpID int32, text string) int32 {
	return call(b, pluginID, 0, "quote message failed", func() (int32, error) {
		opID := b.ledger.NextID()
		src, ok := b.ledger.Result(messageOpID)
		if !ok {
			b.log.Debugf("quote source %d not cached, skipping", messageOpID)
			return opID, nil
		}
		segments := types.MessageSegments{
			&types.ReplyElement{ReplySeq: src.RawID, Sender: src.SenderID, GroupID: src.TargetID},
			&types.TextElement{Content: text},
		}
		b.sched.submitSession(func() error {
			req := &adapters.MessageSendRequest{TargetID: src.TargetID, Segments: segments}
			var (
				ref *types.MessageRef
				err error
			)
			if src.Scene == types.SceneGroup {
				ref, err = b.session.MsgSendToGroup(req)
			} else {
				ref, err = b.session.MsgSendToPerson(req)
			}
			if err != nil {
				return fmt.Errorf("quote message %d: %w", messageOpID, err)
			}
			b.ledger.RecordResult(opID, ref)
			return nil
		})
		return opID, nil
	})
}

// 转发目标的类别编码
const (
	ForwardToPerson int32 = 0
	ForwardToGroup  int32 = 1
)

// ForwardMessage 把此前缓存的一条消息原样转投到另一目标。
// strategy 是插件侧的转发策略串，当前运行时不区分，仅记录。
func (b *Bridge) ForwardMessage(pluginID int32, kind int32, destinationID int64, strategy string, messageOpID int32) int32 {
	return call(b, pluginID, 0, "forward message failed", func() (int32, error) {
		opID := b.ledger.NextID()
		src, ok := b.ledger.Result(messageOpID)
		if !ok {
			b.log.Debugf("forward source %d not cached, skipping", messageOpID)
			return opID, nil
		}
		if strategy != "" {
			b.log.Debugf("forward strategy %q ignored", strategy)
		}
		segments := src.Segments
		b.sched.submitSession(func() error {
			req := &adapters.MessageSendRequest{TargetID: destinationID, Segments: segments}
			var (
				ref *types.MessageRef
				err error
			)
			if kind == ForwardToGroup {
				ref, err = b.session.MsgSendToGroup(req)
			} else {
				ref, err = b.session.MsgSendToPerson(req)
			}
			if err != nil {
				return fmt.Errorf("forward message %d to %d: %w", messageOpID, destinationID, err)
			}
			b.ledger.RecordResult(opID, ref)
			return nil
		})
		return opID, nil
	})
}

// resolveContact 确认私聊目标可达：先查好友列表，再查见过的
// 群成员缓存，最后兜底扫描已知群的成员列表并顺手充入缓存。
func (b *Bridge) resolveContact(accountID int64) error {
	friends, err := b.session.FriendList()
	if err == nil {
		_, found := lo.Find(friends, func(f *types.FriendInfo) bool {
			return f.ID == accountID
		})
		if found {
			return nil
		}
	}

	if _, ok := b.ledger.FindMember(accountID); ok {
		return nil
	}

	groups, err := b.session.GroupList()
	if err != nil {
		return fmt.Errorf("resolve contact %d: %w", accountID, err)
	}
	for _, g := range groups {
		members, err := b.session.GroupMemberList(g.ID)
		if err != nil {
			continue
		}
		for _, m := range members {
			b.ledger.CacheMember(m)
		}
		if _, found := lo.Find(members, func(m *types.MemberInfo) bool {
			return m.ID == accountID
		}); found {
			return nil
		}
	}
	return fmt.Errorf("contact %d not found in friends or known groups", accountID)
}
