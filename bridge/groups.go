package bridge

import (
	"fmt"

	"cqbridge/adapters"
)

// 群管理操作。禁言/踢人/退群是排队后异步执行的，立即回 0，
// 失败只在日志里可见；名片/头衔/全员禁言是直接的属性写，同步完成。

// SetGroupBan 禁言群成员，duration 为 0 表示解除禁言而不是禁言零秒
func (b *Bridge) SetGroupBan(pluginID int32, groupID, userID, duration int64) int32 {
	return call(b, pluginID, 0, "group ban failed", func() (int32, error) {
		req := &adapters.GroupOperationBanRequest{GroupID: groupID, UserID: userID, Duration: duration}
		b.sched.submitSession(func() error {
			var err error
			if duration == 0 {
				_, err = b.session.GroupMemberUnban(req)
			} else {
				_, err = b.session.GroupMemberBan(req)
			}
			if err != nil {
				return fmt.Errorf("ban %d in group %d: %w", userID, groupID, err)
			}
			return nil
		})
		return 0, nil
	})
}

func (b *Bridge) SetGroupKick(pluginID int32, groupID, userID int64) int32 {
	return call(b, pluginID, 0, "group kick failed", func() (int32, error) {
		b.sched.submitSession(func() error {
			_, err := b.session.GroupMemberKick(&adapters.GroupOperationKickRequest{
				GroupID: groupID, UserID: userID,
			})
			if err != nil {
				return fmt.Errorf("kick %d from group %d: %w", userID, groupID, err)
			}
			return nil
		})
		return 0, nil
	})
}

func (b *Bridge) SetGroupLeave(pluginID int32, groupID int64) int32 {
	return call(b, pluginID, 0, "group leave failed", func() (int32, error) {
		b.sched.submitSession(func() error {
			_, err := b.session.GroupQuit(&adapters.GroupOperationQuitRequest{GroupID: groupID})
			if err != nil {
				return fmt.Errorf("leave group %d: %w", groupID, err)
			}
			return nil
		})
		return 0, nil
	})
}

// SetGroupCard 设置群名片，属性写，同步生效
func (b *Bridge) SetGroupCard(pluginID int32, groupID, userID int64, card string) int32 {
	return call(b, pluginID, 0, "set group card failed", func() (int32, error) {
		_, err := b.session.GroupCardNameSet(&adapters.GroupOperationCardNameSetRequest{
			GroupID: groupID, UserID: userID, Name: card,
		})
		return 0, err
	})
}

// SetGroupSpecialTitle 设置专属头衔，duration 为 -1 表示永久
func (b *Bridge) SetGroupSpecialTitle(pluginID int32, groupID, userID int64, title string, duration int64) int32 {
	return call(b, pluginID, 0, "set special title failed", func() (int32, error) {
		_, err := b.session.GroupSpecialTitleSet(&adapters.GroupOperationTitleSetRequest{
			GroupID: groupID, UserID: userID, Title: title, Duration: duration,
		})
		return 0, err
	})
}

// SetGroupWholeBan 全员禁言开关，群设置的直接写入
func (b *Bridge) SetGroupWholeBan(pluginID int32, groupID int64, enable bool) int32 {
	return call(b, pluginID, 0, "set whole ban failed", func() (int32, error) {
		_, err := b.session.GroupWholeBanSet(&adapters.GroupOperationWholeBanRequest{
			GroupID: groupID, Enable: enable,
		})
		return 0, err
	})
}
