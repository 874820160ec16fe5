package bridge

import (
	"os"

	"cqbridge/bridge/types"
	"cqbridge/packet"
	"cqbridge/plugin"
)

// 查询类操作同步执行，应答统一编码成二进制记录后以 base64 返回。
// 运行时拿不到的字段按固定占位值写入，字段按位置对齐不可省略。

// 群信息记录里的容量占位值，运行时不暴露真实上限
const groupCapacityPlaceholder = 1000

// GetLoginID 当前登录账号
func (b *Bridge) GetLoginID(pluginID int32) int64 {
	return call(b, pluginID, 0, "get login id failed", func() (int64, error) {
		return b.session.LoginID(), nil
	})
}

// GetLoginNick 当前登录昵称
func (b *Bridge) GetLoginNick(pluginID int32) string {
	return call(b, pluginID, "", "get login nick failed", func() (string, error) {
		return b.session.LoginNick(), nil
	})
}

// GetStrangerInfo 按账号查陌生人资料。没见过的账号返回空默认值，
// 不编造记录。性别与年龄运行时不提供，写 0。
func (b *Bridge) GetStrangerInfo(pluginID int32, accountID int64) string {
	return call(b, pluginID, "", "get stranger info failed", func() (string, error) {
		m, ok := b.ledger.FindMember(accountID)
		if !ok {
			return "", nil
		}
		var pkt packet.Builder
		pkt.WriteInt64(accountID)
		if err := pkt.WriteString(m.Nickname); err != nil {
			return "", err
		}
		pkt.WriteInt32(0) // 性别
		pkt.WriteInt32(0) // 年龄
		return pkt.Base64(), nil
	})
}

// GetFriendList 好友列表记录：数量 + 逐个带长度前缀的条目
func (b *Bridge) GetFriendList(pluginID int32) string {
	return call(b, pluginID, "", "get friend list failed", func() (string, error) {
		friends, err := b.session.FriendList()
		if err != nil {
			return "", err
		}
		var pkt packet.Builder
		err = pkt.WriteList(len(friends), func(i int, item *packet.Builder) error {
			f := friends[i]
			item.WriteInt64(f.ID)
			if err := item.WriteString(f.Nickname); err != nil {
				return err
			}
			return item.WriteString(f.Remark)
		})
		if err != nil {
			return "", err
		}
		return pkt.Base64(), nil
	})
}

// GetGroupInfo 单个群的信息。成员数要把机器人自己算进去。
func (b *Bridge) GetGroupInfo(pluginID int32, groupID int64) string {
	return call(b, pluginID, "", "get group info failed", func() (string, error) {
		g, err := b.session.GroupInfoGet(groupID)
		if err != nil {
			return "", err
		}
		var pkt packet.Builder
		pkt.WriteInt64(g.ID)
		if err := pkt.WriteString(g.Name); err != nil {
			return "", err
		}
		pkt.WriteInt32(int32(g.MemberCount) + 1)
		pkt.WriteInt32(groupCapacityPlaceholder)
		return pkt.Base64(), nil
	})
}

func (b *Bridge) GetGroupList(pluginID int32) string {
	return call(b, pluginID, "", "get group list failed", func() (string, error) {
		groups, err := b.session.GroupList()
		if err != nil {
			return "", err
		}
		var pkt packet.Builder
		err = pkt.WriteList(len(groups), func(i int, item *packet.Builder) error {
			item.WriteInt64(groups[i].ID)
			return item.WriteString(groups[i].Name)
		})
		if err != nil {
			return "", err
		}
		return pkt.Base64(), nil
	})
}

// GetGroupMemberInfo 单个群成员的完整记录
func (b *Bridge) GetGroupMemberInfo(pluginID int32, groupID, accountID int64) string {
	return call(b, pluginID, "", "get group member info failed", func() (string, error) {
		m, err := b.session.GroupMemberInfoGet(groupID, accountID)
		if err != nil {
			return "", err
		}
		b.ledger.CacheMember(m)
		var pkt packet.Builder
		if err := writeMember(&pkt, m); err != nil {
			return "", err
		}
		return pkt.Base64(), nil
	})
}

func (b *Bridge) GetGroupMemberList(pluginID int32, groupID int64) string {
	return call(b, pluginID, "", "get group member list failed", func() (string, error) {
		members, err := b.session.GroupMemberList(groupID)
		if err != nil {
			return "", err
		}
		var pkt packet.Builder
		err = pkt.WriteList(len(members), func(i int, item *packet.Builder) error {
			b.ledger.CacheMember(members[i])
			return writeMember(item, members[i])
		})
		if err != nil {
			return "", err
		}
		return pkt.Base64(), nil
	})
}

// writeMember 写入旧 ABI 的群成员记录。没有真实数据的字段写约定的
// 占位值，位置不能空缺。
func writeMember(pkt *packet.Builder, m *types.MemberInfo) error {
	pkt.WriteInt64(m.GroupID)
	pkt.WriteInt64(m.ID)
	if err := pkt.WriteString(m.Nickname); err != nil {
		return err
	}
	if err := pkt.WriteString(m.Card); err != nil {
		return err
	}
	pkt.WriteInt32(0) // 性别
	pkt.WriteInt32(0) // 年龄
	if err := pkt.WriteString("未知"); err != nil { // 地区
		return err
	}
	pkt.WriteInt32(0) // 入群时间
	pkt.WriteInt32(0) // 最后发言时间
	if err := pkt.WriteString(""); err != nil { // 等级名称
		return err
	}
	pkt.WriteInt32(m.Permission)
	pkt.WriteBool(false) // 不良记录
	if err := pkt.WriteString(m.SpecialTitle); err != nil {
		return err
	}
	pkt.WriteInt32(-1)  // 头衔过期时间
	pkt.WriteBool(true) // 允许修改名片
	return nil
}

// AddLog 插件提交的日志行，直接映射到宿主日志器，不要求会话在线
func (b *Bridge) AddLog(pluginID int32, priority int, category string, content string) {
	p, ok := b.registry.Load(pluginID)
	if !ok {
		b.log.Warnf("log from unknown plugin %s: [%s] %s", b.registry.Describe(pluginID), category, content)
		return
	}
	plugin.Log(p, priority, category, content)
}

// GetPluginDataDir 插件专属数据目录，首次访问时创建，不要求会话在线
func (b *Bridge) GetPluginDataDir(pluginID int32) string {
	dir := b.registry.DataDir(pluginID)
	if dir == "" {
		b.log.Warnf("data dir request from unknown plugin %s", b.registry.Describe(pluginID))
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.log.Errorf("create data dir for plugin %s: %v", b.registry.Describe(pluginID), err)
		return ""
	}
	return dir + string(os.PathSeparator)
}
