package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cqbridge/bridge/types"
	"cqbridge/packet"
)

func TestGroupInfoRecord(t *testing.T) {
	as := assert.New(t)
	session := newFakeSession()
	session.groups = []*types.GroupInfo{{ID: 100, Name: "测试群", MemberCount: 41}}
	b := newTestBridge(t, session)

	encoded := b.GetGroupInfo(1, 100)
	as.NotEmpty(encoded)

	r, err := packet.FromBase64(encoded)
	as.NoError(err)

	id, _ := r.ReadInt64()
	as.EqualValues(100, id)
	name, _ := r.ReadString()
	as.Equal("测试群", name)
	count, _ := r.ReadInt32()
	as.EqualValues(42, count, "member count includes the bot itself")
	capacity, _ := r.ReadInt32()
	as.EqualValues(1000, capacity)
	as.Zero(r.Remaining())
}

func TestMemberRecordLayout(t *testing.T) {
	as := assert.New(t)
	session := newFakeSession()
	session.members[100] = []*types.MemberInfo{{
		GroupID:      100,
		ID:           200,
		Nickname:     "张三",
		Card:         "三哥",
		Permission:   types.PermissionAdministrator,
		SpecialTitle: "元老",
	}}
	b := newTestBridge(t, session)

	encoded := b.GetGroupMemberInfo(1, 100, 200)
	as.NotEmpty(encoded)

	r, err := packet.FromBase64(encoded)
	as.NoError(err)

	groupID, _ := r.ReadInt64()
	as.EqualValues(100, groupID)
	id, _ := r.ReadInt64()
	as.EqualValues(200, id)
	nick, _ := r.ReadString()
	as.Equal("张三", nick)
	card, _ := r.ReadString()
	as.Equal("三哥", card)
	gender, _ := r.ReadInt32()
	as.Zero(gender)
	age, _ := r.ReadInt32()
	as.Zero(age)
	region, _ := r.ReadString()
	as.Equal("未知", region)
	joinTime, _ := r.ReadInt32()
	as.Zero(joinTime)
	lastSpeak, _ := r.ReadInt32()
	as.Zero(lastSpeak)
	level, _ := r.ReadString()
	as.Empty(level)
	permission, _ := r.ReadInt32()
	as.EqualValues(types.PermissionAdministrator, permission)
	bad, _ := r.ReadBool()
	as.False(bad)
	title, _ := r.ReadString()
	as.Equal("元老", title)
	expiry, _ := r.ReadInt32()
	as.EqualValues(-1, expiry)
	canEdit, _ := r.ReadBool()
	as.True(canEdit)
	as.Zero(r.Remaining())
}

func TestFriendListRecord(t *testing.T) {
	as := assert.New(t)
	session := newFakeSession()
	session.friends = []*types.FriendInfo{
		{ID: 1, Nickname: "甲", Remark: "a"},
		{ID: 2, Nickname: "乙", Remark: ""},
		{ID: 3, Nickname: "丙", Remark: "c"},
	}
	b := newTestBridge(t, session)

	r, err := packet.FromBase64(b.GetFriendList(1))
	as.NoError(err)

	var ids []int64
	n, err := r.ReadList(func(i int, item *packet.Reader) error {
		id, err := item.ReadInt64()
		if err != nil {
			return err
		}
		ids = append(ids, id)
		if _, err := item.ReadString(); err != nil {
			return err
		}
		_, err = item.ReadString()
		return err
	})
	as.NoError(err)
	as.Equal(3, n)
	as.Equal([]int64{1, 2, 3}, ids)
}

func TestGroupMemberListRecord(t *testing.T) {
	as := assert.New(t)
	session := newFakeSession()
	session.members[100] = []*types.MemberInfo{
		{GroupID: 100, ID: 200, Nickname: "张三", Permission: types.PermissionOwner},
		{GroupID: 100, ID: 201, Nickname: "李四", Permission: types.PermissionMember},
	}
	b := newTestBridge(t, session)

	r, err := packet.FromBase64(b.GetGroupMemberList(1, 100))
	as.NoError(err)

	var perms []int32
	n, err := r.ReadList(func(i int, item *packet.Reader) error {
		if _, err := item.ReadInt64(); err != nil { // 群号
			return err
		}
		if _, err := item.ReadInt64(); err != nil { // 账号
			return err
		}
		if _, err := item.ReadString(); err != nil { // 昵称
			return err
		}
		if _, err := item.ReadString(); err != nil { // 名片
			return err
		}
		if _, err := item.ReadInt32(); err != nil { // 性别
			return err
		}
		if _, err := item.ReadInt32(); err != nil { // 年龄
			return err
		}
		if _, err := item.ReadString(); err != nil { // 地区
			return err
		}
		if _, err := item.ReadInt32(); err != nil { // 入群时间
			return err
		}
		if _, err := item.ReadInt32(); err != nil { // 最后发言
			return err
		}
		if _, err := item.ReadString(); err != nil { // 等级
			return err
		}
		p, err := item.ReadInt32()
		if err != nil {
			return err
		}
		perms = append(perms, p)
		return nil
	})
	as.NoError(err)
	as.Equal(2, n)
	as.Equal([]int32{types.PermissionOwner, types.PermissionMember}, perms)

	// 成员列表顺带充入反查缓存
	m, ok := b.Ledger().FindMember(201)
	as.True(ok)
	as.Equal("李四", m.Nickname)
}

func TestStrangerInfoRecord(t *testing.T) {
	as := assert.New(t)
	session := newFakeSession()
	b := newTestBridge(t, session)

	b.Ledger().CacheMember(&types.MemberInfo{GroupID: 100, ID: 200, Nickname: "张三"})

	r, err := packet.FromBase64(b.GetStrangerInfo(1, 200))
	as.NoError(err)
	id, _ := r.ReadInt64()
	as.EqualValues(200, id)
	nick, _ := r.ReadString()
	as.Equal("张三", nick)
	gender, _ := r.ReadInt32()
	as.Zero(gender)
	age, _ := r.ReadInt32()
	as.Zero(age)
	as.Zero(r.Remaining())
}

func TestStrangerInfoUnknownAccount(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())

	// 没见过的账号是常规的未找到，返回空默认值而不是占位记录
	as.Empty(b.GetStrangerInfo(1, 424242))
}

func TestLoginIdentity(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())
	as.EqualValues(10001, b.GetLoginID(1))
	as.Equal("测试机器人", b.GetLoginNick(1))
}

func TestGetPluginDataDir(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())

	dir := b.GetPluginDataDir(1)
	as.NotEmpty(dir)
	as.DirExists(dir)

	as.Empty(b.GetPluginDataDir(42))
}
