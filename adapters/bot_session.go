// Package adapters contains the bot runtime collaborators: the BotSession
// interface the bridge drives, and its platform implementations.
package adapters

import "cqbridge/bridge/types"

type SimpleUserInfo struct {
	UserID   int64  // 用户ID
	UserName string // 用户名
}

// MessageSendCallbackInfo 消息回调信息
type MessageSendCallbackInfo struct {
	Sender  *SimpleUserInfo
	Member  *types.MemberInfo // 群消息才有
	Message *types.MessageRef
}

// AdapterCallback 适配器回调接口
type AdapterCallback interface {
	OnError(err error)
	OnMessageReceived(info *MessageSendCallbackInfo)
	OnRequest(evt *types.RequestEvent)
}

// MessageSendRequest 发送消息请求
type MessageSendRequest struct {
	TargetID int64 // 目标用户ID/群组ID
	Segments types.MessageSegments
}

type GroupOperationBanRequest struct {
	GroupID  int64
	UserID   int64
	Duration int64 // 禁言时长，秒
}

type GroupOperationKickRequest struct {
	GroupID int64
	UserID  int64
}

type GroupOperationQuitRequest struct {
	GroupID int64
}

type GroupOperationCardNameSetRequest struct {
	GroupID int64
	UserID  int64
	Name    string
}

type GroupOperationTitleSetRequest struct {
	GroupID  int64
	UserID   int64
	Title    string
	Duration int64 // 头衔有效期，-1 永久
}

type GroupOperationWholeBanRequest struct {
	GroupID int64
	Enable  bool
}

type FriendRequestResolveRequest struct {
	Token  string
	Accept bool
	Remark string // 通过后的备注
}

// GroupRequestOp 入群请求的处置动作
type GroupRequestOp int

const (
	GroupRequestAccept GroupRequestOp = iota + 1
	GroupRequestReject
	GroupRequestIgnore
)

type GroupRequestResolveRequest struct {
	Token  string
	Invite bool // 入群邀请而不是入群申请
	Op     GroupRequestOp
	Reason string // 拒绝时的说明
}

// BotSession 异步机器人运行时会话 - 纯协议接口，不依赖桥接业务
type BotSession interface {
	// 连接状态与登录身份
	IsAlive() bool
	LoginID() int64
	LoginNick() string

	// 消息发送，返回可供之后引用的持久引用
	MsgSendToGroup(request *MessageSendRequest) (*types.MessageRef, error)
	MsgSendToPerson(request *MessageSendRequest) (*types.MessageRef, error)

	// 群组操作
	GroupMemberBan(request *GroupOperationBanRequest) (bool, error)
	GroupMemberUnban(request *GroupOperationBanRequest) (bool, error)
	GroupMemberKick(request *GroupOperationKickRequest) (bool, error)
	GroupQuit(request *GroupOperationQuitRequest) (bool, error)
	GroupCardNameSet(request *GroupOperationCardNameSetRequest) (bool, error)
	GroupSpecialTitleSet(request *GroupOperationTitleSetRequest) (bool, error)
	GroupWholeBanSet(request *GroupOperationWholeBanRequest) (bool, error)

	// 只读查询
	FriendList() ([]*types.FriendInfo, error)
	GroupList() ([]*types.GroupInfo, error)
	GroupInfoGet(groupID int64) (*types.GroupInfo, error)
	GroupMemberInfoGet(groupID, userID int64) (*types.MemberInfo, error)
	GroupMemberList(groupID int64) ([]*types.MemberInfo, error)

	// 请求处置
	FriendRequestResolve(request *FriendRequestResolveRequest) (bool, error)
	GroupRequestResolve(request *GroupRequestResolveRequest) (bool, error)

	// 媒体地址解析
	ImageURLGet(key string) (string, error)

	SetCallback(callback AdapterCallback)
}

// 实现检查
var (
	_ BotSession = (*PlatformAdapterOB11)(nil)
	_ BotSession = (*PlatformAdapterMilky)(nil)
)
