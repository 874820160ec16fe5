package types

// RequestKind 待处理请求的变体标签
type RequestKind int

const (
	RequestFriend RequestKind = iota + 1
	RequestGroupJoinApplication
	RequestGroupInvite
)

func (k RequestKind) String() string {
	switch k {
	case RequestFriend:
		return "friend"
	case RequestGroupJoinApplication:
		return "group-apply"
	case RequestGroupInvite:
		return "group-invite"
	default:
		return "unknown"
	}
}

// CanReject 群邀请没有拒绝路径
func (k RequestKind) CanReject() bool {
	return k != RequestGroupInvite
}

// CanIgnore 好友请求没有忽略路径
func (k RequestKind) CanIgnore() bool {
	return k != RequestFriend
}

// RequestEvent 运行时抛出的好友/入群请求事件。
// Token 由运行时分配，之后的处置调用凭它找回请求。
type RequestEvent struct {
	Token   string
	Kind    RequestKind
	GroupID int64
	UserID  int64
	Message string
	Time    int64
}

// 成员加入通知的来由编码
const (
	MemberJoinPermitted int32 = 1
	MemberJoinInvited   int32 = 2
)

// MemberJoinedEvent 入群申请被通过后合成的成员加入通知
type MemberJoinedEvent struct {
	Reason  int32
	Time    int64
	GroupID int64
	UserID  int64
}
