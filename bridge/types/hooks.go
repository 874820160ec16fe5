package types

type HookHandle string

type HookPriority int

const (
	HookPriorityLow    HookPriority = -10
	HookPriorityNormal HookPriority = 0
	HookPriorityHigh   HookPriority = 10
)

type HookResult int

const (
	HookResultContinue HookResult = iota
	HookResultStop
	HookResultAbort
)

// MessageHook 收到或回显消息时触发，opID 是分配给该消息的操作号
type MessageHook func(opID int32, ref *MessageRef) HookResult

// MemberJoinedHook 入群申请被通过后触发
type MemberJoinedHook func(evt *MemberJoinedEvent) HookResult

// RequestHook 好友/入群请求事件到达时触发
type RequestHook func(evt *RequestEvent) HookResult
