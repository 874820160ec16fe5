package types

type ElementType int

const (
	Text ElementType = iota
	At
	Image
	Reply
	Record
)

type IMessageElement interface {
	Type() ElementType
}

type MessageSegments []IMessageElement

type TextElement struct {
	Content string
}

func (e *TextElement) Type() ElementType { return Text }

type AtElement struct {
	Target int64
}

func (e *AtElement) Type() ElementType { return At }

type ImageElement struct {
	URL string
	Key string // 内容键，带稳定句柄时存在
}

func (e *ImageElement) Type() ElementType { return Image }

// ReplyElement 引用一条此前发出或收到的消息
type ReplyElement struct {
	ReplySeq int64
	Sender   int64
	GroupID  int64
}

func (e *ReplyElement) Type() ElementType { return Reply }

type RecordElement struct {
	URL string
	Key string
}

func (e *RecordElement) Type() ElementType { return Record }

// ToText 拼接所有文本段
func (ms MessageSegments) ToText() string {
	out := ""
	for _, elem := range ms {
		if t, ok := elem.(*TextElement); ok {
			out += t.Content
		}
	}
	return out
}

// MessageScene 消息场景
const (
	SceneGroup   = "group"
	ScenePrivate = "private"
)

// MessageRef 一条已确认消息的持久引用，引用/转发时凭它定位原消息
type MessageRef struct {
	Scene    string // group / private
	TargetID int64  // 群号或对端账号
	SenderID int64
	RawID    int64 // 运行时侧消息序号
	Time     int64
	Segments MessageSegments
}
