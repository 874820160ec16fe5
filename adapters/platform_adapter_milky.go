package adapters

import (
	"errors"
	"time"

	milky "github.com/Szzrain/Milky-go-sdk"
	"go.uber.org/zap"

	"cqbridge/bridge/types"
)

// PlatformAdapterMilky Milky 平台会话。SDK 未覆盖的能力返回
// not-supported 错误，由桥接层的调度包装统一兜底。
type PlatformAdapterMilky struct {
	WsGateway   string `json:"ws_gateway"   yaml:"ws_gateway"`
	RestGateway string `json:"rest_gateway" yaml:"rest_gateway"`
	Token       string `json:"token"        yaml:"token"`
	SelfID      int64  `json:"self_id"      yaml:"self_id"` // SDK 不提供登录身份查询，从配置带入
	SelfNick    string `json:"self_nick"    yaml:"self_nick"`

	IntentSession *milky.Session `json:"-" yaml:"-"`

	// 回调接口
	callback AdapterCallback

	// 连接状态
	isAlive bool
}

var errMilkyUnsupported = errors.New("milky adapter: operation not supported by Milky SDK")

// SetCallback 设置回调接口
func (pa *PlatformAdapterMilky) SetCallback(callback AdapterCallback) {
	pa.callback = callback
}

// IsAlive 检查连接是否存活
func (pa *PlatformAdapterMilky) IsAlive() bool {
	return pa.IntentSession != nil && pa.isAlive
}

func (pa *PlatformAdapterMilky) LoginID() int64 {
	return pa.SelfID
}

func (pa *PlatformAdapterMilky) LoginNick() string {
	return pa.SelfNick
}

// MsgSendToGroup 发送消息到群组
func (pa *PlatformAdapterMilky) MsgSendToGroup(request *MessageSendRequest) (*types.MessageRef, error) {
	elements := parseMessageToMilky(request.Segments)
	ret, err := pa.IntentSession.SendGroupMessage(request.TargetID, &elements)
	if err != nil {
		zap.S().Named("adapter").Errorf("Failed to send group message to %d: %v", request.TargetID, err)
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return nil, err
	}

	return &types.MessageRef{
		Scene:    types.SceneGroup,
		TargetID: request.TargetID,
		SenderID: pa.SelfID,
		RawID:    ret.MessageSeq,
		Time:     time.Now().Unix(),
		Segments: request.Segments,
	}, nil
}

// MsgSendToPerson 发送消息到个人
func (pa *PlatformAdapterMilky) MsgSendToPerson(request *MessageSendRequest) (*types.MessageRef, error) {
	elements := parseMessageToMilky(request.Segments)
	ret, err := pa.IntentSession.SendPrivateMessage(request.TargetID, &elements)
	if err != nil {
		zap.S().Named("adapter").Errorf("Failed to send private message to %d: %v", request.TargetID, err)
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return nil, err
	}

	return &types.MessageRef{
		Scene:    types.ScenePrivate,
		TargetID: request.TargetID,
		SenderID: pa.SelfID,
		RawID:    ret.MessageSeq,
		Time:     time.Now().Unix(),
		Segments: request.Segments,
	}, nil
}

// GroupMemberBan 禁言群成员
func (pa *PlatformAdapterMilky) GroupMemberBan(request *GroupOperationBanRequest) (bool, error) {
	err := pa.IntentSession.SetGroupMemberMute(request.GroupID, request.UserID, request.Duration)
	if err != nil {
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return false, err
	}
	return true, nil
}

// GroupMemberUnban 解除禁言
func (pa *PlatformAdapterMilky) GroupMemberUnban(request *GroupOperationBanRequest) (bool, error) {
	err := pa.IntentSession.SetGroupMemberMute(request.GroupID, request.UserID, 0)
	if err != nil {
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return false, err
	}
	return true, nil
}

// GroupMemberKick 踢出群成员
func (pa *PlatformAdapterMilky) GroupMemberKick(request *GroupOperationKickRequest) (bool, error) {
	err := pa.IntentSession.KickGroupMember(request.GroupID, request.UserID, false)
	if err != nil {
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return false, err
	}
	return true, nil
}

// GroupQuit 退出群组
func (pa *PlatformAdapterMilky) GroupQuit(request *GroupOperationQuitRequest) (bool, error) {
	err := pa.IntentSession.QuitGroup(request.GroupID)
	if err != nil {
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return false, err
	}
	return true, nil
}

// GroupCardNameSet 设置群名片
func (pa *PlatformAdapterMilky) GroupCardNameSet(request *GroupOperationCardNameSetRequest) (bool, error) {
	err := pa.IntentSession.SetGroupMemberCard(request.GroupID, request.UserID, request.Name)
	if err != nil {
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return false, err
	}
	return true, nil
}

// GroupSpecialTitleSet Milky SDK 不支持设置头衔
func (pa *PlatformAdapterMilky) GroupSpecialTitleSet(_ *GroupOperationTitleSetRequest) (bool, error) {
	return false, errMilkyUnsupported
}

// GroupWholeBanSet Milky SDK 不支持全员禁言
func (pa *PlatformAdapterMilky) GroupWholeBanSet(_ *GroupOperationWholeBanRequest) (bool, error) {
	return false, errMilkyUnsupported
}

// FriendList Milky SDK 不支持好友列表查询
func (pa *PlatformAdapterMilky) FriendList() ([]*types.FriendInfo, error) {
	return nil, errMilkyUnsupported
}

// GroupList Milky SDK 不支持群列表查询
func (pa *PlatformAdapterMilky) GroupList() ([]*types.GroupInfo, error) {
	return nil, errMilkyUnsupported
}

// GroupInfoGet 获取群组信息
func (pa *PlatformAdapterMilky) GroupInfoGet(groupID int64) (*types.GroupInfo, error) {
	groupInfo, err := pa.IntentSession.GetGroupInfo(groupID, false)
	if err != nil {
		zap.S().Named("adapter").Errorf("Failed to get group info for %d: %v", groupID, err)
		if pa.callback != nil {
			pa.callback.OnError(err)
		}
		return nil, err
	}

	return &types.GroupInfo{
		ID:   groupID,
		Name: groupInfo.Name,
	}, nil
}

// GroupMemberInfoGet Milky SDK 不支持成员查询
func (pa *PlatformAdapterMilky) GroupMemberInfoGet(_, _ int64) (*types.MemberInfo, error) {
	return nil, errMilkyUnsupported
}

// GroupMemberList Milky SDK 不支持成员列表查询
func (pa *PlatformAdapterMilky) GroupMemberList(_ int64) ([]*types.MemberInfo, error) {
	return nil, errMilkyUnsupported
}

// FriendRequestResolve Milky SDK 不支持请求处置
func (pa *PlatformAdapterMilky) FriendRequestResolve(_ *FriendRequestResolveRequest) (bool, error) {
	return false, errMilkyUnsupported
}

// GroupRequestResolve Milky SDK 不支持请求处置
func (pa *PlatformAdapterMilky) GroupRequestResolve(_ *GroupRequestResolveRequest) (bool, error) {
	return false, errMilkyUnsupported
}

// ImageURLGet 收信时 Milky 直接带临时地址，没有单独的解析接口
func (pa *PlatformAdapterMilky) ImageURLGet(_ string) (string, error) {
	return "", errMilkyUnsupported
}

// Serve 启动服务
func (pa *PlatformAdapterMilky) Serve() int {
	log := zap.S().Named("adapter")
	pa.isAlive = false

	if pa.RestGateway != "" && pa.RestGateway[len(pa.RestGateway)-1] == '/' {
		pa.RestGateway = pa.RestGateway[:len(pa.RestGateway)-1] // 去掉末尾的斜杠
	}
	if pa.WsGateway != "" && pa.WsGateway[len(pa.WsGateway)-1] == '/' {
		pa.WsGateway = pa.WsGateway[:len(pa.WsGateway)-1]
	}

	session, err := milky.New(pa.WsGateway, pa.RestGateway, pa.Token, log.Named("milky"))
	if err != nil {
		log.Errorf("Milky SDK initialization failed: %v", err)
		return 1
	}
	pa.IntentSession = session

	// 添加消息处理器
	session.AddHandler(func(session2 *milky.Session, m *milky.ReceiveMessage) {
		if m == nil {
			return
		}
		log.Debugf("Received message: Sender %d", m.SenderId)

		ref := &types.MessageRef{
			Time:     m.Time,
			RawID:    m.MessageSeq,
			SenderID: m.SenderId,
		}
		info := &MessageSendCallbackInfo{
			Sender:  &SimpleUserInfo{UserID: m.SenderId},
			Message: ref,
		}

		switch m.MessageScene {
		case "group":
			if m.Group == nil || m.GroupMember == nil {
				log.Warnf("Received group message without group info: %v", m)
				return
			}
			ref.Scene = types.SceneGroup
			ref.TargetID = m.Group.GroupId
			info.Sender.UserName = m.GroupMember.Nickname
			info.Member = &types.MemberInfo{
				GroupID:    m.Group.GroupId,
				ID:         m.SenderId,
				Nickname:   m.GroupMember.Nickname,
				Permission: roleToPermission(m.GroupMember.Role),
			}
		case "friend":
			if m.Friend == nil {
				log.Warnf("Received friend message without friend info: %v", m)
				return
			}
			ref.Scene = types.ScenePrivate
			ref.TargetID = m.SenderId
			info.Sender.UserName = m.Friend.Nickname
		default:
			return // 临时对话消息，不处理
		}

		for _, segment := range m.Segments {
			switch seg := segment.(type) {
			case *milky.TextElement:
				ref.Segments = append(ref.Segments, &types.TextElement{Content: seg.Text})
			case *milky.ImageElement:
				ref.Segments = append(ref.Segments, &types.ImageElement{URL: seg.TempURL})
			case *milky.AtElement:
				ref.Segments = append(ref.Segments, &types.AtElement{Target: seg.UserID})
			case *milky.ReplyElement:
				ref.Segments = append(ref.Segments, &types.ReplyElement{ReplySeq: seg.MessageSeq})
			default:
				log.Debugf("Unknown segment type: %T", segment)
			}
		}

		if len(ref.Segments) == 0 {
			return // 如果没有消息内容，忽略
		}

		if pa.callback != nil {
			pa.callback.OnMessageReceived(info)
		}
	})

	err = session.Open()
	if err != nil {
		log.Errorf("Milky Connect Error:%s", err.Error())
		return 1
	}

	pa.isAlive = true
	return 0
}

// DoRelogin 重新登录
func (pa *PlatformAdapterMilky) DoRelogin() bool {
	log := zap.S().Named("adapter")
	if pa.IntentSession == nil {
		success := pa.Serve()
		return success == 0
	}
	_ = pa.IntentSession.Close()
	err := pa.IntentSession.Open()
	if err != nil {
		log.Errorf("Milky Connect Error:%s", err.Error())
		pa.isAlive = false
		return false
	}
	pa.isAlive = true
	return true
}

// SetEnable 设置启用状态
func (pa *PlatformAdapterMilky) SetEnable(enable bool) {
	if enable {
		if !pa.IsAlive() {
			pa.DoRelogin()
		}
	} else {
		if pa.IntentSession != nil {
			_ = pa.IntentSession.Close()
		}
		pa.isAlive = false
	}
}

// parseMessageToMilky 将消息段转换为 Milky 格式
func parseMessageToMilky(send types.MessageSegments) []milky.IMessageElement {
	log := zap.S().Named("adapter")
	var elements []milky.IMessageElement
	for _, elem := range send {
		switch e := elem.(type) {
		case *types.TextElement:
			elements = append(elements, &milky.TextElement{Text: e.Content})
		case *types.ImageElement:
			elements = append(elements, &milky.ImageElement{URI: e.URL, SubType: "normal"})
		case *types.AtElement:
			elements = append(elements, &milky.AtElement{UserID: e.Target})
		case *types.ReplyElement:
			elements = append(elements, &milky.ReplyElement{MessageSeq: e.ReplySeq})
		case *types.RecordElement:
			elements = append(elements, &milky.RecordElement{URI: e.URL})
		default:
			log.Warnf("Unsupported message element type: %T", elem)
		}
	}
	return elements
}
