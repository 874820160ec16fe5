package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"cqbridge/bridge/types"
)

const actionTimeout = 15 * time.Second

type sessionRole string

const (
	roleUnknown sessionRole = ""
	roleEvent   sessionRole = "event"
	roleAPI     sessionRole = "api"
	roleUnified sessionRole = "unified"
)

// PlatformAdapterOB11 implements BotSession against a OneBot11 endpoint over
// WebSocket (forward or reverse).
type PlatformAdapterOB11 struct {
	WSReverseURL  string `json:"ws_reverse" yaml:"ws_reverse"`
	WSForwardAddr string `json:"ws_forward" yaml:"ws_forward"`
	AccessToken   string `json:"access_token" yaml:"access_token"`

	callback AdapterCallback

	running atomic.Bool

	apiSession   atomic.Pointer[ob11Session]
	eventSession atomic.Pointer[ob11Session]

	requestSeq atomic.Uint64
	pending    sync.Map // map[string]chan ob11APIResponse

	loginID   atomic.Int64
	loginNick atomic.Pointer[string]

	forwardServer *http.Server
}

// ob11Session wraps a websocket connection with role metadata.
type ob11Session struct {
	conn      *websocket.Conn
	role      sessionRole
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newOB11Session(conn *websocket.Conn, role sessionRole) *ob11Session {
	return &ob11Session{conn: conn, role: role}
}

func (s *ob11Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *ob11Session) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// SetCallback registers adapter callbacks.
func (pa *PlatformAdapterOB11) SetCallback(callback AdapterCallback) {
	pa.callback = callback
}

// IsAlive reports whether at least one active session exists.
func (pa *PlatformAdapterOB11) IsAlive() bool {
	return pa.running.Load()
}

// LoginID returns the bot's own account id, 0 before the first login query.
func (pa *PlatformAdapterOB11) LoginID() int64 {
	return pa.loginID.Load()
}

// LoginNick returns the bot's own nickname.
func (pa *PlatformAdapterOB11) LoginNick() string {
	if nick := pa.loginNick.Load(); nick != nil {
		return *nick
	}
	return ""
}

// Serve boots reverse and/or forward websocket endpoints.
func (pa *PlatformAdapterOB11) Serve(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if pa.WSReverseURL == "" && pa.WSForwardAddr == "" {
		zap.S().Named("adapter").Warn("ob11 adapter: neither ws_reverse nor ws_forward configured")
		return
	}

	if pa.WSReverseURL != "" {
		go pa.loopReverse(ctx)
	}

	if pa.WSForwardAddr != "" {
		go pa.listenForward(ctx)
	}
}

// Close shuts down active sessions and forward server if any.
func (pa *PlatformAdapterOB11) Close() {
	if srv := pa.forwardServer; srv != nil {
		_ = srv.Shutdown(context.Background())
	}

	api := pa.apiSession.Swap(nil)
	event := pa.eventSession.Swap(nil)

	if api != nil {
		pa.failPending(errors.New("ob11 adapter closed"))
		api.close()
	}
	if event != nil && event != api {
		event.close()
	}

	pa.running.Store(false)
}

func (pa *PlatformAdapterOB11) loopReverse(ctx context.Context) {
	log := zap.S().Named("adapter")
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		if err := pa.connectReverse(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warnf("ob11 reverse ws connect failed: %v", err)
			}
		}

		if ctx.Err() != nil {
			return
		}

		// 抖动避免和其他实例同步重连
		wait := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (pa *PlatformAdapterOB11) connectReverse(ctx context.Context) error {
	header := http.Header{}
	if pa.AccessToken != "" {
		header.Set("Authorization", "Bearer "+pa.AccessToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, pa.WSReverseURL, header)
	if err != nil {
		return err
	}
	session := newOB11Session(conn, roleUnified)
	pa.setSession(session)
	defer pa.clearSession(session, err)

	return pa.consumeSession(ctx, session)
}

func (pa *PlatformAdapterOB11) listenForward(ctx context.Context) {
	log := zap.S().Named("adapter")
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if ctx.Err() != nil {
			http.Error(w, "adapter shutting down", http.StatusServiceUnavailable)
			return
		}

		if pa.AccessToken != "" {
			token := r.Header.Get("Authorization")
			token = strings.TrimPrefix(token, "Bearer ")
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}
			if token != pa.AccessToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		role := determineRole(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("ob11 forward ws upgrade failed: %v", err)
			return
		}

		session := newOB11Session(conn, role)
		pa.setSession(session)
		defer pa.clearSession(session, nil)

		if err := pa.consumeSession(ctx, session); err != nil && !errors.Is(err, context.Canceled) {
			log.Debugf("ob11 forward ws closed: %v", err)
		}
	})

	server := &http.Server{
		Addr:    pa.WSForwardAddr,
		Handler: mux,
	}
	pa.forwardServer = server

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorf("ob11 forward ws listen failed: %v", err)
	}
}

func determineRole(r *http.Request) sessionRole {
	role := strings.ToLower(r.Header.Get("X-Client-Role"))
	switch role {
	case "event":
		return roleEvent
	case "api":
		return roleAPI
	}

	path := strings.ToLower(r.URL.Path)
	switch {
	case strings.Contains(path, "api"):
		return roleAPI
	case strings.Contains(path, "event"):
		return roleEvent
	default:
		return roleEvent
	}
}

func (pa *PlatformAdapterOB11) consumeSession(ctx context.Context, session *ob11Session) error {
	log := zap.S().Named("adapter")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := pa.dispatchFrame(payload); err != nil {
			log.Debugf("ob11 frame dispatch failed: %v", err)
		}
	}
}

func (pa *PlatformAdapterOB11) dispatchFrame(payload []byte) error {
	var base ob11BaseFrame
	if err := json.Unmarshal(payload, &base); err != nil {
		return err
	}

	if len(base.Echo) != 0 {
		echo := sanitizeRawMessage(base.Echo)
		if chVal, ok := pa.pending.LoadAndDelete(echo); ok {
			var resp ob11APIResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				resp = ob11APIResponse{Status: "failed", Message: err.Error(), Echo: base.Echo}
			}

			ch := chVal.(chan ob11APIResponse)
			select {
			case ch <- resp:
			default:
			}
		}
		return nil
	}

	switch base.PostType {
	case "message":
		return pa.dispatchMessage(payload)
	case "request":
		return pa.dispatchRequest(payload)
	default:
		// meta/notice 帧对桥接没有意义，静默丢弃
		return nil
	}
}

func (pa *PlatformAdapterOB11) dispatchMessage(payload []byte) error {
	var evt ob11EventEnvelope
	if err := json.Unmarshal(payload, &evt); err != nil {
		return err
	}

	info := pa.convertEventToMessage(&evt)
	if info == nil || pa.callback == nil {
		return nil
	}

	pa.callback.OnMessageReceived(info)
	return nil
}

func (pa *PlatformAdapterOB11) dispatchRequest(payload []byte) error {
	var req ob11RequestEvent
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	if pa.callback == nil {
		return nil
	}

	evt := &types.RequestEvent{
		Token:   req.Flag,
		Message: req.Comment,
		Time:    req.Time,
	}
	evt.UserID, _ = parseInt64(sanitizeRawMessage(req.UserID))
	evt.GroupID, _ = parseInt64(sanitizeRawMessage(req.GroupID))

	switch req.RequestType {
	case "friend":
		evt.Kind = types.RequestFriend
	case "group":
		if req.SubType == "invite" {
			evt.Kind = types.RequestGroupInvite
		} else {
			evt.Kind = types.RequestGroupJoinApplication
		}
	default:
		return nil
	}

	pa.callback.OnRequest(evt)
	return nil
}

func (pa *PlatformAdapterOB11) convertEventToMessage(evt *ob11EventEnvelope) *MessageSendCallbackInfo {
	segments := pa.extractSegments(evt.Message)
	if len(segments) == 0 && evt.RawMessage != "" {
		segments = append(segments, &types.TextElement{Content: evt.RawMessage})
	}
	if len(segments) == 0 {
		return nil
	}

	senderID, _ := parseInt64(sanitizeRawMessage(evt.Sender.UserID))
	rawID, _ := parseInt64(sanitizeRawMessage(evt.MessageID))

	ref := &types.MessageRef{
		Scene:    evt.MessageType,
		SenderID: senderID,
		RawID:    rawID,
		Time:     evt.Time,
		Segments: segments,
	}

	info := &MessageSendCallbackInfo{
		Sender: &SimpleUserInfo{
			UserID:   senderID,
			UserName: evt.Sender.Nickname,
		},
		Message: ref,
	}

	switch evt.MessageType {
	case types.SceneGroup:
		gid, _ := parseInt64(sanitizeRawMessage(evt.GroupID))
		ref.TargetID = gid
		info.Member = &types.MemberInfo{
			GroupID:    gid,
			ID:         senderID,
			Nickname:   evt.Sender.Nickname,
			Card:       evt.Sender.Card,
			Permission: roleToPermission(evt.Sender.Role),
		}
	case types.ScenePrivate:
		ref.TargetID = senderID
	default:
		return nil
	}

	return info
}

func (pa *PlatformAdapterOB11) setSession(session *ob11Session) {
	switch session.role {
	case roleAPI:
		if old := pa.apiSession.Swap(session); old != nil && old != session {
			old.close()
		}
	case roleEvent:
		if old := pa.eventSession.Swap(session); old != nil && old != session {
			old.close()
		}
	case roleUnified:
		if old := pa.apiSession.Swap(session); old != nil && old != session {
			old.close()
		}
		if old := pa.eventSession.Swap(session); old != nil && old != session {
			old.close()
		}
	default:
		if old := pa.eventSession.Swap(session); old != nil && old != session {
			old.close()
		}
	}

	pa.running.Store(true)

	if session.role == roleAPI || session.role == roleUnified {
		go pa.refreshLoginInfo()
	}
}

func (pa *PlatformAdapterOB11) clearSession(session *ob11Session, cause error) {
	apiCleared := false
	if pa.apiSession.Load() == session {
		apiCleared = pa.apiSession.CompareAndSwap(session, nil)
	}
	if pa.eventSession.Load() == session {
		pa.eventSession.CompareAndSwap(session, nil)
	}

	session.close()

	if apiCleared {
		if cause == nil {
			cause = errors.New("ob11 api websocket closed")
		}
		pa.failPending(cause)
	}

	if pa.apiSession.Load() == nil && pa.eventSession.Load() == nil {
		pa.running.Store(false)
	}
}

func (pa *PlatformAdapterOB11) failPending(err error) {
	pa.pending.Range(func(key, value any) bool {
		ch := value.(chan ob11APIResponse)
		resp := ob11APIResponse{
			Status:  "failed",
			Message: err.Error(),
		}
		select {
		case ch <- resp:
		default:
		}
		pa.pending.Delete(key)
		return true
	})
}

func (pa *PlatformAdapterOB11) refreshLoginInfo() {
	var resp struct {
		UserID   json.RawMessage `json:"user_id"`
		Nickname string          `json:"nickname"`
	}
	if err := pa.callAction(context.Background(), "get_login_info", nil, &resp); err != nil {
		zap.S().Named("adapter").Warnf("ob11 get_login_info failed: %v", err)
		return
	}
	if id, err := parseInt64(sanitizeRawMessage(resp.UserID)); err == nil {
		pa.loginID.Store(id)
	}
	nick := resp.Nickname
	pa.loginNick.Store(&nick)
}

func (pa *PlatformAdapterOB11) callAction(ctx context.Context, action string, params map[string]any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	session := pa.getAPISession()
	if session == nil {
		return errors.New("ob11 adapter: no active API session")
	}

	echo := fmt.Sprintf("cqb-%d", pa.requestSeq.Add(1))
	respCh := make(chan ob11APIResponse, 1)
	pa.pending.Store(echo, respCh)

	payload := map[string]any{
		"action": action,
		"params": params,
		"echo":   echo,
	}

	if err := session.writeJSON(payload); err != nil {
		pa.pending.Delete(echo)
		return err
	}

	select {
	case <-ctx.Done():
		pa.pending.Delete(echo)
		return ctx.Err()
	case <-time.After(actionTimeout):
		pa.pending.Delete(echo)
		return errors.New("ob11 adapter: action timeout")
	case resp := <-respCh:
		if resp.Status != "ok" {
			if resp.Message != "" {
				return fmt.Errorf("ob11 adapter: %s", resp.Message)
			}
			return fmt.Errorf("ob11 adapter: retcode=%d", resp.RetCode)
		}
		if out != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return err
			}
		}
		return nil
	}
}

func (pa *PlatformAdapterOB11) getAPISession() *ob11Session {
	if ses := pa.apiSession.Load(); ses != nil {
		return ses
	}
	if ses := pa.eventSession.Load(); ses != nil && ses.role == roleUnified {
		return ses
	}
	return nil
}

// MsgSendToGroup sends a message to a group and returns its durable reference.
func (pa *PlatformAdapterOB11) MsgSendToGroup(request *MessageSendRequest) (*types.MessageRef, error) {
	params := map[string]any{
		"group_id": request.TargetID,
		"message":  pa.buildMessage(request.Segments),
	}

	var resp ob11SendResponse
	if err := pa.callAction(context.Background(), "send_group_msg", params, &resp); err != nil {
		return nil, err
	}

	rawID, _ := parseInt64(sanitizeRawMessage(resp.MessageID))
	return &types.MessageRef{
		Scene:    types.SceneGroup,
		TargetID: request.TargetID,
		SenderID: pa.LoginID(),
		RawID:    rawID,
		Time:     time.Now().Unix(),
		Segments: request.Segments,
	}, nil
}

// MsgSendToPerson sends a private message and returns its durable reference.
func (pa *PlatformAdapterOB11) MsgSendToPerson(request *MessageSendRequest) (*types.MessageRef, error) {
	params := map[string]any{
		"user_id": request.TargetID,
		"message": pa.buildMessage(request.Segments),
	}

	var resp ob11SendResponse
	if err := pa.callAction(context.Background(), "send_private_msg", params, &resp); err != nil {
		return nil, err
	}

	rawID, _ := parseInt64(sanitizeRawMessage(resp.MessageID))
	return &types.MessageRef{
		Scene:    types.ScenePrivate,
		TargetID: request.TargetID,
		SenderID: pa.LoginID(),
		RawID:    rawID,
		Time:     time.Now().Unix(),
		Segments: request.Segments,
	}, nil
}

// GroupMemberBan mutes a member in a group.
func (pa *PlatformAdapterOB11) GroupMemberBan(request *GroupOperationBanRequest) (bool, error) {
	params := map[string]any{
		"group_id": request.GroupID,
		"user_id":  request.UserID,
		"duration": request.Duration,
	}

	if err := pa.callAction(context.Background(), "set_group_ban", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupMemberUnban lifts a mute.
func (pa *PlatformAdapterOB11) GroupMemberUnban(request *GroupOperationBanRequest) (bool, error) {
	params := map[string]any{
		"group_id": request.GroupID,
		"user_id":  request.UserID,
		"duration": 0,
	}

	if err := pa.callAction(context.Background(), "set_group_ban", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupMemberKick removes a member from the group.
func (pa *PlatformAdapterOB11) GroupMemberKick(request *GroupOperationKickRequest) (bool, error) {
	params := map[string]any{
		"group_id":           request.GroupID,
		"user_id":            request.UserID,
		"reject_add_request": false,
	}

	if err := pa.callAction(context.Background(), "set_group_kick", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupQuit lets the bot leave a group.
func (pa *PlatformAdapterOB11) GroupQuit(request *GroupOperationQuitRequest) (bool, error) {
	params := map[string]any{
		"group_id":   request.GroupID,
		"is_dismiss": false,
	}

	if err := pa.callAction(context.Background(), "set_group_leave", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupCardNameSet sets the card for a member.
func (pa *PlatformAdapterOB11) GroupCardNameSet(request *GroupOperationCardNameSetRequest) (bool, error) {
	params := map[string]any{
		"group_id": request.GroupID,
		"user_id":  request.UserID,
		"card":     request.Name,
	}

	if err := pa.callAction(context.Background(), "set_group_card", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupSpecialTitleSet sets a member's special title.
func (pa *PlatformAdapterOB11) GroupSpecialTitleSet(request *GroupOperationTitleSetRequest) (bool, error) {
	params := map[string]any{
		"group_id":      request.GroupID,
		"user_id":       request.UserID,
		"special_title": request.Title,
		"duration":      request.Duration,
	}

	if err := pa.callAction(context.Background(), "set_group_special_title", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupWholeBanSet toggles whole-group mute.
func (pa *PlatformAdapterOB11) GroupWholeBanSet(request *GroupOperationWholeBanRequest) (bool, error) {
	params := map[string]any{
		"group_id": request.GroupID,
		"enable":   request.Enable,
	}

	if err := pa.callAction(context.Background(), "set_group_whole_ban", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// FriendList fetches the bot's friends.
func (pa *PlatformAdapterOB11) FriendList() ([]*types.FriendInfo, error) {
	var resp []struct {
		UserID   json.RawMessage `json:"user_id"`
		Nickname string          `json:"nickname"`
		Remark   string          `json:"remark"`
	}
	if err := pa.callAction(context.Background(), "get_friend_list", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]*types.FriendInfo, 0, len(resp))
	for _, f := range resp {
		id, err := parseInt64(sanitizeRawMessage(f.UserID))
		if err != nil {
			continue
		}
		out = append(out, &types.FriendInfo{ID: id, Nickname: f.Nickname, Remark: f.Remark})
	}
	return out, nil
}

// GroupList fetches the bot's groups.
func (pa *PlatformAdapterOB11) GroupList() ([]*types.GroupInfo, error) {
	var resp []ob11GroupInfo
	if err := pa.callAction(context.Background(), "get_group_list", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]*types.GroupInfo, 0, len(resp))
	for _, g := range resp {
		info := g.toGroupInfo()
		if info != nil {
			out = append(out, info)
		}
	}
	return out, nil
}

// GroupInfoGet fetches meta information about a group.
func (pa *PlatformAdapterOB11) GroupInfoGet(groupID int64) (*types.GroupInfo, error) {
	params := map[string]any{"group_id": groupID}

	var resp ob11GroupInfo
	if err := pa.callAction(context.Background(), "get_group_info", params, &resp); err != nil {
		return nil, err
	}

	info := resp.toGroupInfo()
	if info == nil {
		return nil, fmt.Errorf("ob11 adapter: malformed group info for %d", groupID)
	}
	return info, nil
}

// GroupMemberInfoGet fetches a single member.
func (pa *PlatformAdapterOB11) GroupMemberInfoGet(groupID, userID int64) (*types.MemberInfo, error) {
	params := map[string]any{
		"group_id": groupID,
		"user_id":  userID,
		"no_cache": false,
	}

	var resp ob11MemberInfo
	if err := pa.callAction(context.Background(), "get_group_member_info", params, &resp); err != nil {
		return nil, err
	}
	return resp.toMemberInfo(groupID), nil
}

// GroupMemberList fetches all members of a group.
func (pa *PlatformAdapterOB11) GroupMemberList(groupID int64) ([]*types.MemberInfo, error) {
	params := map[string]any{"group_id": groupID}

	var resp []ob11MemberInfo
	if err := pa.callAction(context.Background(), "get_group_member_list", params, &resp); err != nil {
		return nil, err
	}

	out := make([]*types.MemberInfo, 0, len(resp))
	for _, m := range resp {
		out = append(out, m.toMemberInfo(groupID))
	}
	return out, nil
}

// FriendRequestResolve accepts or rejects a pending friend request.
func (pa *PlatformAdapterOB11) FriendRequestResolve(request *FriendRequestResolveRequest) (bool, error) {
	params := map[string]any{
		"flag":    request.Token,
		"approve": request.Accept,
		"remark":  request.Remark,
	}

	if err := pa.callAction(context.Background(), "set_friend_add_request", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GroupRequestResolve applies a disposition to a pending group request.
// Ignoring is a local decision with no runtime call.
func (pa *PlatformAdapterOB11) GroupRequestResolve(request *GroupRequestResolveRequest) (bool, error) {
	if request.Op == GroupRequestIgnore {
		return true, nil
	}

	subType := "add"
	if request.Invite {
		subType = "invite"
	}

	params := map[string]any{
		"flag":     request.Token,
		"sub_type": subType,
		"approve":  request.Op == GroupRequestAccept,
		"reason":   request.Reason,
	}

	if err := pa.callAction(context.Background(), "set_group_add_request", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

// ImageURLGet resolves an image key to a download URL.
func (pa *PlatformAdapterOB11) ImageURLGet(key string) (string, error) {
	params := map[string]any{"file": key}

	var resp struct {
		URL  string `json:"url"`
		File string `json:"file"`
	}
	if err := pa.callAction(context.Background(), "get_image", params, &resp); err != nil {
		return "", err
	}
	if resp.URL != "" {
		return resp.URL, nil
	}
	return resp.File, nil
}

func (pa *PlatformAdapterOB11) extractSegments(raw json.RawMessage) types.MessageSegments {
	var arrayPayload []ob11Segment
	if err := json.Unmarshal(raw, &arrayPayload); err == nil {
		return pa.fromSegments(arrayPayload)
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
		return types.MessageSegments{&types.TextElement{Content: plain}}
	}

	return nil
}

func (pa *PlatformAdapterOB11) fromSegments(src []ob11Segment) types.MessageSegments {
	var result types.MessageSegments
	for _, seg := range src {
		switch seg.Type {
		case "text":
			if text, ok := seg.Data["text"].(string); ok {
				result = append(result, &types.TextElement{Content: text})
			}
		case "image":
			elem := &types.ImageElement{}
			if file, ok := seg.Data["file"].(string); ok {
				elem.Key = file
			}
			if url, ok := seg.Data["url"].(string); ok {
				elem.URL = url
			}
			result = append(result, elem)
		case "at":
			switch qq := seg.Data["qq"].(type) {
			case string:
				if target, err := parseInt64(qq); err == nil {
					result = append(result, &types.AtElement{Target: target})
				}
			case float64:
				result = append(result, &types.AtElement{Target: int64(qq)})
			}
		case "reply":
			reply := &types.ReplyElement{}
			if id, ok := seg.Data["id"].(string); ok {
				reply.ReplySeq, _ = parseInt64(id)
			}
			result = append(result, reply)
		case "record":
			elem := &types.RecordElement{}
			if file, ok := seg.Data["file"].(string); ok {
				elem.Key = file
			}
			if url, ok := seg.Data["url"].(string); ok {
				elem.URL = url
			}
			result = append(result, elem)
		}
	}
	return result
}

func (pa *PlatformAdapterOB11) buildMessage(segments types.MessageSegments) []map[string]any {
	log := zap.S().Named("adapter")
	result := make([]map[string]any, 0, len(segments))
	for _, elem := range segments {
		switch e := elem.(type) {
		case *types.TextElement:
			result = append(result, map[string]any{
				"type": "text",
				"data": map[string]any{"text": e.Content},
			})
		case *types.ImageElement:
			file := e.URL
			if file == "" {
				file = e.Key
			}
			if file == "" {
				log.Debug("ob11: skip image with empty source")
				continue
			}
			result = append(result, map[string]any{
				"type": "image",
				"data": map[string]any{"file": file},
			})
		case *types.AtElement:
			result = append(result, map[string]any{
				"type": "at",
				"data": map[string]any{"qq": strconv.FormatInt(e.Target, 10)},
			})
		case *types.ReplyElement:
			result = append(result, map[string]any{
				"type": "reply",
				"data": map[string]any{"id": strconv.FormatInt(e.ReplySeq, 10)},
			})
		case *types.RecordElement:
			file := e.URL
			if file == "" {
				file = e.Key
			}
			if file != "" {
				result = append(result, map[string]any{
					"type": "record",
					"data": map[string]any{"file": file},
				})
			}
		default:
			log.Debugf("ob11: unsupported segment type %T", elem)
		}
	}
	return result
}

func roleToPermission(role string) int32 {
	switch role {
	case "owner":
		return types.PermissionOwner
	case "admin":
		return types.PermissionAdministrator
	default:
		return types.PermissionMember
	}
}

func parseInt64(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("ob11 adapter: empty numeric id")
	}
	return strconv.ParseInt(trimmed, 10, 64)
}

func sanitizeRawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, "\"")
	return s
}

type ob11BaseFrame struct {
	PostType string          `json:"post_type"`
	Echo     json.RawMessage `json:"echo"`
}

type ob11APIResponse struct {
	Status  string          `json:"status"`
	RetCode int64           `json:"retcode"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
	Data    json.RawMessage `json:"data"`
	Echo    json.RawMessage `json:"echo"`
}

type ob11SendResponse struct {
	MessageID json.RawMessage `json:"message_id"`
}

type ob11Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type ob11EventEnvelope struct {
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	Time        int64           `json:"time"`
	RawMessage  string          `json:"raw_message"`
	Message     json.RawMessage `json:"message"`
	GroupID     json.RawMessage `json:"group_id"`
	MessageID   json.RawMessage `json:"message_id"`
	Sender      ob11Sender      `json:"sender"`
}

type ob11RequestEvent struct {
	PostType    string          `json:"post_type"`
	RequestType string          `json:"request_type"`
	SubType     string          `json:"sub_type"`
	Time        int64           `json:"time"`
	GroupID     json.RawMessage `json:"group_id"`
	UserID      json.RawMessage `json:"user_id"`
	Flag        string          `json:"flag"`
	Comment     string          `json:"comment"`
}

type ob11Sender struct {
	UserID   json.RawMessage `json:"user_id"`
	Nickname string          `json:"nickname"`
	Card     string          `json:"card"`
	Role     string          `json:"role"`
}

type ob11GroupInfo struct {
	GroupID     json.RawMessage `json:"group_id"`
	GroupName   string          `json:"group_name"`
	MemberCount int32           `json:"member_count"`
}

func (g *ob11GroupInfo) toGroupInfo() *types.GroupInfo {
	id, err := parseInt64(sanitizeRawMessage(g.GroupID))
	if err != nil {
		return nil
	}
	return &types.GroupInfo{ID: id, Name: g.GroupName, MemberCount: g.MemberCount}
}

type ob11MemberInfo struct {
	UserID   json.RawMessage `json:"user_id"`
	Nickname string          `json:"nickname"`
	Card     string          `json:"card"`
	Role     string          `json:"role"`
	Title    string          `json:"title"`
}

func (m *ob11MemberInfo) toMemberInfo(groupID int64) *types.MemberInfo {
	id, _ := parseInt64(sanitizeRawMessage(m.UserID))
	return &types.MemberInfo{
		GroupID:      groupID,
		ID:           id,
		Nickname:     m.Nickname,
		Card:         m.Card,
		Permission:   roleToPermission(m.Role),
		SpecialTitle: m.Title,
	}
}
