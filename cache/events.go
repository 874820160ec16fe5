package cache

import (
	"errors"
	"sync"

	"cqbridge/bridge/types"
	"cqbridge/utils"
)

// RequestState 请求的处置状态
type RequestState int

const (
	StatePending RequestState = iota
	StateAccepted
	StateRejected
	StateIgnored
)

func (s RequestState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	case StateIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownRequest 请求号不存在、已过期或从未发出
	ErrUnknownRequest = errors.New("cache: unknown request token")
	// ErrAlreadyResolved 请求已被处置过，重复处置是干净的空操作
	ErrAlreadyResolved = errors.New("cache: request already resolved")
	// ErrUnsupportedDisposition 该请求变体不支持此处置方式
	ErrUnsupportedDisposition = errors.New("cache: disposition not supported for request kind")
)

type pendingRequest struct {
	mu    sync.Mutex
	event *types.RequestEvent
	state RequestState
}

// Events maps opaque request tokens to live moderation requests. Each entry
// resolves at most once; later attempts fail cleanly without re-running the
// side effect.
type Events struct {
	requests utils.SyncMap[string, *pendingRequest]
	journal  *Store // 可选，记录已处置的请求，跨重启保持空操作
}

func NewEvents(journal *Store) *Events {
	return &Events{journal: journal}
}

// Put 在请求事件到达时登记
func (e *Events) Put(evt *types.RequestEvent) {
	if evt == nil || evt.Token == "" {
		return
	}
	if e.journal != nil && e.journal.RequestResolved(evt.Token) {
		return
	}
	e.requests.LoadOrStore(evt.Token, &pendingRequest{event: evt})
}

// Get 查到尚未处置的请求事件
func (e *Events) Get(token string) (*types.RequestEvent, bool) {
	p, ok := e.requests.Load(token)
	if !ok {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePending {
		return nil, false
	}
	return p.event, true
}

// Resolve 把请求置为目标状态并返回其事件。
// 重复处置返回 ErrAlreadyResolved，未知请求号返回 ErrUnknownRequest，
// 变体不支持的处置返回 ErrUnsupportedDisposition；三者都不应中断其他处理。
func (e *Events) Resolve(token string, state RequestState) (*types.RequestEvent, error) {
	p, ok := e.requests.Load(token)
	if !ok {
		return nil, ErrUnknownRequest
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePending {
		return nil, ErrAlreadyResolved
	}

	switch state {
	case StateRejected:
		if !p.event.Kind.CanReject() {
			return nil, ErrUnsupportedDisposition
		}
	case StateIgnored:
		if !p.event.Kind.CanIgnore() {
			return nil, ErrUnsupportedDisposition
		}
	case StateAccepted:
	default:
		return nil, ErrUnsupportedDisposition
	}

	p.state = state
	if e.journal != nil {
		e.journal.MarkRequestResolved(token, state)
	}
	return p.event, nil
}

// State 查询请求当前状态
func (e *Events) State(token string) (RequestState, bool) {
	p, ok := e.requests.Load(token)
	if !ok {
		return StatePending, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, true
}
