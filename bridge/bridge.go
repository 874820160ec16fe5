// Package bridge exposes the legacy synchronous plugin call surface on top of
// an asynchronous bot session. Every plugin-facing operation passes through a
// single dispatch wrapper that checks the session is live, isolates failures
// and hands back the operation's declared default instead of ever panicking
// into the caller.
package bridge

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cqbridge/adapters"
	"cqbridge/bridge/types"
	"cqbridge/cache"
	"cqbridge/plugin"
)

type Config struct {
	ImageDir  string // 图片缓存目录
	RecordDir string // 语音缓存目录

	LedgerSize int // 发送结果缓存容量，0 取默认值
	Workers    int // 每条任务队列的工作协程数

	FetchTimeout time.Duration // 单次媒体下载的超时
	FetchPerSec  float64       // 媒体下载限速，0 不限

	Store *cache.Store // 可选持久层，语音元数据与请求处置日志
}

type Bridge struct {
	session  adapters.BotSession
	registry *plugin.Registry

	ledger  *cache.Ledger
	events  *cache.Events
	records *cache.Records

	sched *scheduler
	log   *zap.SugaredLogger

	imageDir  string
	recordDir string
	client    *http.Client
	limiter   *rate.Limiter

	messageHooks      hookRegistry[types.MessageHook]
	memberJoinedHooks hookRegistry[types.MemberJoinedHook]
	requestHooks      hookRegistry[types.RequestHook]
}

func New(session adapters.BotSession, registry *plugin.Registry, cfg Config) *Bridge {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.FetchPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.FetchPerSec), 1)
	}

	b := &Bridge{
		session:   session,
		registry:  registry,
		ledger:    cache.NewLedger(cfg.LedgerSize),
		events:    cache.NewEvents(cfg.Store),
		records:   cache.NewRecords(cfg.Store),
		log:       zap.S().Named("bridge"),
		imageDir:  cfg.ImageDir,
		recordDir: cfg.RecordDir,
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		limiter:   limiter,
	}
	b.sched = newScheduler(cfg.Workers, func() bool {
		return session != nil && session.IsAlive()
	})
	if session != nil {
		session.SetCallback(b)
	}
	return b
}

func (b *Bridge) Close() {
	b.sched.stop()
}

// Ledger 暴露给控制台等宿主侧组件做只读检查
func (b *Bridge) Ledger() *cache.Ledger { return b.ledger }

// WaitIdle 等待所有排队的异步任务结束
func (b *Bridge) WaitIdle() {
	b.sched.waitIdle()
}

// call 是所有插件调用的唯一入口。会话未就绪直接回落默认值，
// body 里的任何错误乃至 panic 都在这里拦下，带上插件身份落日志。
func call[T any](b *Bridge, pluginID int32, def T, failMsg string, body func() (T, error)) T {
	if b.session == nil || !b.session.IsAlive() {
		b.log.Warnf("plugin %s calls native API before the bot logs in", b.registry.Describe(pluginID))
		return def
	}

	result, err := func() (out T, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return body()
	}()
	if err != nil {
		b.log.Errorf("%s: plugin %s: %v", failMsg, b.registry.Describe(pluginID), err)
		return def
	}
	return result
}

// AdapterCallback 实现，会话事件从这里进入桥接

func (b *Bridge) OnError(err error) {
	if err == nil {
		return
	}
	b.log.Errorf("session error: %v", err)
}

// OnMessageReceived 给收到的消息也分配操作号并登记结果，
// 这样插件可以直接引用/转发收到的消息。
func (b *Bridge) OnMessageReceived(info *adapters.MessageSendCallbackInfo) {
	if info == nil || info.Message == nil {
		return
	}
	opID := b.ledger.NextID()
	b.ledger.RecordResult(opID, info.Message)
	if info.Member != nil {
		b.ledger.CacheMember(info.Member)
	}
	b.cacheRecordMeta(info.Message.Segments)
	b.runMessageHooks(opID, info.Message)
}

func (b *Bridge) OnRequest(evt *types.RequestEvent) {
	if evt == nil {
		return
	}
	b.events.Put(evt)
	for _, entry := range b.requestHooks.snapshot() {
		if entry.handler(evt) != types.HookResultContinue {
			break
		}
	}
}

func (b *Bridge) runMessageHooks(opID int32, ref *types.MessageRef) {
	for _, entry := range b.messageHooks.snapshot() {
		if entry.handler(opID, ref) != types.HookResultContinue {
			break
		}
	}
}

func (b *Bridge) emitMemberJoined(evt *types.MemberJoinedEvent) {
	for _, entry := range b.memberJoinedHooks.snapshot() {
		if entry.handler(evt) != types.HookResultContinue {
			break
		}
	}
}

// 事件钩子注册，插件装载器把 ABI 事件出口挂在这里

func (b *Bridge) RegisterMessageHook(name string, priority types.HookPriority, h types.MessageHook) (types.HookHandle, error) {
	return b.messageHooks.register(name, priority, h)
}

func (b *Bridge) UnregisterMessageHook(handle types.HookHandle) bool {
	return b.messageHooks.unregister(handle)
}

func (b *Bridge) RegisterMemberJoinedHook(name string, priority types.HookPriority, h types.MemberJoinedHook) (types.HookHandle, error) {
	return b.memberJoinedHooks.register(name, priority, h)
}

func (b *Bridge) UnregisterMemberJoinedHook(handle types.HookHandle) bool {
	return b.memberJoinedHooks.unregister(handle)
}

func (b *Bridge) RegisterRequestHook(name string, priority types.HookPriority, h types.RequestHook) (types.HookHandle, error) {
	return b.requestHooks.register(name, priority, h)
}

func (b *Bridge) UnregisterRequestHook(handle types.HookHandle) bool {
	return b.requestHooks.unregister(handle)
}
