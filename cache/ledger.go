// Package cache holds the bridge's only mutable shared state: the
// pending-operation ledger, the moderation-request cache and the media
// record cache.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"cqbridge/bridge/types"
	"cqbridge/utils"
)

// DefaultLedgerSize 结果缓存的默认容量，超出后按 LRU 逐出。
// 被逐出的操作号再被引用时按"引用失效"降级处理。
const DefaultLedgerSize = 4096

// Ledger issues opaque operation ids for asynchronous sends and stores each
// send's durable message reference once the runtime confirms it.
type Ledger struct {
	seq     atomic.Int32
	results *lru.Cache[int32, *types.MessageRef]

	// 账号 → 最近见过的群成员，仅作兜底的反查缓存
	members utils.SyncMap[int64, *types.MemberInfo]
}

func NewLedger(size int) *Ledger {
	if size <= 0 {
		size = DefaultLedgerSize
	}
	results, err := lru.New[int32, *types.MessageRef](size)
	if err != nil {
		panic(err)
	}
	return &Ledger{results: results}
}

// NextID 分配一个进程生命周期内严格递增且不复用的操作号
func (l *Ledger) NextID() int32 {
	return l.seq.Add(1)
}

// RecordResult 记录操作号对应的消息引用，常规情况下只会写一次
func (l *Ledger) RecordResult(id int32, ref *types.MessageRef) {
	l.results.Add(id, ref)
}

// Result 查询操作号的结果，未完成或已被逐出时返回 false
func (l *Ledger) Result(id int32) (*types.MessageRef, bool) {
	return l.results.Get(id)
}

// CacheMember 记住一个群成员，供仅有账号没有群上下文的调用反查
func (l *Ledger) CacheMember(m *types.MemberInfo) {
	if m == nil {
		return
	}
	l.members.Store(m.ID, m)
}

// FindMember 反查缓存过的成员
func (l *Ledger) FindMember(accountID int64) (*types.MemberInfo, bool) {
	return l.members.Load(accountID)
}
