package cache

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"cqbridge/bridge/types"
)

func TestNextIDStrictlyIncreasing(t *testing.T) {
	as := assert.New(t)

	l := NewLedger(0)
	prev := int32(0)
	for i := 0; i < 100; i++ {
		id := l.NextID()
		as.Greater(id, prev)
		prev = id
	}
}

func TestNextIDUniqueUnderConcurrency(t *testing.T) {
	as := assert.New(t)

	l := NewLedger(0)
	const workers = 16
	const perWorker = 200

	var mu sync.Mutex
	var wg sync.WaitGroup
	ids := make([]int32, 0, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int32, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, l.NextID())
			}
			mu.Lock()
			ids = append(ids, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 1; i < len(ids); i++ {
		as.NotEqual(ids[i-1], ids[i], "ids must never collide")
	}
}

func TestResultAbsentThenIdempotent(t *testing.T) {
	as := assert.New(t)

	l := NewLedger(0)
	id := l.NextID()

	_, ok := l.Result(id)
	as.False(ok, "result must be absent before the send completes")

	ref := &types.MessageRef{Scene: types.SceneGroup, TargetID: 100, RawID: 555}
	l.RecordResult(id, ref)

	got, ok := l.Result(id)
	as.True(ok)
	as.Equal(ref, got)

	// 再查还是同一个值
	got2, ok := l.Result(id)
	as.True(ok)
	as.Equal(ref, got2)
}

func TestLedgerEvictsOldest(t *testing.T) {
	as := assert.New(t)

	l := NewLedger(2)
	a, b, c := l.NextID(), l.NextID(), l.NextID()
	l.RecordResult(a, &types.MessageRef{RawID: 1})
	l.RecordResult(b, &types.MessageRef{RawID: 2})
	l.RecordResult(c, &types.MessageRef{RawID: 3})

	_, ok := l.Result(a)
	as.False(ok, "oldest entry should be evicted")
	_, ok = l.Result(c)
	as.True(ok)
}

func TestFindMember(t *testing.T) {
	as := assert.New(t)

	l := NewLedger(0)
	_, ok := l.FindMember(42)
	as.False(ok)

	l.CacheMember(&types.MemberInfo{GroupID: 100, ID: 42, Nickname: "moss"})
	m, ok := l.FindMember(42)
	as.True(ok)
	as.Equal(int64(100), m.GroupID)
}
