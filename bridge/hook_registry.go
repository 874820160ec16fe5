package bridge

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"cqbridge/bridge/types"
)

type hookRegistry[T any] struct {
	mu    sync.RWMutex
	seq   atomic.Uint64
	items map[types.HookHandle]*hookEntry[T]
}

type hookEntry[T any] struct {
	id       types.HookHandle
	name     string
	priority int
	order    uint64
	handler  T
}

func (r *hookRegistry[T]) register(name string, priority types.HookPriority, handler T) (types.HookHandle, error) {
	if v := reflect.ValueOf(handler); v.Kind() != reflect.Func || v.IsNil() {
		return "", errors.New("hook handler must not be nil")
	}

	seq := r.seq.Add(1)
	id := types.HookHandle(fmt.Sprintf("hook-%d", seq))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.items == nil {
		r.items = make(map[types.HookHandle]*hookEntry[T])
	}
	r.items[id] = &hookEntry[T]{
		id:       id,
		name:     name,
		priority: int(priority),
		order:    seq,
		handler:  handler,
	}
	return id, nil
}

func (r *hookRegistry[T]) unregister(handle types.HookHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[handle]; !ok {
		return false
	}
	delete(r.items, handle)
	return true
}

// snapshot 按优先级从高到低、同级先注册先执行的顺序返回处理器
func (r *hookRegistry[T]) snapshot() []*hookEntry[T] {
	r.mu.RLock()
	out := make([]*hookEntry[T], 0, len(r.items))
	for _, entry := range r.items {
		out = append(out, entry)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].order < out[j].order
	})
	return out
}
