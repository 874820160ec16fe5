package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cqbridge/bridge/types"
)

func TestHookOrdering(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())

	var order []string
	mk := func(name string) types.MessageHook {
		return func(int32, *types.MessageRef) types.HookResult {
			order = append(order, name)
			return types.HookResultContinue
		}
	}

	_, _ = b.RegisterMessageHook("low", types.HookPriorityLow, mk("low"))
	_, _ = b.RegisterMessageHook("high", types.HookPriorityHigh, mk("high"))
	_, _ = b.RegisterMessageHook("normal-1", types.HookPriorityNormal, mk("normal-1"))
	_, _ = b.RegisterMessageHook("normal-2", types.HookPriorityNormal, mk("normal-2"))

	b.runMessageHooks(1, &types.MessageRef{})
	as.Equal([]string{"high", "normal-1", "normal-2", "low"}, order)
}

func TestHookStopHaltsChain(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())

	var ran []string
	_, _ = b.RegisterMessageHook("first", types.HookPriorityHigh, func(int32, *types.MessageRef) types.HookResult {
		ran = append(ran, "first")
		return types.HookResultStop
	})
	_, _ = b.RegisterMessageHook("second", types.HookPriorityNormal, func(int32, *types.MessageRef) types.HookResult {
		ran = append(ran, "second")
		return types.HookResultContinue
	})

	b.runMessageHooks(1, &types.MessageRef{})
	as.Equal([]string{"first"}, ran)
}

func TestHookUnregister(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())

	var count int
	handle, err := b.RegisterMessageHook("test", types.HookPriorityNormal, func(int32, *types.MessageRef) types.HookResult {
		count++
		return types.HookResultContinue
	})
	as.NoError(err)

	b.runMessageHooks(1, &types.MessageRef{})
	as.Equal(1, count)

	as.True(b.UnregisterMessageHook(handle))
	as.False(b.UnregisterMessageHook(handle))

	b.runMessageHooks(1, &types.MessageRef{})
	as.Equal(1, count)
}

func TestHookNilHandlerRejected(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())
	_, err := b.RegisterMessageHook("bad", types.HookPriorityNormal, nil)
	as.Error(err)
}
