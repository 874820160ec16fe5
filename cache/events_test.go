package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cqbridge/bridge/types"
)

func TestResolveOnce(t *testing.T) {
	as := assert.New(t)

	e := NewEvents(nil)
	e.Put(&types.RequestEvent{Token: "f1", Kind: types.RequestFriend, UserID: 42})

	evt, err := e.Resolve("f1", StateAccepted)
	as.NoError(err)
	as.Equal(int64(42), evt.UserID)

	// 任何后续处置都是干净的失败
	_, err = e.Resolve("f1", StateAccepted)
	as.ErrorIs(err, ErrAlreadyResolved)
	_, err = e.Resolve("f1", StateRejected)
	as.ErrorIs(err, ErrAlreadyResolved)

	state, ok := e.State("f1")
	as.True(ok)
	as.Equal(StateAccepted, state)
}

func TestResolveUnknownToken(t *testing.T) {
	as := assert.New(t)

	e := NewEvents(nil)
	_, err := e.Resolve("never-issued", StateAccepted)
	as.ErrorIs(err, ErrUnknownRequest)
}

func TestDispositionCapabilities(t *testing.T) {
	as := assert.New(t)

	e := NewEvents(nil)
	e.Put(&types.RequestEvent{Token: "inv", Kind: types.RequestGroupInvite, GroupID: 9})
	e.Put(&types.RequestEvent{Token: "fr", Kind: types.RequestFriend, UserID: 1})

	// 群邀请不支持拒绝
	_, err := e.Resolve("inv", StateRejected)
	as.ErrorIs(err, ErrUnsupportedDisposition)
	// 失败的处置不消耗请求
	_, err = e.Resolve("inv", StateIgnored)
	as.NoError(err)

	// 好友请求不支持忽略
	_, err = e.Resolve("fr", StateIgnored)
	as.ErrorIs(err, ErrUnsupportedDisposition)
	_, err = e.Resolve("fr", StateRejected)
	as.NoError(err)
}

func TestGetSkipsResolved(t *testing.T) {
	as := assert.New(t)

	e := NewEvents(nil)
	e.Put(&types.RequestEvent{Token: "g1", Kind: types.RequestGroupJoinApplication, GroupID: 100, UserID: 7})

	evt, ok := e.Get("g1")
	as.True(ok)
	as.Equal(int64(100), evt.GroupID)

	_, err := e.Resolve("g1", StateIgnored)
	as.NoError(err)
	_, ok = e.Get("g1")
	as.False(ok)
}

func TestJournalKeepsResolvedAcrossRestart(t *testing.T) {
	as := assert.New(t)

	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	e := NewEvents(store)
	e.Put(&types.RequestEvent{Token: "j1", Kind: types.RequestGroupJoinApplication, GroupID: 5, UserID: 6})
	_, err = e.Resolve("j1", StateAccepted)
	as.NoError(err)

	// 重启后重新投递同一个请求号：日志里已有处置，不再登记
	e2 := NewEvents(store)
	e2.Put(&types.RequestEvent{Token: "j1", Kind: types.RequestGroupJoinApplication, GroupID: 5, UserID: 6})
	_, err = e2.Resolve("j1", StateAccepted)
	as.ErrorIs(err, ErrUnknownRequest)
}

func TestStoreRecordMetaRoundTrip(t *testing.T) {
	as := assert.New(t)

	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	r := NewRecords(store)
	_, ok := r.Get("absent")
	as.False(ok)

	r.Put("abc", &RecordMeta{MD5: []byte{1, 2, 3}, URL: "http://example.com/rec"})

	// 新的 Records 实例应能从持久层读回
	r2 := NewRecords(store)
	meta, ok := r2.Get("abc")
	as.True(ok)
	as.Equal([]byte{1, 2, 3}, meta.MD5)
	as.Equal("http://example.com/rec", meta.URL)
}
