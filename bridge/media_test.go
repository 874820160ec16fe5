package bridge

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cqbridge/adapters"
	"cqbridge/bridge/types"
)

func TestGetImageDownloadsOnce(t *testing.T) {
	as := assert.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	session := newFakeSession()
	session.imageURLs["abcdef"] = srv.URL
	b := newTestBridge(t, session)

	path := b.GetImage(1, "abcdef.mnimg")
	as.NotEmpty(path)
	as.True(filepath.IsAbs(path))

	sum := md5.Sum([]byte("abcdef"))
	as.Equal(hex.EncodeToString(sum[:])+".jpg", filepath.Base(path))

	data, err := os.ReadFile(path)
	as.NoError(err)
	as.Equal("jpeg-bytes", string(data))

	// 再取同一句柄直接命中本地文件，不再下载
	as.Equal(path, b.GetImage(1, "abcdef.mnimg"))
	as.EqualValues(1, hits.Load())
}

func TestGetImageFailureLeavesNoFile(t *testing.T) {
	as := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	session := newFakeSession()
	session.imageURLs["gone"] = srv.URL
	b := newTestBridge(t, session)

	as.Empty(b.GetImage(1, "gone.mnimg"))

	entries, err := os.ReadDir(b.imageDir)
	as.NoError(err)
	as.Empty(entries, "a failed download must not leave a partial file")
}

func TestGetImageUnknownHandle(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())
	as.Empty(b.GetImage(1, "nosuch.mnimg"))
}

func TestGetRecordFromCachedMeta(t *testing.T) {
	as := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("silk-bytes"))
	}))
	defer srv.Close()

	session := newFakeSession()
	b := newTestBridge(t, session)

	// 语音消息到达时缓存其描述
	session.cb.OnMessageReceived(&adapters.MessageSendCallbackInfo{
		Sender: &adapters.SimpleUserInfo{UserID: 200},
		Message: &types.MessageRef{
			Scene:    types.ScenePrivate,
			TargetID: 200,
			Segments: types.MessageSegments{&types.RecordElement{Key: "voice-1", URL: srv.URL}},
		},
	})

	path := b.GetRecord(1, "voice-1.mnrec", "silk")
	as.NotEmpty(path)
	as.Equal(".silk", filepath.Ext(path))
	as.Len(filepath.Base(path), 32+len(".silk"))

	data, err := os.ReadFile(path)
	as.NoError(err)
	as.Equal("silk-bytes", string(data))
}

func TestGetImageFailsAfterClose(t *testing.T) {
	as := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	session := newFakeSession()
	session.imageURLs["late"] = srv.URL
	b := newTestBridge(t, session)
	b.Close()

	// 桥接停止后下载不再被执行，调用按失败返回空串而不是挂死
	result := make(chan string, 1)
	go func() {
		result <- b.GetImage(1, "late.mnimg")
	}()
	select {
	case path := <-result:
		as.Empty(path)
	case <-time.After(2 * time.Second):
		t.Fatal("GetImage must fail promptly once the bridge is closed")
	}
}

func TestGetRecordWithoutMetaIsNotFound(t *testing.T) {
	as := assert.New(t)
	b := newTestBridge(t, newFakeSession())
	as.Empty(b.GetRecord(1, "never-seen.mnrec", "silk"))
}

func TestHexPad32(t *testing.T) {
	as := assert.New(t)
	as.Equal("000000000000000000000000000000ab", hexPad32([]byte{0xab}))
	sum := md5.Sum([]byte("x"))
	as.Len(hexPad32(sum[:]), 32)
}
