package bridge

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"cqbridge/bridge/types"
	"cqbridge/cache"
)

// 媒体按内容键寻址：文件名是内容键 MD5 的 32 位小写十六进制，
// 已落盘的句柄直接复用本地文件，不再下载。下载本身走通用任务队列，
// 但调用方同步等待结果，插件期望拿到可用的文件路径。

// 句柄的固定后缀，去掉后才是内容键
const (
	imageHandleSuffix  = ".mnimg"
	recordHandleSuffix = ".mnrec"
)

// GetImage 把图片句柄换成本地文件的绝对路径，任何失败返回空串
func (b *Bridge) GetImage(pluginID int32, handle string) string {
	return call(b, pluginID, "", "fetch image failed", func() (string, error) {
		key := strings.TrimSuffix(handle, imageHandleSuffix)
		if key == "" {
			return "", fmt.Errorf("empty image handle")
		}

		name := contentHashName([]byte(key)) + ".jpg"
		path, err := filepath.Abs(filepath.Join(b.imageDir, name))
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		url, err := b.session.ImageURLGet(key)
		if err != nil || url == "" {
			return "", fmt.Errorf("no download url for image %q: %w", key, err)
		}
		if err := b.download(url, path); err != nil {
			return "", err
		}
		return path, nil
	})
}

// GetRecord 把语音句柄换成本地文件路径。散列与下载地址来自收到
// 语音消息时缓存的描述，查不到描述是常规的未找到，返回空串。
func (b *Bridge) GetRecord(pluginID int32, handle string, format string) string {
	return call(b, pluginID, "", "fetch record failed", func() (string, error) {
		key := strings.TrimSuffix(handle, recordHandleSuffix)
		if key == "" {
			return "", fmt.Errorf("empty record handle")
		}
		meta, ok := b.records.Get(key)
		if !ok {
			b.log.Debugf("record %q has no cached description", key)
			return "", nil
		}

		ext := "silk"
		if format != "" {
			ext = format
		}
		name := hexPad32(meta.MD5) + "." + ext
		path, err := filepath.Abs(filepath.Join(b.recordDir, name))
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		if meta.URL == "" {
			return "", fmt.Errorf("no download url for record %q", key)
		}
		if err := b.download(meta.URL, path); err != nil {
			return "", err
		}
		return path, nil
	})
}

// download 在通用任务队列里抓取 url 到 path，调用方阻塞等待。
// 先写临时文件再改名，失败不留半截文件。桥接已停止时任务不会再被
// 执行，这里按下载失败处理而不是等一个永远不来的结果。
func (b *Bridge) download(url, path string) error {
	done := make(chan error, 1)
	accepted := b.sched.submitGeneral(func() error {
		err := b.fetchToFile(url, path)
		done <- err
		return err
	})
	if !accepted {
		return fmt.Errorf("download %s: bridge is shutting down", url)
	}
	select {
	case err := <-done:
		return err
	case <-b.sched.stopped:
		return fmt.Errorf("download %s: bridge is shutting down", url)
	}
}

func (b *Bridge) fetchToFile(url, path string) error {
	if b.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), b.client.Timeout)
		defer cancel()
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("download rate limit: %w", err)
		}
	}

	resp, err := b.client.Get(url)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// cacheRecordMeta 收到语音消息时登记其描述，GetRecord 靠它定位
func (b *Bridge) cacheRecordMeta(segments types.MessageSegments) {
	for _, elem := range segments {
		rec, ok := elem.(*types.RecordElement)
		if !ok || rec.Key == "" {
			continue
		}
		sum := md5.Sum([]byte(rec.Key))
		b.records.Put(rec.Key, &cache.RecordMeta{MD5: sum[:], URL: rec.URL})
	}
}

func contentHashName(key []byte) string {
	sum := md5.Sum(key)
	return hex.EncodeToString(sum[:])
}

// hexPad32 小写十六进制，不足 32 位左侧补零
func hexPad32(digest []byte) string {
	s := hex.EncodeToString(digest)
	if len(s) >= 32 {
		return s
	}
	return strings.Repeat("0", 32-len(s)) + s
}
