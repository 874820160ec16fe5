package cache

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/tidwall/buntdb"
	"go.uber.org/zap"
)

var keyEncoding = base64.RawURLEncoding

// Store 基于 buntdb 的可选持久层：保存语音描述与请求处置日志，
// 让已处置的请求跨重启仍是空操作。
type Store struct {
	db *buntdb.DB
}

// OpenStore path 为 ":memory:" 时使用内存库
func OpenStore(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKeyPart(value string) string {
	if value == "" {
		return "_"
	}
	return keyEncoding.EncodeToString([]byte(value))
}

func recordMetaKey(key string) string {
	return "recmeta:" + encodeKeyPart(key)
}

func requestKey(token string) string {
	return "reqdone:" + encodeKeyPart(token)
}

// PutRecordMeta 持久化语音描述，失败只记日志
func (s *Store) PutRecordMeta(key string, meta *RecordMeta) {
	raw, err := json.Marshal(meta)
	if err != nil {
		zap.S().Named("cache").Warnf("record meta marshal failed: %v", err)
		return
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(recordMetaKey(key), string(raw), nil)
		return err
	})
	if err != nil {
		zap.S().Named("cache").Warnf("record meta store failed: %v", err)
	}
}

// RecordMeta 读取持久化的语音描述
func (s *Store) RecordMeta(key string) (*RecordMeta, bool) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(recordMetaKey(key))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err != nil {
		if !errors.Is(err, buntdb.ErrNotFound) {
			zap.S().Named("cache").Warnf("record meta load failed: %v", err)
		}
		return nil, false
	}

	var meta RecordMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		zap.S().Named("cache").Warnf("record meta decode failed: %v", err)
		return nil, false
	}
	return &meta, true
}

// MarkRequestResolved 记录请求的最终处置
func (s *Store) MarkRequestResolved(token string, state RequestState) {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(requestKey(token), strconv.Itoa(int(state)), nil)
		return err
	})
	if err != nil {
		zap.S().Named("cache").Warnf("request journal store failed: %v", err)
	}
}

// RequestResolved 请求是否已有最终处置
func (s *Store) RequestResolved(token string) bool {
	err := s.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(requestKey(token))
		return err
	})
	return err == nil
}
