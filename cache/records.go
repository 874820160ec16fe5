package cache

import "cqbridge/utils"

// RecordMeta 一段语音的已缓存描述：内容散列与下载地址来自事件，
// 无法仅凭句柄推导
type RecordMeta struct {
	MD5 []byte `json:"md5"`
	URL string `json:"url"`
}

// Records 语音句柄（去掉固定后缀）→ 描述
type Records struct {
	m     utils.SyncMap[string, *RecordMeta]
	store *Store // 可选持久层
}

func NewRecords(store *Store) *Records {
	return &Records{store: store}
}

func (r *Records) Put(key string, meta *RecordMeta) {
	if key == "" || meta == nil {
		return
	}
	r.m.Store(key, meta)
	if r.store != nil {
		r.store.PutRecordMeta(key, meta)
	}
}

// Get 查不到是常规的"未找到"，不是错误
func (r *Records) Get(key string) (*RecordMeta, bool) {
	if meta, ok := r.m.Load(key); ok {
		return meta, true
	}
	if r.store != nil {
		if meta, ok := r.store.RecordMeta(key); ok {
			r.m.Store(key, meta)
			return meta, true
		}
	}
	return nil, false
}
