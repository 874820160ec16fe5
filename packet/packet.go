// Package packet implements the fixed binary record layout exchanged with
// legacy native plugins: big-endian fixed-width integers, GB18030 strings
// prefixed with a 16-bit byte count, and length-prefixed nested records so
// that older readers can skip fields they do not understand.
package packet

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"

	"golang.org/x/text/encoding/simplifiedchinese"
)

var (
	// ErrStringTooLong 字符串编码后超过 65535 字节
	ErrStringTooLong = errors.New("packet: encoded string exceeds 65535 bytes")
	// ErrShortRead 数据不足
	ErrShortRead = errors.New("packet: unexpected end of data")
)

// Builder 构建一个发往插件侧的二进制记录
type Builder struct {
	buf bytes.Buffer
}

func (b *Builder) WriteInt32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.buf.Write(tmp[:])
}

func (b *Builder) WriteInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	b.buf.Write(tmp[:])
}

// WriteBool 布尔按 32 位整数 0/1 写入，而不是单字节
func (b *Builder) WriteBool(v bool) {
	if v {
		b.WriteInt32(1)
	} else {
		b.WriteInt32(0)
	}
}

// WriteString 以 GB18030 重编码文本并写入 16 位长度前缀
func (b *Builder) WriteString(s string) error {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	if len(encoded) > 0xFFFF {
		return ErrStringTooLong
	}
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(encoded)))
	b.buf.Write(tmp[:])
	b.buf.Write(encoded)
	return nil
}

// WriteShortLV 先写入 16 位长度占位，再把 fn 的输出回填进去。
// 列表元素和嵌套的成员/联系人记录都用这种形式，未来新增字段时旧的
// 读取方可以按长度跳过。
func (b *Builder) WriteShortLV(fn func(*Builder) error) error {
	var inner Builder
	if err := fn(&inner); err != nil {
		return err
	}
	data := inner.Bytes()
	if len(data) > 0xFFFF {
		return ErrStringTooLong
	}
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(data)))
	b.buf.Write(tmp[:])
	b.buf.Write(data)
	return nil
}

// WriteList 写入 32 位元素个数，随后逐个写入带长度前缀的元素
func (b *Builder) WriteList(n int, item func(i int, b *Builder) error) error {
	b.WriteInt32(int32(n))
	for i := 0; i < n; i++ {
		if err := b.WriteShortLV(func(inner *Builder) error {
			return item(i, inner)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Builder) Len() int {
	return b.buf.Len()
}

// Base64 返回记录的 base64 编码，跨边界的应答固定使用该形式
func (b *Builder) Base64() string {
	return base64.StdEncoding.EncodeToString(b.buf.Bytes())
}

// Reader 是 Builder 的结构化逆操作
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func FromBase64(s string) (*Reader, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return NewReader(data), nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, ErrShortRead
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	raw, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw)), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	raw, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *Reader) ReadString() (string, error) {
	raw, err := r.ReadShortLV()
	if err != nil {
		return "", err
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ReadShortLV 读取一个 16 位长度前缀的数据段
func (r *Reader) ReadShortLV() ([]byte, error) {
	raw, err := r.take(2)
	if err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(raw))
	return r.take(length)
}

// ReadList 读取 32 位元素个数并对每个带长度前缀的元素调用 fn。
// fn 收到的是元素自身的 Reader，读不完允许剩余（跳过未知字段）。
func (r *Reader) ReadList(fn func(i int, item *Reader) error) (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	for i := 0; i < int(n); i++ {
		raw, err := r.ReadShortLV()
		if err != nil {
			return i, err
		}
		if err := fn(i, NewReader(raw)); err != nil {
			return i, err
		}
	}
	return int(n), nil
}

// Remaining 返回未读字节数
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}
