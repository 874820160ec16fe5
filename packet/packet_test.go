package packet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStringRoundTrip(t *testing.T) {
	as := assert.New(t)

	for _, s := range []string{"", "hello", "你好，世界", "mixed 文本 with ascii", "①②③"} {
		var b Builder
		as.NoError(b.WriteString(s))

		r := NewReader(b.Bytes())
		got, err := r.ReadString()
		as.NoError(err)
		as.Equal(s, got)
		as.Zero(r.Remaining())
	}
}

func TestWriteStringLengthPrefixIsByteCount(t *testing.T) {
	as := assert.New(t)

	var b Builder
	// GB18030 编码下一个汉字占 2 字节
	as.NoError(b.WriteString("好"))

	data := b.Bytes()
	require.Len(t, data, 4)
	as.Equal(byte(0), data[0])
	as.Equal(byte(2), data[1])
}

func TestWriteStringTooLong(t *testing.T) {
	as := assert.New(t)

	var b Builder
	err := b.WriteString(strings.Repeat("a", 0x10000))
	as.ErrorIs(err, ErrStringTooLong)
}

func TestWriteStringMaxLength(t *testing.T) {
	as := assert.New(t)

	s := strings.Repeat("a", 0xFFFF)
	var b Builder
	as.NoError(b.WriteString(s))

	got, err := NewReader(b.Bytes()).ReadString()
	as.NoError(err)
	as.Equal(s, got)
}

func TestIntegersAreBigEndian(t *testing.T) {
	as := assert.New(t)

	var b Builder
	b.WriteInt32(0x01020304)
	as.Equal([]byte{1, 2, 3, 4}, b.Bytes())

	var b2 Builder
	b2.WriteInt64(0x0102030405060708)
	as.Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}, b2.Bytes())
}

func TestBoolEncodedAsInt32(t *testing.T) {
	as := assert.New(t)

	var b Builder
	b.WriteBool(true)
	b.WriteBool(false)
	as.Equal([]byte{0, 0, 0, 1, 0, 0, 0, 0}, b.Bytes())

	r := NewReader(b.Bytes())
	v, err := r.ReadBool()
	as.NoError(err)
	as.True(v)
	v, err = r.ReadBool()
	as.NoError(err)
	as.False(v)
}

func TestListRoundTripKeepsOrder(t *testing.T) {
	as := assert.New(t)

	items := []string{"alpha", "beta", "gamma", "delta"}
	var b Builder
	as.NoError(b.WriteList(len(items), func(i int, inner *Builder) error {
		inner.WriteInt64(int64(i))
		return inner.WriteString(items[i])
	}))

	var got []string
	n, err := NewReader(b.Bytes()).ReadList(func(i int, item *Reader) error {
		id, err := item.ReadInt64()
		as.NoError(err)
		as.Equal(int64(i), id)
		s, err := item.ReadString()
		if err != nil {
			return err
		}
		got = append(got, s)
		return nil
	})
	as.NoError(err)
	as.Equal(len(items), n)
	as.Equal(items, got)
}

func TestShortLVAllowsSkippingUnknownFields(t *testing.T) {
	as := assert.New(t)

	// 写入方比读取方多一个尾部字段
	var b Builder
	as.NoError(b.WriteShortLV(func(inner *Builder) error {
		inner.WriteInt64(42)
		if err := inner.WriteString("nick"); err != nil {
			return err
		}
		inner.WriteInt32(7) // 读取方不认识的新字段
		return nil
	}))
	b.WriteInt32(99) // 记录后面的下一个字段

	r := NewReader(b.Bytes())
	raw, err := r.ReadShortLV()
	as.NoError(err)

	item := NewReader(raw)
	id, err := item.ReadInt64()
	as.NoError(err)
	as.Equal(int64(42), id)
	nick, err := item.ReadString()
	as.NoError(err)
	as.Equal("nick", nick)
	// 未读完的字段被长度前缀隔离，不影响外层游标
	as.Positive(item.Remaining())

	next, err := r.ReadInt32()
	as.NoError(err)
	as.Equal(int32(99), next)
}

func TestReaderShortData(t *testing.T) {
	as := assert.New(t)

	r := NewReader([]byte{0, 5, 'a'})
	_, err := r.ReadString()
	as.ErrorIs(err, ErrShortRead)

	_, err = NewReader([]byte{1}).ReadInt32()
	as.ErrorIs(err, ErrShortRead)
}

func TestBase64RoundTrip(t *testing.T) {
	as := assert.New(t)

	var b Builder
	b.WriteInt64(10001)
	as.NoError(b.WriteString("测试"))

	r, err := FromBase64(b.Base64())
	as.NoError(err)
	id, err := r.ReadInt64()
	as.NoError(err)
	as.Equal(int64(10001), id)
	s, err := r.ReadString()
	as.NoError(err)
	as.Equal("测试", s)
}
