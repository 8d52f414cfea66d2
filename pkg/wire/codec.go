package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

const (
	// lengthSize 长度前缀字节数
	lengthSize = 4

	// countSize 应答中端点数量字段字节数
	countSize = 4
)

// MaxDatagramSize IPv4 UDP 数据报最大负载，接收缓冲区按此分配
const MaxDatagramSize = 65507

// ============================================================================
//                              请求解码
// ============================================================================

// Decode 解码一个请求数据报
//
// 命令负载之后的多余字节会被忽略。服务名为空视为格式错误。
// 返回的字符串不引用 b，调用方可以复用缓冲区。
func Decode(b []byte) (Command, error) {
	if len(b) < 1 {
		return Command{}, malformed("empty datagram")
	}

	r := reader{buf: b[1:]}
	cmd := Command{Kind: Kind(b[0])}

	switch cmd.Kind {
	case KindRegister:
		name, err := r.readString()
		if err != nil {
			return Command{}, err
		}
		inner, err := r.readString()
		if err != nil {
			return Command{}, err
		}
		cmd.Name, cmd.Inner = name, inner
	case KindLookup:
		name, err := r.readString()
		if err != nil {
			return Command{}, err
		}
		cmd.Name = name
	default:
		return Command{}, ErrUnknownCommand
	}

	if cmd.Name == "" {
		return Command{}, malformed("empty service name")
	}
	return cmd, nil
}

// ============================================================================
//                              请求编码
// ============================================================================

// EncodeRegister 编码注册请求
func EncodeRegister(name, inner string) []byte {
	b := make([]byte, 0, 1+2*lengthSize+len(name)+len(inner))
	b = append(b, byte(KindRegister))
	b = appendString(b, name)
	return appendString(b, inner)
}

// EncodeLookup 编码查询请求
func EncodeLookup(name string) []byte {
	b := make([]byte, 0, 1+lengthSize+len(name))
	b = append(b, byte(KindLookup))
	return appendString(b, name)
}

// EncodeCommand 按 Kind 编码请求
func EncodeCommand(cmd Command) ([]byte, error) {
	switch cmd.Kind {
	case KindRegister:
		return EncodeRegister(cmd.Name, cmd.Inner), nil
	case KindLookup:
		return EncodeLookup(cmd.Name), nil
	default:
		return nil, ErrUnknownCommand
	}
}

// ============================================================================
//                              查询应答
// ============================================================================

// EncodeLookupReply 编码查询应答
//
// maxSize > 0 时应答不超过 maxSize 字节：只编码能放下的最长前缀，
// 返回值 n 为实际编码的端点数（即应答中的 N）。
func EncodeLookupReply(entries []Entry, maxSize int) ([]byte, int) {
	size := countSize
	n := 0
	for _, e := range entries {
		sz := entrySize(e)
		if maxSize > 0 && size+sz > maxSize {
			break
		}
		size += sz
		n++
	}

	b := make([]byte, countSize, size)
	binary.BigEndian.PutUint32(b, uint32(n))
	for _, e := range entries[:n] {
		b = appendString(b, e.Inner)
		b = appendString(b, e.Addr)
	}
	return b, n
}

// DecodeLookupReply 解码查询应答
func DecodeLookupReply(b []byte) ([]Entry, error) {
	r := reader{buf: b}
	count, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, malformed("negative endpoint count %d", count)
	}
	// 每个端点至少占两个长度前缀
	if int64(count)*2*lengthSize > int64(r.remaining()) {
		return nil, malformed("endpoint count %d exceeds payload", count)
	}

	entries := make([]Entry, 0, count)
	for i := int32(0); i < count; i++ {
		inner, err := r.readString()
		if err != nil {
			return nil, err
		}
		addr, err := r.readString()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Inner: inner, Addr: addr})
	}
	return entries, nil
}

func entrySize(e Entry) int {
	return 2*lengthSize + len(e.Inner) + len(e.Addr)
}

// ============================================================================
//                              读写辅助
// ============================================================================

func appendString(b []byte, s string) []byte {
	if len(s) > math.MaxInt32 {
		s = s[:math.MaxInt32]
	}
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// reader 对不可信缓冲区的顺序读取
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) readInt32() (int32, error) {
	if r.remaining() < lengthSize {
		return 0, malformed("truncated length prefix at offset %d", r.off)
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += lengthSize
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", malformed("negative string length %d", n)
	}
	if int(n) > r.remaining() {
		return "", malformed("string length %d exceeds remaining %d bytes", n, r.remaining())
	}

	raw := r.buf[r.off : r.off+int(n)]
	if !utf8.Valid(raw) {
		return "", malformed("string at offset %d is not valid UTF-8", r.off)
	}
	r.off += int(n)
	return string(raw), nil
}
