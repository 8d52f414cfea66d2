package wire

import "fmt"

// Kind 命令类型（数据报首字节）
//
// 取值只追加不复用。
type Kind byte

const (
	// KindRegister 注册
	KindRegister Kind = 0x00

	// KindLookup 查询
	KindLookup Kind = 0x01
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindLookup:
		return "lookup"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(k))
	}
}

// Command 解码后的请求
//
// Inner 仅对 KindRegister 有意义。
type Command struct {
	Kind  Kind
	Name  string
	Inner string
}

// Entry 查询应答中的一个端点
type Entry struct {
	// Inner 对端自报地址/元数据
	Inner string

	// Addr 观测地址文本，例如 "1.2.3.4:10"
	Addr string
}
