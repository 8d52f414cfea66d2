package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage 数据报无法解码
	ErrMalformedMessage = errors.New("wire: malformed message")

	// ErrUnknownCommand 未知命令字节（同时满足 errors.Is(err, ErrMalformedMessage)）
	ErrUnknownCommand = fmt.Errorf("%w: unknown command", ErrMalformedMessage)
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}
