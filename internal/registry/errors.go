package registry

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-wormhole/config"
)

// 预定义错误
var (
	// ErrInvalidConfiguration 端口或工作协程数非法，构造时返回
	ErrInvalidConfiguration = config.ErrInvalidConfiguration

	// ErrBind 套接字绑定失败
	ErrBind = errors.New("registry: bind failed")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("registry: already started")

	// ErrStopped 服务已停止，不能再次启动
	ErrStopped = errors.New("registry: stopped")

	// ErrNilDirectory 未提供目录
	ErrNilDirectory = errors.New("registry: directory is nil")
)

// BindError 绑定失败详情
//
// errors.Is(err, ErrBind) 成立，Unwrap 返回底层原因。
type BindError struct {
	Addr string
	Err  error
}

// Error 实现 error 接口
func (e *BindError) Error() string {
	return fmt.Sprintf("registry: bind %s: %v", e.Addr, e.Err)
}

// Unwrap 支持 errors.Unwrap
func (e *BindError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrBind) 成立
func (e *BindError) Is(target error) bool {
	return target == ErrBind
}
