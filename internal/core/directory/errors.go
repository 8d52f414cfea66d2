package directory

import "errors"

var (
	// ErrEmptyName 服务名为空
	ErrEmptyName = errors.New("directory: empty service name")

	// ErrTooManyNames 超过最大服务名数量
	ErrTooManyNames = errors.New("directory: too many names")

	// ErrTooManyEndpoints 超过每个服务名的最大端点数
	ErrTooManyEndpoints = errors.New("directory: too many endpoints for name")
)
