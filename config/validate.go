package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration 配置非法
//
// 所有校验失败都包装此错误，调用方使用 errors.Is 判断。
var ErrInvalidConfiguration = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// ValidateAll 验证整个配置，nil 视为非法
func ValidateAll(c *Config) error {
	if c == nil {
		return invalid("config is nil")
	}
	return c.Validate()
}

// MustValidate 验证配置，失败则 panic（仅用于初始化阶段或测试）
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(err)
	}
}
