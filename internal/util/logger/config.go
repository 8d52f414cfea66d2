// Package logger 提供 wormhole 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 环境变量配置（WORMHOLE_LOG_LEVEL, WORMHOLE_LOG_FORMAT, WORMHOLE_LOG_ADD_SOURCE）
//   - 运行时通过 ApplySpec 调整级别（命令行 -log-level）
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// 环境变量名
const (
	EnvLevel     = "WORMHOLE_LOG_LEVEL"
	EnvFormat    = "WORMHOLE_LOG_FORMAT"
	EnvAddSource = "WORMHOLE_LOG_ADD_SOURCE"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

// LevelForSubsystem 获取指定子系统的日志级别
//
// 子系统名按 "." 分段回退：registry.loop 未配置时使用 registry 的级别。
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	for name := subsystem; name != ""; {
		if level, ok := c.SubsystemLevels[name]; ok {
			return level
		}
		idx := strings.LastIndex(name, ".")
		if idx < 0 {
			break
		}
		name = name[:idx]
	}
	return c.DefaultLevel
}

var (
	// configCache 当前生效的配置，发布后只读，ApplySpec 以副本替换
	configCache atomic.Pointer[Config]
	configOnce  sync.Once
)

// clone 深拷贝配置
func (c *Config) clone() *Config {
	cp := *c
	cp.SubsystemLevels = make(map[string]slog.Level, len(c.SubsystemLevels))
	for k, v := range c.SubsystemLevels {
		cp.SubsystemLevels[k] = v
	}
	return &cp
}

// ConfigFromEnv 从环境变量解析配置（结果缓存）
//
// 环境变量:
//   - WORMHOLE_LOG_LEVEL: 子系统=级别,子系统=级别,默认级别
//     示例: registry=debug,workerpool=warn,info
//   - WORMHOLE_LOG_FORMAT: text 或 json
//   - WORMHOLE_LOG_ADD_SOURCE: true 或 false
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache.Store(parseConfig())
	})
	return configCache.Load()
}

func parseConfig() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}

	if spec := os.Getenv(EnvLevel); spec != "" {
		parseLevelSpec(cfg, spec)
	}

	if format := os.Getenv(EnvFormat); strings.EqualFold(format, "json") {
		cfg.Format = FormatJSON
	}

	if v := os.Getenv(EnvAddSource); v != "" {
		cfg.AddSource = v != "false" && v != "0"
	}

	return cfg
}

// parseLevelSpec 解析级别配置字符串
// 格式: subsystem=level,subsystem=level,defaultLevel
func parseLevelSpec(cfg *Config, spec string) {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		subsystem, levelName, found := strings.Cut(part, "=")
		if !found {
			if level, ok := ParseLevel(part); ok {
				cfg.DefaultLevel = level
			}
			continue
		}
		if level, ok := ParseLevel(strings.TrimSpace(levelName)); ok {
			cfg.SubsystemLevels[strings.TrimSpace(subsystem)] = level
		}
	}
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ResetConfig 重置配置缓存（仅用于测试）
func ResetConfig() {
	configOnce = sync.Once{}
	configCache.Store(nil)
}
