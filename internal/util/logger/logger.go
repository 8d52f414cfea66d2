package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler

	// applyMu 串行化 ApplySpec，避免并发调用互相覆盖
	applyMu sync.Mutex
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回相同实例，级别来自 WORMHOLE_LOG_LEVEL。
//
// 示例:
//
//	var log = logger.Logger("registry")
//	log.Info("registry bound", "addr", addr)
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	h := newHandler(subsystem, cfg.LevelForSubsystem(subsystem), cfg)

	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// SetGlobalLevel 设置所有已创建子系统的日志级别
func SetGlobalLevel(level slog.Level) {
	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).SetLevel(level)
		return true
	})
}

// ApplySpec 在运行时应用级别配置字符串（格式同 WORMHOLE_LOG_LEVEL）
//
// 已创建的 Logger 立即生效，之后创建的 Logger 也使用新配置。
func ApplySpec(spec string) {
	applyMu.Lock()
	defer applyMu.Unlock()

	cfg := ConfigFromEnv().clone()
	parseLevelSpec(cfg, spec)
	configCache.Store(cfg)

	handlers.Range(func(key, value any) bool {
		value.(*subsystemHandler).SetLevel(cfg.LevelForSubsystem(key.(string)))
		return true
	})
}

// Discard 返回一个丢弃所有日志的 Logger（用于测试）
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 通过 dynamicWriter 自动重定向。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
