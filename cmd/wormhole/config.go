package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/dep2p/go-wormhole/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// 环境变量名
const (
	envPort        = "WORMHOLE_PORT"
	envWorkers     = "WORMHOLE_WORKERS"
	envListenHost  = "WORMHOLE_LISTEN_HOST"
	envMetricsAddr = "WORMHOLE_METRICS_ADDR"
)

// cliFlags 命令行参数
type cliFlags struct {
	configFile  string
	port        int
	workers     int
	listen      string
	metricsAddr string
	logLevel    string
	fxDebug     bool
	printConfig bool
	showVersion bool

	// set 记录显式设置过的参数名
	set map[string]bool
}

// parseFlags 解析参数
func parseFlags(fs *flag.FlagSet, args []string) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}

	fs.StringVar(&f.configFile, "config", "", "配置文件路径（JSON）")
	fs.IntVar(&f.port, "port", 0, "UDP 监听端口")
	fs.IntVar(&f.workers, "workers", 0, "命令处理工作协程数")
	fs.StringVar(&f.listen, "listen", "", "监听地址（默认所有接口）")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "/metrics 监听地址，例如 127.0.0.1:9301")
	fs.StringVar(&f.logLevel, "log-level", "", "日志级别，例如 info 或 registry=debug,info")
	fs.BoolVar(&f.fxDebug, "fx-debug", false, "输出 Fx 依赖注入日志")
	fs.BoolVar(&f.printConfig, "print-config", false, "打印生效配置后退出")
	fs.BoolVar(&f.showVersion, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// buildConfig 合并配置：默认值 < 配置文件 < 环境变量 < 命令行参数
func buildConfig(f *cliFlags, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg, getenv); err != nil {
		return nil, err
	}

	if f.set["port"] {
		cfg.Registry.Port = f.port
	}
	if f.set["workers"] {
		cfg.Registry.Workers = f.workers
	}
	if f.set["listen"] {
		cfg.Registry.ListenHost = f.listen
	}
	if f.set["metrics-addr"] {
		cfg.Metrics.ListenAddr = f.metricsAddr
		if f.metricsAddr != "" {
			cfg.Metrics.Enabled = true
		}
	}
	return cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖配置
//
// 支持的环境变量：
//   - WORMHOLE_PORT: 监听端口
//   - WORMHOLE_WORKERS: 工作协程数
//   - WORMHOLE_LISTEN_HOST: 监听地址
//   - WORMHOLE_METRICS_ADDR: /metrics 监听地址
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(envPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envPort, err)
		}
		cfg.Registry.Port = port
	}

	if v := strings.TrimSpace(getenv(envWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envWorkers, err)
		}
		cfg.Registry.Workers = n
	}

	if v := strings.TrimSpace(getenv(envListenHost)); v != "" {
		cfg.Registry.ListenHost = v
	}

	if v := strings.TrimSpace(getenv(envMetricsAddr)); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = v
	}
	return nil
}
