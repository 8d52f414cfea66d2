// Package main 提供 wormhole 注册服务守护进程
//
// 使用方法:
//
//	wormhole -port 9300 -workers 8
//	wormhole -config /etc/wormhole.json -metrics-addr 127.0.0.1:9301
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-wormhole"
	"github.com/dep2p/go-wormhole/internal/util/logger"
)

var log = logger.Logger("cmd")

// shutdownTimeout 收到信号后的最长停止时间
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("wormhole", flag.ContinueOnError)
	f, err := parseFlags(fs, args)
	if err != nil {
		return err
	}

	if f.showVersion {
		fmt.Println(wormhole.VersionInfo())
		return nil
	}
	if f.logLevel != "" {
		logger.ApplySpec(f.logLevel)
	}

	cfg, err := buildConfig(f, os.Getenv)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	if f.printConfig {
		data, err := cfg.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	opts := []wormhole.Option{wormhole.WithConfig(cfg)}
	if f.fxDebug {
		opts = append(opts, wormhole.WithFxDebug())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting wormhole", "version", wormhole.Version, "commit", wormhole.GitCommit)
	reg, err := wormhole.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	fmt.Printf("wormhole 注册服务已启动: udp://%s\n", reg.LocalAddr())
	if cfg.Metrics.ListenAddr != "" {
		fmt.Printf("指标: http://%s/metrics\n", cfg.Metrics.ListenAddr)
	}
	fmt.Println("按 Ctrl+C 退出")

	<-ctx.Done()
	fmt.Println("\n正在关闭...")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := reg.Stop(stopCtx); err != nil {
		return fmt.Errorf("关闭失败: %w", err)
	}

	st := reg.Stats()
	log.Info("wormhole stopped", "names", st.Names, "endpoints", st.Endpoints)
	return nil
}
