// Package main 提供 wormhole 注册服务的命令行客户端
//
// 使用方法:
//
//	wormhole-ctl -server 1.2.3.4:9300 register game-lobby 192.168.1.5:4000
//	wormhole-ctl -server 1.2.3.4:9300 lookup game-lobby
//	wormhole-ctl -server 1.2.3.4:9300 -json lookup game-lobby chat
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dep2p/go-wormhole/pkg/client"
)

// errUsage 参数错误
var errUsage = errors.New("usage: wormhole-ctl [flags] register <name> <inner> | lookup <name>...")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("wormhole-ctl", flag.ContinueOnError)
	server := fs.String("server", "127.0.0.1:9300", "注册服务地址")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "每次查询等待应答的时长")
	attempts := fs.Int("attempts", client.DefaultAttempts, "查询最多发送次数")
	asJSON := fs.Bool("json", false, "以 JSON 输出查询结果")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	opts := []client.Option{client.WithTimeout(*timeout), client.WithAttempts(*attempts)}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*attempts+1)*(*timeout))
	defer cancel()

	switch rest[0] {
	case "register":
		if len(rest) != 3 {
			return errUsage
		}
		return register(ctx, *server, rest[1], rest[2], opts, out)
	case "lookup":
		if len(rest) < 2 {
			return errUsage
		}
		return lookup(ctx, *server, rest[1:], *asJSON, opts, out)
	default:
		return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
	}
}

func register(ctx context.Context, server, name, inner string, opts []client.Option, out io.Writer) error {
	c, err := client.Dial(server, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Register(ctx, name, inner); err != nil {
		return err
	}
	fmt.Fprintf(out, "已发送注册 %s (inner=%s, local=%s)\n", name, inner, c.LocalAddr())
	return nil
}

func lookup(ctx context.Context, server string, names []string, asJSON bool, opts []client.Option, out io.Writer) error {
	results, err := client.LookupMany(ctx, server, names, opts...)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		peers := results[name]
		fmt.Fprintf(out, "%s (%d)\n", name, len(peers))
		for _, p := range peers {
			nat := ""
			if p.BehindNAT() {
				nat = " nat"
			}
			fmt.Fprintf(out, "  %-24s %-8s inner=%s%s\n", p.Addr, p.Scope(), p.Inner, nat)
		}
	}
	return nil
}
