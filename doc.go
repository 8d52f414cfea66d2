// Package wormhole 提供基于 UDP 的会合注册服务
//
// 对端以服务名登记自己可达的地址，其他对端按服务名查询全部已登记地址，
// 之后直接互连（例如 NAT 打洞）。注册服务只负责交换地址，不中转流量。
//
// # 快速开始
//
//	import "github.com/dep2p/go-wormhole"
//
//	reg, err := wormhole.Start(ctx,
//	    wormhole.WithPort(9300),
//	    wormhole.WithWorkers(8),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
// 对端通过 pkg/client 登记与查询：
//
//	c, _ := client.Dial("registry.example.com:9300")
//	_ = c.Register(ctx, "game-lobby", "192.168.1.5:4000")
//	peers, _ := c.Lookup(ctx, "game-lobby")
//
// # 端点
//
// 一个端点由三部分确定：
//
//   - Name: 服务名
//   - Inner: 对端自报的地址或元数据，注册服务不解析
//   - Observed: 注册数据报实际到达时的来源地址（公网映射）
//
// 三者全部相同的重复注册不产生新条目；同一对端换了来源地址
// （NAT 重新映射）会产生第二个条目。
//
// # 协议
//
// 每个数据报一条命令，首字节为命令：
//
//	0x00 注册  [int32 len][name][int32 len][inner]
//	0x01 查询  [int32 len][name]
//
// 查询应答：[int32 N] 后跟 N 组 [int32 len][inner][int32 len][addr]。
// 编解码见 pkg/wire。格式错误的数据报被静默丢弃。
//
// # 包结构
//
//	wormhole/
//	├── wormhole.go     # Registry、New()、Start/Stop/Close、查询
//	├── fx.go           # Fx 应用组装
//	├── options.go      # WithXxx 配置选项
//	├── types.go        # 公共类型
//	├── errors.go       # 错误定义
//	└── version.go      # 版本信息
//
// 更多信息请访问: https://github.com/dep2p/go-wormhole
package wormhole
