// Package metrics 提供基于 Prometheus 的注册服务观测
//
// Metrics 实现 registry.Observer，把接收路径上被吞掉的失败
// （格式错误、限流、队列饱和、应答发送失败、任务 panic）变成可观测的计数：
//
//	wormhole_datagrams_received_total
//	wormhole_datagrams_dropped_total{reason}
//	wormhole_commands_total{command}
//	wormhole_command_failures_total{command}
//	wormhole_endpoints_registered_total
//	wormhole_directory_names
//	wormhole_directory_endpoints
//	wormhole_queue_depth
//
// 配置 metrics.listen_addr 后通过 HTTP /metrics 暴露。
//
// # Fx 模块
//
//	app := fx.New(
//	    directory.Module,
//	    metrics.Module,
//	    fx.Invoke(func(m *metrics.Metrics) {
//	        m.DatagramReceived()
//	    }),
//	)
package metrics
