// Package registry 实现 UDP 会合注册服务
//
// Service 拥有唯一的 UDP 套接字、有界工作池和注入的目录：
//
//	数据报 → 接收循环（限流、解码）→ 工作池 → 执行命令 → （查询时）回复
//
// 接收循环只做解码，目录操作和应答发送都交给工作协程，
// 处理延迟不会阻塞收包。单个数据报的任何失败都被限制在处理它的
// 那个任务内：不回复错误，不影响其他对端，只通过 Observer 和
// Debug 日志可见。
//
// 生命周期：Idle → Running → Stopped，Stopped 不可逆。
package registry
