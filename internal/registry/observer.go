package registry

// 丢弃原因
const (
	// DropMalformed 解码失败或超长
	DropMalformed = "malformed"

	// DropRateLimited 来源超过限流
	DropRateLimited = "rate_limited"

	// DropQueueFull 工作队列饱和或服务正在停止
	DropQueueFull = "queue_full"

	// DropRejected 目录拒绝（超过容量限制）
	DropRejected = "rejected"
)

// CommandPanic 任务 panic 时报告给 CommandFailed 的命令名
const CommandPanic = "panic"

// Observer 接收路径与命令执行的观测回调
//
// 实现必须并发安全，调用发生在接收循环和工作协程中，不能阻塞。
type Observer interface {
	// DatagramReceived 读到一个数据报
	DatagramReceived()

	// DatagramDropped 数据报未产生任何效果即被丢弃
	DatagramDropped(reason string)

	// CommandProcessed 命令执行完成
	CommandProcessed(command string)

	// CommandFailed 命令解码成功但执行失败
	CommandFailed(command string)

	// EndpointRegistered 目录新增一个端点
	EndpointRegistered()
}

type nopObserver struct{}

func (nopObserver) DatagramReceived()       {}
func (nopObserver) DatagramDropped(string)  {}
func (nopObserver) CommandProcessed(string) {}
func (nopObserver) CommandFailed(string)    {}
func (nopObserver) EndpointRegistered()     {}

var _ Observer = nopObserver{}
