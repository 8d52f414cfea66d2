package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-wormhole/internal/core/directory"
)

// 标签名
const (
	labelReason  = "reason"
	labelCommand = "command"
)

// Metrics Prometheus 指标集合
type Metrics struct {
	registry *prometheus.Registry

	received   prometheus.Counter
	dropped    *prometheus.CounterVec
	commands   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	registered prometheus.Counter

	namespace string
}

// New 创建指标并注册到 reg，reg 为 nil 时新建独立 Registry
func New(namespace string, reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry:  reg,
		namespace: namespace,
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Datagrams read from the registry socket.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_dropped_total",
			Help:      "Datagrams discarded without effect, by reason.",
		}, []string{labelReason}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed by workers.",
		}, []string{labelCommand}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_failures_total",
			Help:      "Commands whose execution failed after decode.",
		}, []string{labelCommand}),
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoints_registered_total",
			Help:      "Registrations that added a new endpoint.",
		}),
	}

	for _, c := range []prometheus.Collector{m.received, m.dropped, m.commands, m.failures, m.registered} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry 返回底层 Registry（同时是 Gatherer）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ============================================================================
//                              registry.Observer
// ============================================================================

// DatagramReceived 记录收到一个数据报
func (m *Metrics) DatagramReceived() {
	m.received.Inc()
}

// DatagramDropped 记录丢弃一个数据报
func (m *Metrics) DatagramDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// CommandProcessed 记录一个命令执行完成
func (m *Metrics) CommandProcessed(command string) {
	m.commands.WithLabelValues(command).Inc()
}

// CommandFailed 记录一个命令执行失败
func (m *Metrics) CommandFailed(command string) {
	m.failures.WithLabelValues(command).Inc()
}

// EndpointRegistered 记录新增端点
func (m *Metrics) EndpointRegistered() {
	m.registered.Inc()
}

// ============================================================================
//                              Gauges
// ============================================================================

// WatchDirectory 注册目录规模 Gauge
func (m *Metrics) WatchDirectory(d *directory.Directory) error {
	names := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "directory_names",
		Help:      "Service names with at least one endpoint.",
	}, func() float64 { return float64(d.Stats().Names) })

	endpoints := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "directory_endpoints",
		Help:      "Endpoints held by the directory.",
	}, func() float64 { return float64(d.Stats().Endpoints) })

	if err := m.registry.Register(names); err != nil {
		return err
	}
	return m.registry.Register(endpoints)
}

// WatchQueue 注册工作队列深度 Gauge
func (m *Metrics) WatchQueue(depth func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "queue_depth",
		Help:      "Commands waiting for a worker.",
	}, func() float64 { return float64(depth()) }))
}
