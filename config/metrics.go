package config

import "regexp"

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否收集 Prometheus 指标
	Enabled bool `json:"enabled"`

	// ListenAddr /metrics HTTP 监听地址，空表示不暴露
	ListenAddr string `json:"listen_addr,omitempty"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "wormhole",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if !c.Enabled {
		if c.ListenAddr != "" {
			return invalid("listen_addr requires metrics to be enabled")
		}
		return nil
	}
	if !metricNamespace.MatchString(c.Namespace) {
		return invalid("namespace %q is not a valid metric name prefix", c.Namespace)
	}
	return nil
}
