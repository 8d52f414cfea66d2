package config

// RateLimitConfig 按来源 IP 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用
	Enabled bool `json:"enabled"`

	// PerSenderRate 每个来源 IP 每秒允许的数据报数
	PerSenderRate float64 `json:"per_sender_rate"`

	// Burst 突发容量
	Burst int `json:"burst"`

	// MaxTrackedSenders 跟踪的来源 IP 上限（LRU 淘汰）
	MaxTrackedSenders int `json:"max_tracked_senders"`
}

// DefaultRateLimitConfig 返回默认限流配置（不启用）
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           false,
		PerSenderRate:     200,
		Burst:             400,
		MaxTrackedSenders: 10000,
	}
}

// Validate 验证限流配置
func (c RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.PerSenderRate <= 0 {
		return invalid("per_sender_rate must be positive")
	}
	if c.Burst <= 0 {
		return invalid("burst must be positive")
	}
	if c.MaxTrackedSenders <= 0 {
		return invalid("max_tracked_senders must be positive")
	}
	return nil
}
