package config

// DirectoryConfig 目录配置
//
// 0 表示不限制。
type DirectoryConfig struct {
	// MaxNames 最大服务名数量
	MaxNames int `json:"max_names"`

	// MaxEndpointsPerName 每个服务名最大端点数
	MaxEndpointsPerName int `json:"max_endpoints_per_name"`
}

// DefaultDirectoryConfig 返回默认目录配置（不限制）
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{}
}

// Validate 验证目录配置
func (c DirectoryConfig) Validate() error {
	if c.MaxNames < 0 {
		return invalid("max_names must not be negative")
	}
	if c.MaxEndpointsPerName < 0 {
		return invalid("max_endpoints_per_name must not be negative")
	}
	return nil
}
