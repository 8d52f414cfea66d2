package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 是支持 JSON 字符串解析的 time.Duration 包装类型
//
// 支持 "30s"、"5ms" 形式的字符串，也接受纳秒数。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"30s\") or number (nanoseconds)")
}

// MarshalJSON 输出人类可读的字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
