// Package addrutil 提供地址解析与分类工具
package addrutil

import (
	"net"
	"net/netip"
	"strings"
)

// ============================================================================
//                              IP 类型判断工具
// ============================================================================

// Scope 地址可达范围
type Scope int

const (
	// ScopeUnknown 无法解析
	ScopeUnknown Scope = iota

	// ScopeLoopback 回环地址
	ScopeLoopback

	// ScopePrivate 私网或链路本地地址
	ScopePrivate

	// ScopePublic 公网单播地址
	ScopePublic
)

func (s Scope) String() string {
	switch s {
	case ScopeLoopback:
		return "loopback"
	case ScopePrivate:
		return "private"
	case ScopePublic:
		return "public"
	default:
		return "unknown"
	}
}

// ClassifyIP 返回 IP 的可达范围
//
// 私网地址范围：
//   - 10.0.0.0/8
//   - 172.16.0.0/12
//   - 192.168.0.0/16
//   - 100.64.0.0/10 (CGNAT)
//   - fc00::/7 (IPv6 ULA)
//   - fe80::/10 (IPv6 链路本地)
func ClassifyIP(ip netip.Addr) Scope {
	if !ip.IsValid() {
		return ScopeUnknown
	}
	ip = ip.Unmap()

	switch {
	case ip.IsLoopback():
		return ScopeLoopback
	case ip.IsPrivate(), ip.IsLinkLocalUnicast(), cgnat.Contains(ip):
		return ScopePrivate
	case ip.IsGlobalUnicast():
		return ScopePublic
	default:
		return ScopeUnknown
	}
}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// Classify 返回地址字符串的可达范围
//
// 支持格式：
//   - host:port (如 192.168.1.1:4001)
//   - [ipv6]:port
//   - 纯 IP
//
// 主机名无法判断，返回 ScopeUnknown。
func Classify(addr string) Scope {
	ip, ok := ExtractIP(addr)
	if !ok {
		return ScopeUnknown
	}
	return ClassifyIP(ip)
}

// ExtractIP 从地址字符串中提取 IP
func ExtractIP(addr string) (netip.Addr, bool) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return netip.Addr{}, false
	}

	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap(), true
	}

	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

// BehindNAT 判断对端是否位于地址转换之后
//
// inner 为对端自报地址，observed 为注册服务观测到的来源地址。
// 两者 IP 不同且观测地址为公网地址时视为经过了 NAT。
// inner 不是地址（例如任意元数据）时返回 false。
func BehindNAT(inner, observed string) bool {
	in, ok := ExtractIP(inner)
	if !ok {
		return false
	}
	obs, ok := ExtractIP(observed)
	if !ok {
		return false
	}
	return in != obs && ClassifyIP(obs) == ScopePublic
}
