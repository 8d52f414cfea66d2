package directory

import (
	"net"
	"net/netip"
)

// Endpoint 某个服务名下的一个可达实例
//
// 值类型、可比较：Name、Inner、Observed 三者全部相等即为同一端点，
// 因此同一对端以相同观测地址重复注册是幂等的，
// NAT 重新映射后从新地址注册则产生第二个端点。
type Endpoint struct {
	// Name 服务名（非空）
	Name string

	// Inner 对端自报的地址/元数据，对目录不透明
	Inner string

	// Observed 注册数据报的传输层来源地址
	Observed netip.AddrPort
}

// NewEndpoint 创建端点，观测地址会被规范化
func NewEndpoint(name, inner string, observed netip.AddrPort) Endpoint {
	return Endpoint{Name: name, Inner: inner, Observed: NormalizeAddrPort(observed)}
}

// ObservedString 返回观测地址文本，例如 "1.2.3.4:10" 或 "[::1]:10"
func (e Endpoint) ObservedString() string {
	return e.Observed.String()
}

// UDPAddr 返回观测地址的 *net.UDPAddr 形式
func (e Endpoint) UDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(e.Observed)
}

// NormalizeAddrPort 将 IPv4 映射的 IPv6 地址还原为 IPv4
//
// 双栈套接字上同一 IPv4 对端可能以 ::ffff:a.b.c.d 形式出现。
func NormalizeAddrPort(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
