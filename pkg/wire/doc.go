// Package wire 实现 wormhole 注册协议的数据报编解码
//
// 每个 UDP 数据报承载一条消息，首字节为命令，其后是若干
// "int32 大端长度 + UTF-8 字节" 形式的字符串。
//
// 注册请求（无应答）:
//
//	0x00 | len(name) | name | len(inner) | inner
//
// 查询请求:
//
//	0x01 | len(name) | name
//
// 查询应答（发往请求方的观测地址）:
//
//	count N | N × ( len(inner) | inner | len(addr) | addr )
//
// addr 为观测地址文本（"ip:port"）。解码对不可信输入是防御性的：
// 长度前缀越界、负数、非法 UTF-8、未知命令均返回 ErrMalformedMessage。
package wire
