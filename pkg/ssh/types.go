package ssh

import (
	"context"
	"net"
)

// Dialer 统一 "直连" 和 "经跳板机连接" 两种拨号方式
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}
