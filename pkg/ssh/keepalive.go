package ssh

import (
	"context"
	"time"

	"golang.org/x/crypto/ssh"
)

const keepAliveRequest = "keepalive@openssh.com"

// StartKeepAlive 定期向服务端发送心跳, ctx 结束时退出.
// 心跳失败时关闭连接, 使正在运行的 session 收到错误, 随后调用 onFail
func StartKeepAlive(ctx context.Context, client *ssh.Client, interval time.Duration, onFail func(err error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if _, _, err := client.SendRequest(keepAliveRequest, true, nil); err != nil {
				client.Close()
				if onFail != nil {
					onFail(err)
				}
				return
			}
		}
	}()
}
