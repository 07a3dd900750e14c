package ssh

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// StartKeepAlive 开启一个协程，定期向 SSH Server 发送心跳
// stop 关闭后协程退出; 心跳失败时关闭连接并调用 fallback
func StartKeepAlive(client *ssh.Client, interval time.Duration, stop <-chan struct{}, fallback func(err error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			// "keepalive@openssh.com" 是 OpenSSH 标准的心跳请求类型
			// wantReply = true: 服务器挂了或网络断了时 SendRequest 会报错
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				client.Close()
				if fallback != nil {
					fallback(err)
				}
				return
			}
		}
	}()
}
