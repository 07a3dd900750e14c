package ssh

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wentf9/vem/global"
	"github.com/wentf9/vem/pkg/models"
	"github.com/wentf9/vem/utils"
	"golang.org/x/crypto/ssh"
)

// CredentialProvider 在没有可用密码时为连接提供密码
type CredentialProvider interface {
	Password(ctx context.Context, spec models.ConnectionSpec) (string, error)
}

// PasswordFunc 把普通函数适配为 CredentialProvider
type PasswordFunc func(ctx context.Context, spec models.ConnectionSpec) (string, error)

func (f PasswordFunc) Password(ctx context.Context, spec models.ConnectionSpec) (string, error) {
	return f(ctx, spec)
}

// TerminalPrompt 交互式读取密码
// 标准输入是终端时关闭回显读取，否则从 In 读取一行
type TerminalPrompt struct {
	In io.Reader
}

func NewTerminalPrompt() *TerminalPrompt {
	return &TerminalPrompt{In: os.Stdin}
}

func (p *TerminalPrompt) Password(ctx context.Context, spec models.ConnectionSpec) (string, error) {
	prompt := fmt.Sprintf("%s@%s password: ", spec.Username, spec.Hostname)
	if global.IsTerminal {
		return utils.ReadPasswordFromTerminal(prompt)
	}
	return utils.ReadLine(p.In, prompt)
}

// authMethods 同时提供 password 和 keyboard-interactive 两种方式
// 很多启用了 PAM 的 sshd 只接受后者
func authMethods(password string) []ssh.AuthMethod {
	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}
}
