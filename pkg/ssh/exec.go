package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/wentf9/vem/pkg/executor"
	"golang.org/x/crypto/ssh"
)

// runSession 执行命令并等待结束
// 用户按下 Ctrl-C 时向远端发送 SIGINT, 记录日志并终止进程
func (s *Session) runSession(ctx context.Context, session *ssh.Session, command string) (*executor.Result, error) {
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if s.echo != nil {
		session.Stdout = io.MultiWriter(&stdout, s.echo)
		session.Stderr = io.MultiWriter(&stderr, s.echo)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("failed to start remote command: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return toResult(err, stdout.String(), stderr.String())
	case <-interrupt:
		_ = session.Signal(ssh.SIGINT)
		s.logger.Error("remote command interrupted by user", "command", command)
		s.exit(1)
		return nil, ErrInterrupted
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	}
}

// toResult 把 Wait 的结果转换为结构化结果
// 远端命令非零退出不是 error
func toResult(err error, stdout, stderr string) (*executor.Result, error) {
	result := &executor.Result{Stdout: stdout, Stderr: stderr}
	if err == nil {
		return result, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		result.ExitCode = -1
		return result, fmt.Errorf("remote command exited without status: %w", err)
	}
	return result, fmt.Errorf("failed to run remote command: %w", err)
}
