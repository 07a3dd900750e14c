package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// LocalExecutor 本地执行器
type LocalExecutor struct {
	Shell string
}

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{Shell: "bash"}
}

func (e *LocalExecutor) Run(ctx context.Context, cmd string) (*Result, error) {
	// 使用 bash -c 执行以支持复杂的 shell 语法
	c := exec.CommandContext(ctx, e.Shell, "-c", cmd)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run local command: %w", err)
	}
	return result, nil
}

// Command 直接执行程序 (不经过 shell)
func (e *LocalExecutor) Command(ctx context.Context, name string, args ...string) (*Result, error) {
	c := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run '%s': %w", name, err)
	}
	return result, nil
}
