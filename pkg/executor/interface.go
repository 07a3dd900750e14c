package executor

import "context"

// Result 是一次命令执行的结构化结果
// ExitCode == 0 是调用方唯一认可的成功标志
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK 报告命令是否成功退出
func (r *Result) OK() bool {
	return r != nil && r.ExitCode == 0
}

type Executor interface {
	// Run 执行 shell 命令并返回结构化结果
	// 非零退出码不是 error，只有无法执行命令时才返回 error
	Run(ctx context.Context, cmd string) (*Result, error)
}
