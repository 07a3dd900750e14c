package platform

import (
	"context"
	"path"
	"runtime"
	"strings"

	"github.com/wentf9/vem/pkg/executor"
)

// Machine 描述决定编辑器/扩展发行包的本机属性
type Machine struct {
	OS             string // linux, darwin, windows
	ArchSize       int    // 32 或 64
	PackageManager string // 仅 linux: rpm, dpkg, pacman, apt-get 或空
}

// Detect 识别本机; linux 上通过 shell 查找包管理器
func Detect(ctx context.Context, exec executor.Executor) Machine {
	m := Machine{OS: runtime.GOOS, ArchSize: archSize(runtime.GOARCH)}
	if m.OS != "linux" || exec == nil {
		return m
	}
	res, err := exec.Run(ctx, "for i in rpm dpkg pacman apt-get; do command -v $i; done 2> /dev/null")
	if err != nil || res == nil {
		return m
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			m.PackageManager = path.Base(line)
			break
		}
	}
	return m
}

func archSize(arch string) int {
	switch arch {
	case "386", "arm", "mips", "mipsle":
		return 32
	default:
		return 64
	}
}

// IsRPM 报告是否为基于 RPM 的发行版
func (m Machine) IsRPM() bool {
	return m.PackageManager == "rpm"
}

// IsDeb 报告是否为基于 Debian 的发行版
func (m Machine) IsDeb() bool {
	return m.PackageManager == "dpkg" || m.PackageManager == "apt-get"
}

// Choices 为各平台给出候选值, 空值表示沿用更通用平台的值
type Choices struct {
	Windows, Win32, Win64   string
	Darwin                  string
	Linux, Linux32, Linux64 string
	RPM, RPM32, RPM64       string
	Deb, Deb32, Deb64       string
}

// DefaultChoices 返回各平台的默认名称
func DefaultChoices() Choices {
	return Choices{Windows: "windows", Darwin: "darwin", Linux: "linux"}
}

// Query 按本机属性选出最具体的非空值
func (m Machine) Query(c Choices) string {
	switch m.OS {
	case "darwin":
		return c.Darwin
	case "windows":
		return first(bySize(m.ArchSize, c.Win32, c.Win64), c.Windows)
	case "linux":
		generic := first(bySize(m.ArchSize, c.Linux32, c.Linux64), c.Linux)
		switch {
		case m.IsRPM():
			return first(bySize(m.ArchSize, c.RPM32, c.RPM64), c.RPM, generic)
		case m.IsDeb():
			return first(bySize(m.ArchSize, c.Deb32, c.Deb64), c.Deb, generic)
		default:
			return generic
		}
	default:
		return ""
	}
}

func bySize(size int, v32, v64 string) string {
	if size == 32 {
		return v32
	}
	return v64
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
