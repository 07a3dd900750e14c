package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// CreateFileRecursive 创建父目录后写入文件, 已存在的文件会被截断
func CreateFileRecursive(filePath string, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EnsureDir 确保 dir 是一个存在的目录, 返回其绝对路径
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(ExpandHome(dir))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("'%s' exists and is not a directory", abs)
	case err == nil:
		return abs, nil
	case !os.IsNotExist(err):
		return "", err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory '%s': %w", abs, err)
	}
	return abs, nil
}

// ExpandHome 展开开头的 ~
func ExpandHome(p string) string {
	if p != "~" && !hasHomePrefix(p) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

func hasHomePrefix(p string) bool {
	return len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator)
}
