package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var blank = regexp.MustCompile(`\s`)

// BufferedReadTargetFile 逐行读取目标列表, 忽略空行和 # 注释
func BufferedReadTargetFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开列表文件: %w", err)
	}
	defer file.Close()

	var targets []string
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("读取列表文件失败: %w", err)
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = blank.ReplaceAllString(line, ""); line != "" {
			targets = append(targets, line)
		}
		if err == io.EOF {
			break
		}
	}
	return targets, nil
}

// ParseTargets 合并参数 (可用逗号分隔) 与列表文件中的目标, 去重并保持顺序
func ParseTargets(args []string, listFile string) ([]string, error) {
	var raw []string
	for _, arg := range args {
		raw = append(raw, strings.Split(arg, ",")...)
	}
	if listFile != "" {
		fromFile, err := BufferedReadTargetFile(listFile)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}

	seen := make(map[string]bool)
	var targets []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	return targets, nil
}
