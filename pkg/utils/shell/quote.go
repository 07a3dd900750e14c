package shell

import (
	"regexp"
	"strings"
)

var unsafeShellChars = regexp.MustCompile(`[^A-Za-z0-9_@%+=:,./-]`)

// Quote 返回可以安全放入 POSIX shell 命令行的字符串
// 只包含安全字符的字符串原样返回，其余用单引号包裹
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !unsafeShellChars.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Join 逐个转义后用单个空格拼接
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
