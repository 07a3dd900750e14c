package artifact

import (
	"errors"
	"fmt"
	"regexp"
)

// Ext 是所有扩展包的统一后缀
const Ext = ".vsix"

var (
	// ErrRemoteCommand 远端下载命令以非零状态退出
	ErrRemoteCommand = errors.New("remote download command failed")
	// ErrCycle 依赖图中出现正在处理的标识
	ErrCycle = errors.New("dependency cycle detected")
	// ErrUnresolved 无法得到下载地址
	ErrUnresolved = errors.New("artifact has no download url")
)

// Artifact 是一个可下载单元 (编辑器安装包或扩展包)
// Dependencies 与 BundleMembers 返回标识, 由 Resolver 解析为 Artifact
type Artifact interface {
	UniqueID() string
	// Version 未知时返回空串
	Version() string
	// DownloadURL 未解析时返回空串
	DownloadURL() string
	Dependencies() []string
	BundleMembers() []string
	FileName() string
}

// ID 是 <publisher>.<package>[@<version>] 形式的标识
type ID struct {
	Publisher string
	Package   string
	Version   string
}

var idPattern = regexp.MustCompile(`^(?P<unique_id>(?P<publisher>.*?)\.(?P<package>.*?))(?:@(?P<version>.*))?$`)

// ParseID 解析扩展标识
func ParseID(s string) (ID, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return ID{}, fmt.Errorf("invalid extension identifier %q", s)
	}
	id := ID{
		Publisher: m[idPattern.SubexpIndex("publisher")],
		Package:   m[idPattern.SubexpIndex("package")],
		Version:   m[idPattern.SubexpIndex("version")],
	}
	if id.Publisher == "" || id.Package == "" {
		return ID{}, fmt.Errorf("invalid extension identifier %q", s)
	}
	return id, nil
}

// UniqueID 返回不带版本的标识
func (id ID) UniqueID() string {
	return id.Publisher + "." + id.Package
}

func (id ID) String() string {
	if id.Version == "" {
		return id.UniqueID()
	}
	return id.UniqueID() + "@" + id.Version
}

// fileName 按 {id}-{version}.vsix 命名, 版本未知时省略
func fileName(uniqueID, version string) string {
	if version == "" {
		return uniqueID + Ext
	}
	return uniqueID + "-" + version + Ext
}
