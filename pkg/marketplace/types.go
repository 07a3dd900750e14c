package marketplace

import (
	"fmt"
	"strings"
)

const (
	AssetVSIXPackage = "Microsoft.VisualStudio.Services.VSIXPackage"
	AssetManifest    = "Microsoft.VisualStudio.Code.Manifest"

	PropertyEngine                = "Microsoft.VisualStudio.Code.Engine"
	PropertyExtensionPack         = "Microsoft.VisualStudio.Code.ExtensionPack"
	PropertyExtensionDependencies = "Microsoft.VisualStudio.Code.ExtensionDependencies"
)

// Extension 是扩展查询结果中的一项
type Extension struct {
	ExtensionID      string      `json:"extensionId"`
	ExtensionName    string      `json:"extensionName"`
	DisplayName      string      `json:"displayName"`
	ShortDescription string      `json:"shortDescription"`
	Publisher        Publisher   `json:"publisher"`
	Versions         []Version   `json:"versions"`
	Statistics       []Statistic `json:"statistics"`
	Categories       []string    `json:"categories"`
	Tags             []string    `json:"tags"`
}

type Publisher struct {
	PublisherName string `json:"publisherName"`
	DisplayName   string `json:"displayName"`
}

type Version struct {
	Version          string     `json:"version"`
	LastUpdated      string     `json:"lastUpdated"`
	AssetURI         string     `json:"assetUri"`
	FallbackAssetURI string     `json:"fallbackAssetUri"`
	Files            []File     `json:"files"`
	Properties       []Property `json:"properties"`
}

type File struct {
	AssetType string `json:"assetType"`
	Source    string `json:"source"`
}

type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Statistic struct {
	StatisticName string  `json:"statisticName"`
	Value         float64 `json:"value"`
}

// UniqueID 返回 publisher.name 形式的标识
func (e Extension) UniqueID() string {
	return fmt.Sprintf("%s.%s", e.Publisher.PublisherName, e.ExtensionName)
}

// Latest 返回第一个 (最新的) 版本
func (e Extension) Latest() (Version, bool) {
	if len(e.Versions) == 0 {
		return Version{}, false
	}
	return e.Versions[0], true
}

// Property 在最新版本的属性中查找 key
func (e Extension) Property(key string) (string, bool) {
	v, ok := e.Latest()
	if !ok {
		return "", false
	}
	for _, p := range v.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Asset 在最新版本的文件中查找指定类型的资源地址
func (e Extension) Asset(assetType string) (string, bool) {
	v, ok := e.Latest()
	if !ok {
		return "", false
	}
	for _, f := range v.Files {
		if f.AssetType == assetType {
			return f.Source, true
		}
	}
	return "", false
}

func (e Extension) Statistic(name string) (float64, bool) {
	for _, s := range e.Statistics {
		if s.StatisticName == name {
			return s.Value, true
		}
	}
	return 0, false
}

// ListProperty 把逗号分隔的属性拆成列表, 忽略空项
// 属性不存在时返回 nil
func (e Extension) ListProperty(key string) []string {
	raw, ok := e.Property(key)
	if !ok {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
