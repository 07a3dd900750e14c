package artifact

import (
	"strings"

	"github.com/wentf9/vem/pkg/marketplace"
)

// RegistryArtifact 来自扩展市场查询结果
type RegistryArtifact struct {
	ext          marketplace.Extension
	version      string
	url          string
	dependencies []string
	bundle       []string
}

func NewRegistryArtifact(ext marketplace.Extension) *RegistryArtifact {
	a := &RegistryArtifact{
		ext:          ext,
		dependencies: ext.ListProperty(marketplace.PropertyExtensionDependencies),
		bundle:       ext.ListProperty(marketplace.PropertyExtensionPack),
	}
	if v, ok := ext.Latest(); ok {
		a.version = v.Version
		if url, ok := ext.Asset(marketplace.AssetVSIXPackage); ok {
			a.url = url
		} else if v.AssetURI != "" {
			a.url = strings.TrimSuffix(v.AssetURI, "/") + "/" + marketplace.AssetVSIXPackage
		}
	}
	return a
}

func (a *RegistryArtifact) UniqueID() string        { return a.ext.UniqueID() }
func (a *RegistryArtifact) Version() string         { return a.version }
func (a *RegistryArtifact) DownloadURL() string     { return a.url }
func (a *RegistryArtifact) Dependencies() []string  { return a.dependencies }
func (a *RegistryArtifact) BundleMembers() []string { return a.bundle }
func (a *RegistryArtifact) FileName() string        { return fileName(a.UniqueID(), a.version) }

// Engine 返回扩展要求的编辑器版本范围
func (a *RegistryArtifact) Engine() (string, bool) {
	return a.ext.Property(marketplace.PropertyEngine)
}

// Extension 返回原始查询结果
func (a *RegistryArtifact) Extension() marketplace.Extension {
	return a.ext
}
