package marketplace

// FilterType 是查询条件的类型
type FilterType int

const (
	FilterTag                       FilterType = 1
	FilterDisplayName               FilterType = 2
	FilterPrivate                   FilterType = 3
	FilterID                        FilterType = 4
	FilterCategory                  FilterType = 5
	FilterContributionType          FilterType = 6
	FilterName                      FilterType = 7
	FilterInstallationTarget        FilterType = 8
	FilterFeatured                  FilterType = 9
	FilterSearchText                FilterType = 10
	FilterFeaturedInCategory        FilterType = 11
	FilterExcludeWithFlags          FilterType = 12
	FilterIncludeWithFlags          FilterType = 13
	FilterLcid                      FilterType = 14
	FilterInstallationTargetVersion FilterType = 15
	FilterPublisherName             FilterType = 18
)

// Flags 控制返回结果中包含哪些字段, 按位组合
type Flags int

const (
	FlagNone                       Flags = 0
	FlagIncludeVersions            Flags = 1
	FlagIncludeFiles               Flags = 2
	FlagIncludeCategoryAndTags     Flags = 4
	FlagIncludeSharedAccounts      Flags = 8
	FlagIncludeVersionProperties   Flags = 16
	FlagExcludeNonValidated        Flags = 32
	FlagIncludeInstallationTargets Flags = 64
	FlagIncludeAssetURI            Flags = 128
	FlagIncludeStatistics          Flags = 256
	FlagIncludeLatestVersionOnly   Flags = 512
	FlagUseFallbackAssetURI        Flags = 1024
	FlagIncludeMetadata            Flags = 2048
	FlagAllAttributes              Flags = 16863

	DefaultFlags = FlagAllAttributes | FlagIncludeLatestVersionOnly
)

// VSCodeTarget 是 VSCode 扩展的安装目标
const VSCodeTarget = "Microsoft.VisualStudio.Code"

// Criterion 是一个查询条件
type Criterion struct {
	FilterType FilterType `json:"filterType"`
	Value      string     `json:"value"`
}

func Criteria(filterType FilterType, value string) Criterion {
	return Criterion{FilterType: filterType, Value: value}
}
