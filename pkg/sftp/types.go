package sftp

const (
	DefaultThreadsPerFile = 1         // 默认顺序传输
	DefaultChunkSize      = 32 * 1024 // 32KB SFTP 默认包大小优化
)

// TransferConfig 定义传输配置
type TransferConfig struct {
	ThreadsPerFile int   // 单个文件的并发分块数, <=1 表示流式传输
	ChunkSize      int64 // 分块大小
}

func DefaultConfig() TransferConfig {
	return TransferConfig{
		ThreadsPerFile: DefaultThreadsPerFile,
		ChunkSize:      DefaultChunkSize,
	}
}

// ProgressCallback 进度回调，n 为本次增量传输的字节数
// 此函数必须是并发安全的
type ProgressCallback func(n int)

// ProgressFactory 为一次传输创建进度回调, size 为文件总大小
// 返回的 done 在传输结束后调用
type ProgressFactory func(name string, size int64) (progress ProgressCallback, done func())
