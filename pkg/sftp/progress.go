package sftp

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// BarProgress 返回一个在 w 上绘制字节进度条的 ProgressFactory
func BarProgress(w io.Writer) ProgressFactory {
	return func(name string, size int64) (ProgressCallback, func()) {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(name),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(w, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
		)
		return func(n int) { _ = bar.Add(n) }, func() { _ = bar.Finish() }
	}
}
