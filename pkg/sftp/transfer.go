package sftp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Download 把远程文件复制到本地
// localPath 是已存在的目录时，文件名沿用远程文件名
func (c *Client) Download(ctx context.Context, remotePath, localPath string) error {
	info, err := c.sftpClient.Stat(remotePath)
	if err != nil {
		return fmt.Errorf("stat remote path failed: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("remote path '%s' is a directory", remotePath)
	}

	if stat, err := os.Stat(localPath); err == nil && stat.IsDir() {
		localPath = filepath.Join(localPath, info.Name())
	}

	var progress ProgressCallback
	if c.progress != nil {
		var done func()
		progress, done = c.progress(info.Name(), info.Size())
		if done != nil {
			defer done()
		}
	}
	return c.downloadFile(ctx, remotePath, localPath, info.Size(), info.Mode(), progress)
}

// downloadFile 失败时删除写了一半的本地文件
func (c *Client) downloadFile(ctx context.Context, remotePath, localPath string, size int64, mode os.FileMode, progress ProgressCallback) (err error) {
	srcFile, err := c.sftpClient.Open(remotePath)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dstFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(localPath)
		}
	}()

	// 只有1个线程或文件很小，直接流式传输
	if c.config.ThreadsPerFile <= 1 || size < c.config.ChunkSize {
		return streamTransfer(ctx, srcFile, dstFile, progress)
	}

	_ = os.Chmod(localPath, mode.Perm())

	// 多线程分块下载, ReadAt/WriteAt 都是并发安全的
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.ThreadsPerFile)
	chunkSize := c.config.ChunkSize

	for offset := int64(0); offset < size; offset += chunkSize {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := chunkSize
			if offset+n > size {
				n = size - offset
			}
			buf := make([]byte, n)
			read, err := srcFile.ReadAt(buf, offset)
			if err != nil && err != io.EOF {
				return fmt.Errorf("read remote at %d failed: %w", offset, err)
			}
			if read == 0 {
				return nil
			}
			if _, err := dstFile.WriteAt(buf[:read], offset); err != nil {
				return fmt.Errorf("write local at %d failed: %w", offset, err)
			}
			if progress != nil {
				progress(read)
			}
			return nil
		})
	}
	return g.Wait()
}

// 简单的流式传输兜底
func streamTransfer(ctx context.Context, r io.Reader, w io.Writer, progress ProgressCallback) error {
	buf := make([]byte, DefaultChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if _, wErr := w.Write(buf[:n]); wErr != nil {
				return wErr
			}
			if progress != nil {
				progress(n)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
