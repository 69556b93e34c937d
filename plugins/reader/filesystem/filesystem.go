package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"pgrep/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
}

// FileSystem 实现基于文件系统与 STDIN 的单文件 Reader。
// path 为 "-" 时读取 STDIN；目录与非常规文件返回 ErrPathInvalid；
// 指向常规文件的符号链接会被跟随。
type FileSystem struct {
	bufSize int
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	return &FileSystem{bufSize: b}
}

var _ contract.Reader = (*FileSystem)(nil)

// Open 打开 path 并返回带缓冲的 ReadCloser；调用方负责 Close。
func (r *FileSystem) Open(ctx context.Context, path string) (contract.FileID, io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	default:
	}
	if path == "" {
		return "", nil, fmt.Errorf("%w: empty input path", contract.ErrPathInvalid)
	}
	if path == "-" {
		// 统一缓冲策略：STDIN 也使用 bufio.Reader 封装；不关闭进程的 STDIN
		return contract.FileID("stdin"), newBufferedCloser(io.NopCloser(os.Stdin), r.bufSize), nil
	}
	// Stat 跟随符号链接：悬空链接在此报错
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", contract.ErrPathInvalid, path)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s is not a regular file", contract.ErrPathInvalid, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	return contract.NormalizeFileID(path), newBufferedCloser(f, r.bufSize), nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
