package fixedwidth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pgrep/pkg/contract"
)

// Options 为定长编码器的可选配置（最小必要）。
type Options struct {
	// Strict: 为 true 时遇到长度 >= LineWidth 的行返回 ErrLineTooLong；
	// 默认 false：静默截断到 LineWidth-1 字节并计入统计。
	Strict bool `json:"strict"`
	// BufSize: 读缓冲大小（字节）；<=0 使用默认 64KiB。
	BufSize int `json:"buf_size"`
}

// Encoder 将变长文本行编码为连续定长缓冲。
type Encoder struct {
	strict  bool
	bufSize int
	maxRows int64
}

// New 创建定长编码器。
func New(opts *Options) *Encoder {
	e := &Encoder{bufSize: 64 * 1024, maxRows: contract.MaxRows}
	if opts != nil {
		e.strict = opts.Strict
		if opts.BufSize > 0 {
			e.bufSize = opts.BufSize
		}
	}
	return e
}

var _ contract.Encoder = (*Encoder)(nil)

// Encode 顺序读取 r 的全部行并编码为 Corpus。
// 行以 LF 分隔（CRLF 归一为 LF）；末尾无换行的最后一行同样计为一行。
// 行数超过 contract.MaxRows 时返回 ErrInvalidInput。
func (e *Encoder) Encode(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Corpus, contract.EncodeStats, error) {
	br := bufio.NewReaderSize(r, e.bufSize)
	var st contract.EncodeStats
	data := make([]byte, 0, 64*contract.LineWidth)
	rec := make([]byte, contract.LineWidth)
	for {
		if err := ctxErr(ctx); err != nil {
			return contract.Corpus{}, st, err
		}
		line, eof, err := readTrimmedLine(br)
		if err != nil {
			return contract.Corpus{}, st, err
		}
		if eof {
			break
		}
		if int64(st.Rows) >= e.maxRows {
			return contract.Corpus{}, st, fmt.Errorf("%w: input exceeds %d rows", contract.ErrInvalidInput, e.maxRows)
		}
		if contract.PutRecord(rec, line) {
			if e.strict {
				return contract.Corpus{}, st, fmt.Errorf("%w: line %d has %d bytes (max %d)", contract.ErrLineTooLong, st.Rows+1, len(line), contract.LineWidth-1)
			}
			st.Truncated++
		}
		data = append(data, rec...)
		st.Rows++
	}
	return contract.Corpus{FileID: fileID, Rows: st.Rows, Data: data}, st, nil
}

// readTrimmedLine 读取一行并去除结尾 LF/CRLF；仅当无任何剩余字节时返回 eof=true。
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		if s == "" {
			return "", true, nil
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, false, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
