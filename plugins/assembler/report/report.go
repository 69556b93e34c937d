package report

import (
	"context"
	"io"
	"strconv"
	"strings"

	"pgrep/pkg/contract"
)

// Options 为报告渲染的可选配置。
type Options struct {
	// TrimPadding: 为 true 时去掉记录末尾的填充空格；默认 false 保留定长原文。
	TrimPadding bool `json:"trim_padding"`
}

// Assembler 将 Report 渲染为 "<行号>: <文本>"，记录间以 '\n' 分隔，末尾无换行。
type Assembler struct {
	trim bool
}

// New 创建报告装配器。
func New(opts *Options) *Assembler {
	a := &Assembler{}
	if opts != nil {
		a.trim = opts.TrimPadding
	}
	return a
}

var _ contract.Assembler = (*Assembler)(nil)

// Assemble 按 Report 顺序渲染；空 Report 渲染为零字节。
func (a *Assembler) Assemble(ctx context.Context, rep contract.Report) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(rep) == 0 {
		return strings.NewReader(""), nil
	}
	var b strings.Builder
	b.Grow(len(rep) * (contract.LineWidth + 12))
	for i, m := range rep {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.FormatUint(uint64(m.Line), 10))
		b.WriteString(": ")
		text := m.Text
		if a.trim {
			text = strings.TrimRight(text, " ")
		}
		b.WriteString(text)
	}
	return strings.NewReader(b.String()), nil
}
