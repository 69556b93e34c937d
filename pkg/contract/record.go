package contract

import "fmt"

// PutRecord 将 line 编码为一条定长记录写入 dst（len(dst) 必须为 LineWidth）。
// 长度 < LineWidth 的行左对齐并以空格填充；
// 长度 >= LineWidth 的行保留前 LineWidth-1 字节，剩余 1 字节填空格，返回 truncated=true。
func PutRecord(dst []byte, line string) (truncated bool) {
	if len(line) >= LineWidth {
		line = line[:LineWidth-1]
		truncated = true
	}
	n := copy(dst[:LineWidth], line)
	for i := n; i < LineWidth; i++ {
		dst[i] = ' '
	}
	return truncated
}

// SplitRecords 将连续缓冲按 LineWidth 切分为记录字符串（拷贝）。
// 空缓冲返回非 nil 的空切片。
func SplitRecords(buf []byte) ([]string, error) {
	if len(buf)%LineWidth != 0 {
		return nil, fmt.Errorf("%w: buffer length %d not a multiple of %d", ErrInvariantViolation, len(buf), LineWidth)
	}
	out := make([]string, 0, len(buf)/LineWidth)
	for off := 0; off < len(buf); off += LineWidth {
		out = append(out, string(buf[off:off+LineWidth]))
	}
	return out, nil
}

// JoinMatches 将命中文本按顺序拼接为连续缓冲（每条恰 LineWidth 字节）。
func JoinMatches(ms []Match) ([]byte, error) {
	buf := make([]byte, 0, len(ms)*LineWidth)
	for _, m := range ms {
		if len(m.Text) != LineWidth {
			return nil, fmt.Errorf("%w: match text width %d at line %d", ErrInvariantViolation, len(m.Text), m.Line)
		}
		buf = append(buf, m.Text...)
	}
	return buf, nil
}

// MatchLines 抽取命中行号（与 JoinMatches 位置一一对应）。
func MatchLines(ms []Match) []uint32 {
	out := make([]uint32, len(ms))
	for i, m := range ms {
		out[i] = m.Line
	}
	return out
}
