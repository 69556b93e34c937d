package contract

// LineWidth: 定长记录宽度（字节）。
// 每条记录恰为 LineWidth 字节，左对齐、空格填充；进程间传输的一切文本均遵守该宽度。
const LineWidth = 81

// MaxRows: 可编号的最大行数（Match.Line 为 uint32）。
const MaxRows int64 = 1<<32 - 1

// FileID: 逻辑输入标识（规范化路径，跨平台一致）。
type FileID string

// Corpus: 协调者独占的定长编码语料。
// 约束：
// - len(Data) == Rows*LineWidth；
// - 第 i 行位于 [i*LineWidth, (i+1)*LineWidth)；
// - 分发（scatter）完成后协调者不再持有 Data。
type Corpus struct {
	FileID FileID
	Rows   int
	Data   []byte
}

// Row 返回第 i 行（与 Data 共享底层数组，只读）。
func (c Corpus) Row(i int) []byte {
	return c.Data[i*LineWidth : (i+1)*LineWidth]
}

// EncodeStats: 编码阶段统计。
type EncodeStats struct {
	Rows int
	// Truncated: 长度 >= LineWidth 被截断的行数。
	Truncated int
}

// Layout: 分区布局。Counts[i] 为 rank i 获得的行数；分区连续、互不相交、按 rank 升序。
// Uniform 为 true 时使用等长 scatter（每个 rank 恰好 Base 行）。
type Layout struct {
	Rows    int
	Workers int
	Base    int
	Uniform bool
	Counts  []int
}

// Assigned 返回布局覆盖的总行数。
func (l Layout) Assigned() int {
	n := 0
	for _, c := range l.Counts {
		n += c
	}
	return n
}

// Unassigned 返回未被任何 rank 覆盖的尾部行数。
func (l Layout) Unassigned() int { return l.Rows - l.Assigned() }

// RowOffsets 返回每个 rank 分区的起始行（行数前缀和）。
func (l Layout) RowOffsets() []int {
	return PrefixSum(l.Counts)
}

// ByteCounts 返回每个 rank 的字节数（行数 × LineWidth）。
func (l Layout) ByteCounts() []int {
	out := make([]int, len(l.Counts))
	for i, c := range l.Counts {
		out[i] = c * LineWidth
	}
	return out
}

// Displs 返回每个 rank 的字节位移（ByteCounts 的前缀和）。
func (l Layout) Displs() []int {
	return PrefixSum(l.ByteCounts())
}

// Match: 单条命中。Line 为原文件中 1 起始的行号，Text 为定长记录原文。
// 创建后不可变。
type Match struct {
	Line uint32
	Text string
}

// Report: 协调者汇总的命中列表（按到达顺序，即 rank 顺序）。
type Report []Match

// PrefixSum 返回位移表：out[0]=0, out[i]=out[i-1]+in[i-1]（不含总和）。
func PrefixSum(in []int) []int {
	out := make([]int, len(in))
	for i := 1; i < len(in); i++ {
		out[i] = out[i-1] + in[i-1]
	}
	return out
}
