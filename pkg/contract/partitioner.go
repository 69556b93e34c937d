package contract

// Partitioner: 决定每个 rank 获得的行数。
// 约束：
//  1. 纯计算，所有 rank 对相同 (rows, workers) 必须得到相同布局；
//  2. len(Counts) == workers，Counts[i] >= 0，Assigned() <= rows；
//  3. 分区按 rank 顺序连续拼接，不重排。
type Partitioner interface {
	Plan(rows, workers int) (Layout, error)
}
