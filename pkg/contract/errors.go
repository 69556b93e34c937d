package contract

import "errors"

// 最小错误分类（用于上层策略判定与日志分类）。
var (
	// ErrInvalidInput: 调用参数非法（例如 workers < 1、空路径）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrLineTooLong: 严格模式下输入行长度 >= LineWidth。
	ErrLineTooLong = errors.New("line too long")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵），例如缓冲长度不是 LineWidth 的整数倍。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
)
