package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pgrep/internal/collective"
	"pgrep/internal/diag"
	"pgrep/pkg/contract"
)

// - 固定 rank 组：每个 rank 一个 goroutine，运行期成员不变，只在集合调用处同步。
// - 协调者（rank 0）独占读取、编码、汇总与写出；其余 rank 只持有自己的分区。
// - 首错取消：任一 rank 出错即取消整组，阻塞中的集合调用随之返回，Run 返回首错。
// - 组件实例在各 rank 间共享，须为无状态/并发安全实现。

// root: 协调者 rank。
const root = 0

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader      contract.Reader
	Encoder     contract.Encoder
	Partitioner contract.Partitioner
	Searcher    contract.Searcher
	Assembler   contract.Assembler
	Writer      contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Pattern: 字面查找串（允许为空：命中所有行）。
	Pattern string
	// Input: 输入文件路径；"-" 表示 STDIN。
	Input string
	// Workers: rank 数（>=1）。
	Workers int
	// Timeout: 整次运行的超时；<=0 表示不设超时（缺席的 rank 会让整组一直阻塞）。
	Timeout time.Duration
	// Output: 报告工件名（Writer 负责映射到路径）。
	Output contract.ArtifactID
	// Partitioner: 分区器名称，仅用于日志与终端提示。
	Partitioner string
}

// Summary: 一次运行的统计（由协调者填写）。
type Summary struct {
	FileID     contract.FileID
	Rows       int
	Truncated  int
	Unassigned int
	Counts     []int
	Matches    int
}

// Run 执行完整流程：
// 协调者 Reader → Encoder → Broadcast(N) → Partitioner → Scatter(v) → Broadcast(offset)
// → 各 rank Searcher → Gather(字节数) → Gatherv(文本) → Gatherv(行号) → 协调者 Assembler → Writer → Barrier。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	var sum Summary
	if err := sanity(comp, set); err != nil {
		return sum, fmt.Errorf("sanity: %w", err)
	}
	if set.Output == "" {
		set.Output = "output.txt"
	}
	if set.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, set.Timeout)
		defer cancel()
	}

	t0 := time.Now()
	if t := diag.GetTerminal(); t != nil {
		t.RunStart(set.Workers, set.Partitioner, set.Input)
	}
	rtimer := logger.StartWithKV("run", "grep", "", map[string]string{
		"workers":     strconv.Itoa(set.Workers),
		"partitioner": set.Partitioner,
		"pattern_len": strconv.Itoa(len(set.Pattern)),
	})

	err := collective.Run(ctx, set.Workers, func(ctx context.Context, c *collective.Comm) error {
		return rankMain(ctx, c, comp, set, logger.WithRank(c.Rank()), &sum)
	})
	if t := diag.GetTerminal(); t != nil {
		t.RunFinish(err == nil, sum.Matches, string(set.Output), time.Since(t0))
	}
	if err != nil {
		code := diag.Classify(err)
		logger.ErrorWithKV("run", string(code), "run failed", &t0, map[string]string{"err": err.Error()})
		diag.IncOp("run", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("run", string(code))
		}
		return sum, err
	}
	rtimer.FinishKV("grep", int64(sum.Matches), map[string]string{
		"rows":       strconv.Itoa(sum.Rows),
		"unassigned": strconv.Itoa(sum.Unassigned),
		"truncated":  strconv.Itoa(sum.Truncated),
	})
	diag.IncOp("run", "finish", "success")
	diag.ObserveDuration("run", "finish", time.Since(t0).Milliseconds())
	return sum, nil
}

// rankMain 为单个 rank 的完整程序；所有 rank 以相同顺序发起相同的集合调用。
// sum 仅由协调者写入（Run 返回前 errgroup.Wait 建立 happens-before）。
func rankMain(ctx context.Context, c *collective.Comm, comp Components, set Settings, log *diag.Logger, sum *Summary) error {
	part, err := distribute(ctx, c, comp, set, log, sum)
	if err != nil {
		return fmt.Errorf("distribute: %w", err)
	}
	matches, err := search(ctx, c, comp, set, part, log)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if t := diag.GetTerminal(); t != nil {
		t.RankFinish(c.Rank(), len(part.records), len(matches))
	}
	if err := aggregate(ctx, c, comp, set, matches, log, sum); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := collective.Barrier(ctx, c); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// fail 记录阶段错误（日志 + 指标）并原样返回 err。
func fail(log *diag.Logger, comp, msg string, err error) error {
	code := diag.Classify(err)
	log.ErrorWithKV(comp, string(code), msg, nil, map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	return err
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Encoder == nil || c.Partitioner == nil || c.Searcher == nil || c.Assembler == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", contract.ErrInvalidInput, s.Workers)
	}
	if strings.TrimSpace(s.Input) == "" {
		return fmt.Errorf("%w: empty input path", contract.ErrInvalidInput)
	}
	return nil
}
