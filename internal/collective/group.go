// Package collective 提供进程内的集合通信原语（broadcast/scatter/gather 及其变长版本、barrier）。
//
// 模型：
// - 固定大小的组，每个 rank 一个 goroutine，组成员在整个运行期不变；
// - 每对有序 (src,dst) 之间一条 FIFO 通道，首次使用时创建；所有 rank 必须以相同顺序调用相同的集合操作；
// - 每条消息携带操作类型与调用方的集合序号，错配返回 ErrMismatch 而非静默错位；
// - 阻塞点全部响应 ctx 取消；未配置超时时，缺席的 rank 会让整组一直阻塞。
package collective

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"pgrep/pkg/contract"
)

// ErrMismatch: 集合调用错配（操作类型、序号、负载类型或长度不一致）。
var ErrMismatch = fmt.Errorf("%w: collective mismatch", contract.ErrInvariantViolation)

// linkBuffer: 每条 (src,dst) 通道的缓冲深度。
const linkBuffer = 4

// MaxGroupSize: 组大小上限。
const MaxGroupSize = 4096

// Op 为集合操作类型。
type Op uint8

const (
	OpBroadcast Op = iota + 1
	OpScatter
	OpScatterv
	OpGather
	OpGatherv
	OpBarrier
)

func (o Op) String() string {
	switch o {
	case OpBroadcast:
		return "broadcast"
	case OpScatter:
		return "scatter"
	case OpScatterv:
		return "scatterv"
	case OpGather:
		return "gather"
	case OpGatherv:
		return "gatherv"
	case OpBarrier:
		return "barrier"
	default:
		return "unknown"
	}
}

type envelope struct {
	op      Op
	seq     uint64
	payload any
}

// Group: 固定成员的通信组。
// 通道按 (src,dst) 懒创建：以 root 为中心的集合调用只会用到 2*(size-1) 条。
type Group struct {
	size  int
	mu    sync.Mutex
	links map[linkKey]chan envelope
}

type linkKey struct{ src, dst int }

// NewGroup 创建 size 个 rank 的通信组（1 <= size <= MaxGroupSize）。
func NewGroup(size int) (*Group, error) {
	if size < 1 || size > MaxGroupSize {
		return nil, fmt.Errorf("%w: group size %d not in [1,%d]", contract.ErrInvalidInput, size, MaxGroupSize)
	}
	return &Group{size: size, links: make(map[linkKey]chan envelope)}, nil
}

// link 返回 src→dst 的通道；收发双方取到同一条。
func (g *Group) link(src, dst int) chan envelope {
	k := linkKey{src, dst}
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.links[k]
	if !ok {
		ch = make(chan envelope, linkBuffer)
		g.links[k] = ch
	}
	return ch
}

// Links 返回已创建的通道数。
func (g *Group) Links() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.links)
}

// Size 返回组大小。
func (g *Group) Size() int { return g.size }

// Comm 返回 rank 的通信句柄。每个 rank 只能有一个句柄且只能在一个 goroutine 中使用。
func (g *Group) Comm(rank int) *Comm {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("collective: rank %d out of range [0,%d)", rank, g.size))
	}
	return &Comm{g: g, rank: rank}
}

// Comm: 单个 rank 的通信句柄（非并发安全）。
type Comm struct {
	g    *Group
	rank int
	seq  uint64
}

// Rank 返回本 rank 编号。
func (c *Comm) Rank() int { return c.rank }

// Size 返回组大小。
func (c *Comm) Size() int { return c.g.size }

// Seq 返回已发起的集合调用次数。
func (c *Comm) Seq() uint64 { return c.seq }

func (c *Comm) next() uint64 {
	c.seq++
	return c.seq
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= c.g.size {
		return fmt.Errorf("%w: root %d out of range [0,%d)", contract.ErrInvalidInput, root, c.g.size)
	}
	return nil
}

func (c *Comm) send(ctx context.Context, dst int, env envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.g.link(c.rank, dst) <- env:
		return nil
	}
}

func (c *Comm) recv(ctx context.Context, src int, op Op, seq uint64) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case env := <-c.g.link(src, c.rank):
		if env.op != op || env.seq != seq {
			return nil, fmt.Errorf("%w: rank %d expected %s#%d from rank %d, got %s#%d",
				ErrMismatch, c.rank, op, seq, src, env.op, env.seq)
		}
		return env.payload, nil
	}
}

// Run 为每个 rank 启动一个 goroutine 执行 fn。
// 任一 rank 返回错误即取消整组上下文（阻塞中的集合调用随之返回），Run 返回首错。
func Run(ctx context.Context, size int, fn func(ctx context.Context, c *Comm) error) error {
	g, err := NewGroup(size)
	if err != nil {
		return err
	}
	eg, ectx := errgroup.WithContext(ctx)
	for r := 0; r < size; r++ {
		c := g.Comm(r)
		eg.Go(func() error { return fn(ectx, c) })
	}
	return eg.Wait()
}
