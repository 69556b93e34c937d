package collective

import (
	"context"
	"fmt"

	"pgrep/pkg/contract"
)

// Broadcast 由 root 将 v 发给组内所有 rank；所有 rank 返回相同的值。
// v 按值传递；需要转移所有权的切片请使用 Scatter。
func Broadcast[T any](ctx context.Context, c *Comm, root int, v T) (T, error) {
	var zero T
	if err := c.checkRoot(root); err != nil {
		return zero, err
	}
	seq := c.next()
	if c.rank == root {
		for r := 0; r < c.Size(); r++ {
			if r == root {
				continue
			}
			if err := c.send(ctx, r, envelope{op: OpBroadcast, seq: seq, payload: v}); err != nil {
				return zero, err
			}
		}
		return v, nil
	}
	p, err := c.recv(ctx, root, OpBroadcast, seq)
	if err != nil {
		return zero, err
	}
	return cast[T](p, OpBroadcast)
}

// Scatter 等长分发：rank r 获得 send[r*each:(r+1)*each] 的拷贝。
// 仅 root 读取 send；len(send) 可大于 each*size（多余尾部不分发）。
func Scatter[T any](ctx context.Context, c *Comm, root int, send []T, each int) ([]T, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	if each < 0 {
		return nil, fmt.Errorf("%w: scatter count %d", contract.ErrInvalidInput, each)
	}
	seq := c.next()
	if c.rank == root {
		if len(send) < each*c.Size() {
			return nil, fmt.Errorf("%w: scatter needs %d elements, have %d", contract.ErrInvalidInput, each*c.Size(), len(send))
		}
		for r := 0; r < c.Size(); r++ {
			if r == root {
				continue
			}
			seg := clone(send[r*each : (r+1)*each])
			if err := c.send(ctx, r, envelope{op: OpScatter, seq: seq, payload: seg}); err != nil {
				return nil, err
			}
		}
		return clone(send[root*each : (root+1)*each]), nil
	}
	p, err := c.recv(ctx, root, OpScatter, seq)
	if err != nil {
		return nil, err
	}
	return castLen[T](p, OpScatter, each)
}

// Scatterv 变长分发：rank r 获得 send[displs[r]:displs[r]+counts[r]] 的拷贝。
// counts/displs 仅 root 需要（其他 rank 可传 nil）；recvCount 为本 rank 期望的元素数。
func Scatterv[T any](ctx context.Context, c *Comm, root int, send []T, counts, displs []int, recvCount int) ([]T, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.next()
	if c.rank == root {
		if err := checkTables(c.Size(), len(send), counts, displs); err != nil {
			return nil, err
		}
		for r := 0; r < c.Size(); r++ {
			if r == root {
				continue
			}
			seg := clone(send[displs[r] : displs[r]+counts[r]])
			if err := c.send(ctx, r, envelope{op: OpScatterv, seq: seq, payload: seg}); err != nil {
				return nil, err
			}
		}
		own := clone(send[displs[root] : displs[root]+counts[root]])
		if len(own) != recvCount {
			return nil, fmt.Errorf("%w: scatterv root expects %d elements, table says %d", ErrMismatch, recvCount, len(own))
		}
		return own, nil
	}
	p, err := c.recv(ctx, root, OpScatterv, seq)
	if err != nil {
		return nil, err
	}
	return castLen[T](p, OpScatterv, recvCount)
}

// Gather 将每个 rank 的 v 按 rank 顺序收集到 root；非 root 返回 nil。
func Gather[T any](ctx context.Context, c *Comm, root int, v T) ([]T, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.next()
	if c.rank != root {
		return nil, c.send(ctx, root, envelope{op: OpGather, seq: seq, payload: v})
	}
	out := make([]T, c.Size())
	out[root] = v
	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		p, err := c.recv(ctx, r, OpGather, seq)
		if err != nil {
			return nil, err
		}
		if out[r], err = cast[T](p, OpGather); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Gatherv 变长收集：rank r 的 send 放入 root 结果的 [displs[r], displs[r]+counts[r])。
// counts/displs 仅 root 需要；root 的结果总是非 nil（总量为 0 时为空切片），非 root 返回 nil。
func Gatherv[T any](ctx context.Context, c *Comm, root int, send []T, counts, displs []int) ([]T, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	seq := c.next()
	if c.rank != root {
		return nil, c.send(ctx, root, envelope{op: OpGatherv, seq: seq, payload: clone(send)})
	}
	total := extent(counts, displs)
	if err := checkTables(c.Size(), total, counts, displs); err != nil {
		return nil, err
	}
	out := make([]T, total)
	if len(send) != counts[root] {
		return nil, fmt.Errorf("%w: gatherv root sends %d elements, table says %d", ErrMismatch, len(send), counts[root])
	}
	copy(out[displs[root]:], send)
	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		p, err := c.recv(ctx, r, OpGatherv, seq)
		if err != nil {
			return nil, err
		}
		seg, err := castLen[T](p, OpGatherv, counts[r])
		if err != nil {
			return nil, err
		}
		copy(out[displs[r]:], seg)
	}
	return out, nil
}

// Barrier 阻塞直到组内所有 rank 都到达。
func Barrier(ctx context.Context, c *Comm) error {
	seq := c.next()
	const root = 0
	if c.rank != root {
		if err := c.send(ctx, root, envelope{op: OpBarrier, seq: seq}); err != nil {
			return err
		}
		_, err := c.recv(ctx, root, OpBarrier, seq)
		return err
	}
	for r := 1; r < c.Size(); r++ {
		if _, err := c.recv(ctx, r, OpBarrier, seq); err != nil {
			return err
		}
	}
	for r := 1; r < c.Size(); r++ {
		if err := c.send(ctx, r, envelope{op: OpBarrier, seq: seq}); err != nil {
			return err
		}
	}
	return nil
}

func cast[T any](p any, op Op) (T, error) {
	v, ok := p.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s payload is %T", ErrMismatch, op, p)
	}
	return v, nil
}

func castLen[T any](p any, op Op, want int) ([]T, error) {
	v, err := cast[[]T](p, op)
	if err != nil {
		return nil, err
	}
	if len(v) != want {
		return nil, fmt.Errorf("%w: %s received %d elements, expected %d", ErrMismatch, op, len(v), want)
	}
	return v, nil
}

// clone 返回非 nil 的独立拷贝（所有权随消息转移）。
func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// checkTables 校验 counts/displs 与缓冲长度 n 的一致性。
func checkTables(size, n int, counts, displs []int) error {
	if len(counts) != size || len(displs) != size {
		return fmt.Errorf("%w: tables sized %d/%d for group of %d", contract.ErrInvalidInput, len(counts), len(displs), size)
	}
	for r := 0; r < size; r++ {
		if counts[r] < 0 || displs[r] < 0 || displs[r]+counts[r] > n {
			return fmt.Errorf("%w: segment %d [%d,+%d) outside buffer of %d", contract.ErrInvalidInput, r, displs[r], counts[r], n)
		}
	}
	return nil
}

// extent 返回容纳所有段所需的最小长度。
func extent(counts, displs []int) int {
	n := 0
	for r := range counts {
		if r < len(displs) && displs[r]+counts[r] > n {
			n = displs[r] + counts[r]
		}
	}
	return n
}
