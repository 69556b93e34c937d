package report

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"pgrep/pkg/contract"
)

func match(line uint32, text string) contract.Match {
	buf := make([]byte, contract.LineWidth)
	contract.PutRecord(buf, text)
	return contract.Match{Line: line, Text: string(buf)}
}

func render(t *testing.T, a *Assembler, rep contract.Report) string {
	t.Helper()
	r, err := a.Assemble(context.Background(), rep)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	b, _ := io.ReadAll(r)
	return string(b)
}

// TestAssembleFormat 每条 "N: text"（定长原文），'\n' 分隔，末尾无换行。
func TestAssembleFormat(t *testing.T) {
	rep := contract.Report{match(1, "abc"), match(4, "abc again")}
	got := render(t, New(nil), rep)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines got %d: %q", len(lines), got)
	}
	if lines[0] != "1: "+rep[0].Text || lines[1] != "4: "+rep[1].Text {
		t.Fatalf("unexpected output %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("trailing newline")
	}
}

// TestAssembleTrim 去除填充空格。
func TestAssembleTrim(t *testing.T) {
	got := render(t, New(&Options{TrimPadding: true}), contract.Report{match(12, "x y")})
	if got != "12: x y" {
		t.Fatalf("got %q", got)
	}
}

// TestAssembleEmpty 空报告渲染为零字节。
func TestAssembleEmpty(t *testing.T) {
	if got := render(t, New(nil), nil); got != "" {
		t.Fatalf("expect empty, got %q", got)
	}
}

// TestAssembleCanceled 上下文已取消。
func TestAssembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Assemble(ctx, contract.Report{match(1, "a")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled got %v", err)
	}
}
