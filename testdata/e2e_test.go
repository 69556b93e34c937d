package testdata

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "pgrep/internal/config"
	"pgrep/internal/pipeline"
	"pgrep/pkg/contract"
)

// expectedOutput 顺序扫描输入，构造单进程下的期望报告。
func expectedOutput(t *testing.T, inPath, pattern string) string {
	t.Helper()
	f, err := os.Open(inPath)
	if err != nil {
		t.Fatalf("open input: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	var out []string
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if len(line) >= contract.LineWidth {
			line = line[:contract.LineWidth-1]
		}
		rec := line + strings.Repeat(" ", contract.LineWidth-len(line))
		if strings.Contains(rec[:contract.LineWidth-1], pattern) {
			out = append(out, fmt.Sprintf("%d: %s", n, rec))
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return strings.Join(out, "\n")
}

func baseConfig(outDir string, workers int, partitioner string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Workers = workers
	cfg.Components.Partitioner = partitioner
	cfg.Logging.Level = "error"
	cfg.Output = cfgpkg.Output{Dir: outDir, Name: "output.txt"}
	cfg.Options.Writer = json.RawMessage(`{"atomic":false,"perm_file":0,"perm_dir":0,"buf_size":65536}`)
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config, pattern, input string) (pipeline.Summary, error) {
	t.Helper()
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	set.Pattern = pattern
	set.Input = input
	return pipeline.Run(context.Background(), comp, set, nil)
}

func readOutput(t *testing.T, outDir string) string {
	t.Helper()
	got, err := os.ReadFile(filepath.Join(outDir, "output.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(got)
}

func TestE2ESuccess(t *testing.T) {
	in := filepath.Join("files", "corpus-100-line.txt")
	want := expectedOutput(t, in, "needle")
	for _, workers := range []int{1, 3, 4, 7} {
		t.Run(fmt.Sprintf("balanced_%d", workers), func(t *testing.T) {
			outDir := t.TempDir()
			sum, err := runPipeline(t, baseConfig(outDir, workers, "balanced"), "needle", in)
			if err != nil {
				t.Fatalf("pipeline: %v", err)
			}
			if sum.Rows != 100 || sum.Unassigned != 0 {
				t.Fatalf("summary: %+v", sum)
			}
			if got := readOutput(t, outDir); got != want {
				t.Fatalf("output mismatch\nwant:\n%s\ngot:\n%s", want, got)
			}
		})
	}
}

// TestE2EParityCovering 行数 100 为偶数且被 P 整除时，parity 覆盖全部行，与单进程一致。
func TestE2EParityCovering(t *testing.T) {
	in := filepath.Join("files", "corpus-100-line.txt")
	want := expectedOutput(t, in, "a")
	for _, workers := range []int{2, 4, 5} {
		outDir := t.TempDir()
		sum, err := runPipeline(t, baseConfig(outDir, workers, "parity"), "a", in)
		if err != nil {
			t.Fatalf("P=%d pipeline: %v", workers, err)
		}
		if sum.Unassigned != 0 {
			t.Fatalf("P=%d unassigned %d", workers, sum.Unassigned)
		}
		if got := readOutput(t, outDir); got != want {
			t.Fatalf("P=%d output mismatch", workers)
		}
	}
}

// TestE2ETruncate 超长行截断到 80 字节：截断点之后的内容不可检索。
func TestE2ETruncate(t *testing.T) {
	in := filepath.Join("files", "long-line.txt")
	outDir := t.TempDir()
	sum, err := runPipeline(t, baseConfig(outDir, 2, "balanced"), "needle", in)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if sum.Truncated != 1 || sum.Matches != 2 {
		t.Fatalf("summary: %+v", sum)
	}
	got := readOutput(t, outDir)
	if got != expectedOutput(t, in, "needle") || !strings.HasPrefix(got, "2: ") {
		t.Fatalf("output: %q", got)
	}

	outDir = t.TempDir()
	if _, err := runPipeline(t, baseConfig(outDir, 2, "balanced"), "tailmark", in); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if got := readOutput(t, outDir); got != "" {
		t.Fatalf("截断部分不应命中: %q", got)
	}
}

func TestE2EStrictLongLine(t *testing.T) {
	in := filepath.Join("files", "long-line.txt")
	outDir := t.TempDir()
	cfg := baseConfig(outDir, 2, "balanced")
	cfg.Options.Encoder = json.RawMessage(`{"strict":true}`)
	_, err := runPipeline(t, cfg, "needle", in)
	if !errors.Is(err, contract.ErrLineTooLong) {
		t.Fatalf("expect ErrLineTooLong, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "output.txt")); err == nil {
		t.Fatalf("output file should not exist")
	}
}

// TestE2EZeroMatches 无命中：写出空文件而非报错。
func TestE2EZeroMatches(t *testing.T) {
	in := filepath.Join("files", "corpus-100-line.txt")
	outDir := t.TempDir()
	sum, err := runPipeline(t, baseConfig(outDir, 3, "parity"), "no-such-token", in)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if sum.Matches != 0 {
		t.Fatalf("matches %d", sum.Matches)
	}
	if got := readOutput(t, outDir); got != "" {
		t.Fatalf("expect empty report, got %q", got)
	}
}

func TestE2EMissingInput(t *testing.T) {
	outDir := t.TempDir()
	_, err := runPipeline(t, baseConfig(outDir, 2, "parity"), "x", filepath.Join("files", "absent.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expect not exist, got %v", err)
	}
}
