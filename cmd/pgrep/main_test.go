package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "pgrep/internal/config"
	"pgrep/internal/diag"
	"pgrep/internal/pipeline"
	"pgrep/pkg/contract"
)

func resetFlag(args []string) {
	flag.CommandLine = flag.NewFlagSet(args[0], flag.ContinueOnError)
	os.Args = args
}

// inTempDir 切换到临时工作目录（logs/、output.txt 均落在其中）。
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return dir
}

// stubRun 替换 pipelineRun，返回捕获到的 Settings 指针。
func stubRun(t *testing.T, err error) *pipeline.Settings {
	t.Helper()
	var got pipeline.Settings
	orig := pipelineRun
	pipelineRun = func(ctx context.Context, comp pipeline.Components, set pipeline.Settings, logger *diag.Logger) (pipeline.Summary, error) {
		got = set
		return pipeline.Summary{}, err
	}
	t.Cleanup(func() { pipelineRun = orig })
	return &got
}

func TestWriteConfig(t *testing.T) {
	cfg := cfgpkg.Defaults()
	file := filepath.Join(t.TempDir(), "c.json")
	if err := writeConfig(file, cfg); err != nil {
		t.Fatalf("writeConfig file: %v", err)
	}
	if _, err := cfgpkg.LoadJSON(file, nil); err != nil {
		t.Fatalf("生成的配置无法回读: %v", err)
	}
	if err := writeConfig(file, cfg); err == nil {
		t.Fatalf("已存在文件不应覆盖")
	}
}

func TestDumpConfig(t *testing.T) {
	devnull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	old := os.Stderr
	os.Stderr = devnull
	defer func() { os.Stderr = old; devnull.Close() }()
	if err := dumpConfig(cfgpkg.Defaults()); err != nil {
		t.Fatalf("dumpConfig: %v", err)
	}
}

func TestNormalizeInitArg(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"pgrep", "--init-config"}, []string{"pgrep", "--init-config", "."}},
		{[]string{"pgrep", "--init-config", "--status=false"}, []string{"pgrep", "--init-config", ".", "--status=false"}},
		{[]string{"pgrep", "--init-config", "out"}, []string{"pgrep", "--init-config", "out"}},
		{[]string{"pgrep", "--init-config=out"}, []string{"pgrep", "--init-config=out"}},
	}
	for _, tt := range cases {
		os.Args = tt.in
		normalizeInitArg()
		if strings.Join(os.Args, " ") != strings.Join(tt.want, " ") {
			t.Errorf("normalize %v = %v, want %v", tt.in, os.Args, tt.want)
		}
	}
}

func TestRunInitConfig(t *testing.T) {
	dir := inTempDir(t)
	outDir := filepath.Join(dir, "out")
	resetFlag([]string{"pgrep", "--init-config", outDir})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if _, err := os.Stat(filepath.Join(outDir, "config.json")); err != nil {
		t.Fatalf("config not generated: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(outDir, ".env"))
	if err != nil || !strings.Contains(string(b), "PGREP_WORKERS") {
		t.Fatalf(".env not generated: %v", err)
	}
}

func TestRunInitConfigDefault(t *testing.T) {
	dir := inTempDir(t)
	resetFlag([]string{"pgrep", "--init-config"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("config not generated: %v", err)
	}
}

func TestRunInitConfigFileExists(t *testing.T) {
	dir := inTempDir(t)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}
	resetFlag([]string{"pgrep", "--init-config", dir})
	if code := run(); code != 3 {
		t.Fatalf("expect 3, got %d", code)
	}
}

// TestRunUsage 位置参数个数不对：打印用法，退出码 0，不运行流水线。
func TestRunUsage(t *testing.T) {
	inTempDir(t)
	for _, args := range [][]string{{"pgrep"}, {"pgrep", "abc"}, {"pgrep", "a", "b", "c"}} {
		var buf bytes.Buffer
		old := stdout
		stdout = &buf
		called := stubRun(t, nil)
		called.Workers = -7
		resetFlag(args)
		code := run()
		stdout = old
		if code != 0 {
			t.Fatalf("%v: expect 0, got %d", args, code)
		}
		want := "Expected 2 inputs, got " + string(rune('0'+len(args)-1))
		if !strings.Contains(buf.String(), want) || !strings.Contains(buf.String(), "Usage:") {
			t.Fatalf("%v: usage output %q", args, buf.String())
		}
		if called.Workers != -7 {
			t.Fatalf("%v: pipeline should not run", args)
		}
	}
}

func TestRunSuccess(t *testing.T) {
	inTempDir(t)
	got := stubRun(t, nil)
	resetFlag([]string{"pgrep", "--status=false", "abc", "input.txt"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if got.Pattern != "abc" || got.Input != "input.txt" || got.Output != "output.txt" || got.Partitioner != "parity" {
		t.Fatalf("settings: %+v", got)
	}
	if got.Workers < 1 {
		t.Fatalf("默认 workers 应 >= 1: %d", got.Workers)
	}
}

// TestRunDashPattern 以 - 开头的查找串放在 -- 之后按位置参数处理。
func TestRunDashPattern(t *testing.T) {
	inTempDir(t)
	got := stubRun(t, nil)
	resetFlag([]string{"pgrep", "--status=false", "--", "-v", "log.txt"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if got.Pattern != "-v" || got.Input != "log.txt" {
		t.Fatalf("positional: %+v", got)
	}

	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()
	resetFlag([]string{"pgrep", "--status=false"})
	if code := run(); code != 0 {
		t.Fatalf("usage return %d", code)
	}
	if !strings.Contains(buf.String(), "[--] <pattern> <file>") || !strings.Contains(buf.String(), "-- -v") {
		t.Fatalf("usage should mention --: %q", buf.String())
	}
}

// TestRunDashPatternEndToEnd 真实流水线查找 "-v"。
func TestRunDashPatternEndToEnd(t *testing.T) {
	dir := inTempDir(t)
	input := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(input, []byte("grep -v foo\nplain\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	resetFlag([]string{"pgrep", "--status=false", "--workers", "1", "--", "-v", input})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	b, err := os.ReadFile(filepath.Join(dir, "output.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(b), "1: grep -v foo") || strings.Contains(string(b), "\n") {
		t.Fatalf("output %q", b)
	}
}

func TestRunCLIOverrides(t *testing.T) {
	dir := inTempDir(t)
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.TimeoutSeconds = 30
	b, _ := json.Marshal(cfg)
	t.Setenv("PGREP_CONFIG_JSON", string(b))

	got := stubRun(t, nil)
	resetFlag([]string{"pgrep", "--status=false", "--workers", "2", "--partitioner", "balanced",
		"--timeout", "0", "--output-dir", filepath.Join(dir, "res"), "--output-name", "hits.txt", "--strict", "", "-"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if got.Workers != 2 || got.Partitioner != "balanced" || got.Timeout != 0 || got.Output != "hits.txt" {
		t.Fatalf("cli overrides not applied: %+v", got)
	}
	if got.Pattern != "" || got.Input != "-" {
		t.Fatalf("positional: %+v", got)
	}
}

func TestRunEnvOverrides(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("PGREP_WORKERS", "3")
	t.Setenv("PGREP_TIMEOUT_SECONDS", "5")
	// .env 中的键不覆盖已存在的 ENV
	env := "PGREP_WORKERS=9\nPGREP_OUTPUT_NAME=dotenv.txt\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PGREP_OUTPUT_NAME") })

	got := stubRun(t, nil)
	resetFlag([]string{"pgrep", "--status=false", "x", "in.txt"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if got.Workers != 3 || got.Timeout != 5*time.Second || got.Output != "dotenv.txt" {
		t.Fatalf("env overrides not applied: %+v", got)
	}
}

func TestRunConfigFileEnv(t *testing.T) {
	dir := inTempDir(t)
	cfg := cfgpkg.Defaults()
	cfg.Workers = 6
	b, _ := json.Marshal(cfg)
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PGREP_CONFIG_FILE", path)
	got := stubRun(t, nil)
	resetFlag([]string{"pgrep", "--status=false", "x", "in.txt"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if got.Workers != 6 {
		t.Fatalf("config file not applied: %+v", got)
	}
}

func TestRunDefaultConfigFile(t *testing.T) {
	dir := inTempDir(t)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"workers":4,"components":{"partitioner":"balanced"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got := stubRun(t, nil)
	resetFlag([]string{"pgrep", "--status=false", "x", "in.txt"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if got.Workers != 4 || got.Partitioner != "balanced" {
		t.Fatalf("./config.json not applied: %+v", got)
	}
}

func TestRunConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		env  string
		args []string
	}{
		{"missing file", "", []string{"--config", "missing.json"}},
		{"unknown field", `{"pattern":"x"}`, nil},
		{"bad env", "", nil},
		{"validate", "", []string{"--partitioner", "random"}},
		{"negative workers", "", []string{"--workers", "-2"}},
		{"assemble", `{"options":{"reader":{"unknown":1}}}`, nil},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			if tt.env != "" {
				t.Setenv("PGREP_CONFIG_JSON", tt.env)
			}
			if tt.name == "bad env" {
				t.Setenv("PGREP_WORKERS", "many")
			}
			devnull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
			old := os.Stderr
			os.Stderr = devnull
			defer func() { os.Stderr = old; devnull.Close() }()

			stubRun(t, nil)
			args := append([]string{"pgrep", "--status=false"}, tt.args...)
			resetFlag(append(args, "x", "in.txt"))
			if code := run(); code != 3 {
				t.Fatalf("expect 3, got %d", code)
			}
		})
	}
}

func TestRunPipelineError(t *testing.T) {
	inTempDir(t)
	stubRun(t, errors.New("boom"))
	resetFlag([]string{"pgrep", "--status=false", "x", "in.txt"})
	if code := run(); code != 1 {
		t.Fatalf("expect 1, got %d", code)
	}
}

// TestRunEndToEnd 真实流水线：两个 rank，输出落在 --output-dir。
func TestRunEndToEnd(t *testing.T) {
	dir := inTempDir(t)
	input := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(input, []byte("abc\nxyz123\nno match here\nabc again\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "res")
	resetFlag([]string{"pgrep", "--status=false", "--workers", "2", "--output-dir", outDir, "abc", input})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	b, err := os.ReadFile(filepath.Join(outDir, "output.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	pad := func(s string) string { return s + strings.Repeat(" ", contract.LineWidth-len(s)) }
	want := "1: " + pad("abc") + "\n4: " + pad("abc again")
	if string(b) != want {
		t.Fatalf("output\n got %q\nwant %q", b, want)
	}
}

func TestPreflightNotDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := cfgpkg.Defaults()
	cfg.Output.Dir = file
	if err := preflightCheckOutputDir(cfg); err == nil {
		t.Fatalf("文件路径应判为不可写目录")
	}
	cfg.Output.Dir = filepath.Join(dir, "new")
	if err := preflightCheckOutputDir(cfg); err != nil {
		t.Fatalf("父目录可写应通过: %v", err)
	}
	cfg.Output.Dir = ""
	cfg.Options.Writer = json.RawMessage(`{"output_dir":"` + filepath.ToSlash(file) + `"}`)
	if err := preflightCheckOutputDir(cfg); err == nil {
		t.Fatalf("writer options 中的 output_dir 同样应检查")
	}
}
