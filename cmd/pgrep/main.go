package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	cfgpkg "pgrep/internal/config"
	"pgrep/internal/diag"
	"pgrep/internal/pipeline"
)

var pipelineRun = pipeline.Run

// stdout: 用法提示输出位置（测试可替换）。
var stdout io.Writer = os.Stdout

// 用法：pgrep [flags] [--] <pattern> <file>
// file 为 "-" 时读取 STDIN；以 - 开头的查找串需放在 -- 之后。位置参数个数不对时打印用法并以 0 退出。
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV；文件不存在则忽略）。
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fprintf(os.Stderr, "提示：.env 解析失败（已跳过）：%v\n", err)
	}
	logLevel := "info"
	// 先占位默认，解析/合并配置后按最终 level 重建
	logger := diag.NewLogger(corrID, logLevel)
	defer func() { _ = logger.Close() }()

	var (
		flagConfig      string
		flagWorkers     int
		flagOutputDir   string
		flagOutputName  string
		flagPartitioner string
		flagStrict      bool
		flagLogLevel    string
		flagTimeout     int
		flagInitDir     string
		flagStatus      bool
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	flag.IntVar(&flagWorkers, "workers", 0, "rank 数（覆盖配置；默认 CPU 数）")
	flag.StringVar(&flagOutputDir, "output-dir", "", "报告输出目录（覆盖配置）")
	flag.StringVar(&flagOutputName, "output-name", "", "报告文件名（覆盖配置；默认 output.txt）")
	flag.StringVar(&flagPartitioner, "partitioner", "", "分区器：parity|balanced（覆盖配置）")
	flag.BoolVar(&flagStrict, "strict", false, "超长行（>=81 字节）报错而非截断")
	flag.StringVar(&flagLogLevel, "log-level", "", "日志级别：debug|info|warn|error（覆盖配置）")
	// timeout 允许显式设置为 0；默认 -1 表示“未覆盖”。
	flag.IntVar(&flagTimeout, "timeout", -1, "整次运行超时秒数（覆盖配置；0 表示不设超时）")
	flag.StringVar(&flagInitDir, "init-config", "", "在指定目录生成默认配置 config.json 和 .env 模板（不覆盖已存在文件）；不带值时默认当前目录")
	flag.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	flag.Usage = usage
	normalizeInitArg()
	flag.Parse()

	// --init-config: 生成模板并退出
	if initDir := strings.TrimSpace(flagInitDir); initDir != "" {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init-config", &start)
			return 3
		}
		if err := writeConfig(filepath.Join(initDir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init-config", &start)
			return 3
		}
		if err := writeDotEnv(filepath.Join(initDir, ".env")); err != nil {
			fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return 0
	}

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(stdout, "Expected 2 inputs, got %d\n", len(args))
		usage()
		return 0
	}
	pattern, input := args[0], args[1]

	// JSON 配置（ENV: PGREP_CONFIG_JSON 或文件）
	var cfgJSON []byte
	if s := os.Getenv("PGREP_CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	if flagConfig == "" {
		flagConfig = os.Getenv("PGREP_CONFIG_FILE")
	}
	if flagConfig == "" {
		if _, err := os.Stat("config.json"); err == nil {
			flagConfig = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if flagConfig != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(flagConfig, cfgJSON)
		if err != nil {
			fprintf(os.Stderr, "配置解析失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "load", &start)
			return 3
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(os.Stderr, "环境变量解析失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "env", &start)
		return 3
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	overCLI := cfgpkg.Config{Workers: -1, TimeoutSeconds: flagTimeout}
	if flagWorkers != 0 {
		// 负数按 0 传入，由 Validate 拒绝
		overCLI.Workers = max(flagWorkers, 0)
	}
	overCLI.Output = cfgpkg.Output{Dir: flagOutputDir, Name: flagOutputName}
	overCLI.Logging.Level = flagLogLevel
	overCLI.Components.Partitioner = flagPartitioner
	cfg = cfgpkg.Merge(cfg, overCLI)
	if flagStrict {
		if cfg.Options.Encoder, err = cfgpkg.PatchOption(cfg.Options.Encoder, "strict", true); err != nil {
			fprintf(os.Stderr, "配置校验失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "strict", &start)
			return 3
		}
	}

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		// 打印有效配置，便于诊断
		_ = dumpConfig(cfg)
		logger.Error("config", string(diag.Classify(err)), "validate", &start)
		return 3
	}

	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" && lv != logLevel {
		_ = logger.Close()
		logger = diag.NewLogger(corrID, lv)
	}

	// 预检：fs writer 的输出目录可写性
	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "preflight", &start)
		return 3
	}

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble", &start)
		return 3
	}
	set.Pattern = pattern
	set.Input = input

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	logger.Debug("config", "effective", map[string]string{
		"workers":         strconv.Itoa(cfg.Workers),
		"timeout_seconds": strconv.Itoa(cfg.TimeoutSeconds),
		"input":           input,
		"output_dir":      cfg.Output.Dir,
		"output_name":     cfg.Output.Name,
		"reader":          cfg.Components.Reader,
		"encoder":         cfg.Components.Encoder,
		"partitioner":     cfg.Components.Partitioner,
		"searcher":        cfg.Components.Searcher,
		"assembler":       cfg.Components.Assembler,
		"writer":          cfg.Components.Writer,
	})

	if _, err := pipelineRun(context.Background(), comp, set, logger); err != nil {
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		return 1
	}
	return 0
}

func usage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(stdout, "Usage: %s [flags] [--] <pattern> <file>\n", name)
	fmt.Fprintf(stdout, "  查找串以 - 开头时用 -- 结束旗标，例如：%s -- -v log.txt\n", name)
	fmt.Fprintf(stdout, "  <file> 为 - 时读取 STDIN\n")
	flag.CommandLine.SetOutput(stdout)
	flag.PrintDefaults()
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	_, _ = f.Write([]byte("\n"))
	return nil
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(cfgpkg.DotEnvTemplate())
	return err
}

// normalizeInitArg: 允许 --init-config 在未提供路径值时采用默认值当前目录 "."。
//
//	--init-config                => 等价于 --init-config .
//	--init-config=out
//	--init-config out
//
// 仅在检测到“裸开关或后继为下一个开关”的情况下插入默认值。
func normalizeInitArg() {
	args := os.Args
	if len(args) <= 1 {
		return
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		out = append(out, a)
		if a == "--init-config" || a == "-init-config" {
			if i == len(args)-1 || strings.HasPrefix(args[i+1], "-") {
				out = append(out, ".")
			}
		}
	}
	os.Args = out
}

// preflightCheckOutputDir: fs writer 启动前检查输出目录可写性。
// - 目录已存在：尝试创建并删除临时文件；
// - 目录不存在：检查父目录是否可写（Writer 会按需创建目录）。
// 其他 writer 跳过。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	dir := strings.TrimSpace(cfg.Output.Dir)
	if dir == "" {
		var wopts struct {
			OutputDir string `json:"output_dir"`
		}
		if len(cfg.Options.Writer) > 0 {
			_ = json.Unmarshal(cfg.Options.Writer, &wopts)
		}
		dir = strings.TrimSpace(wopts.OutputDir)
	}
	if dir == "" {
		dir = "."
	}
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	} else if err == nil && !st.IsDir() {
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	} else if !os.IsNotExist(err) {
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if parent == dir {
		return fmt.Errorf("无法确定父目录: %s", dir)
	}
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
