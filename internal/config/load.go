package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// EnvPrefix: 环境变量前缀。
const EnvPrefix = "PGREP_"

// Defaults 返回带有安全默认值的 Config 雏形（rank 数默认等于 CPU 数）。
func Defaults() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Output:  Output{Name: "output.txt"},
		Logging: Logging{Level: "info"},
		Components: Components{
			Reader:      "fs",
			Encoder:     "fixedwidth",
			Partitioner: "parity",
			Searcher:    "substring",
			Assembler:   "report",
			Writer:      "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
// 未出现的标量字段保持 -1/空，以便 Merge 区分“未设置”与“显式 0”。
func LoadJSON(path string, raw []byte) (Config, error) {
	cfg := unset()
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// unset 返回一个“全部未设置”的覆盖层。
func unset() Config {
	return Config{Workers: -1, TimeoutSeconds: -1}
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
// 数值字段以 <0 表示未设置（TimeoutSeconds 的 0 有语义：关闭超时）。
func Merge(base, over Config) Config {
	out := base
	if over.Workers >= 0 {
		out.Workers = over.Workers
	}
	if over.TimeoutSeconds >= 0 {
		out.TimeoutSeconds = over.TimeoutSeconds
	}
	if s := strings.TrimSpace(over.Output.Dir); s != "" {
		out.Output.Dir = s
	}
	if s := strings.TrimSpace(over.Output.Name); s != "" {
		out.Output.Name = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}

	// 组件名（空不覆盖）
	mergeName(&out.Components.Reader, over.Components.Reader)
	mergeName(&out.Components.Encoder, over.Components.Encoder)
	mergeName(&out.Components.Partitioner, over.Components.Partitioner)
	mergeName(&out.Components.Searcher, over.Components.Searcher)
	mergeName(&out.Components.Assembler, over.Components.Assembler)
	mergeName(&out.Components.Writer, over.Components.Writer)

	// Options（完整替换对应键）
	mergeRaw(&out.Options.Reader, over.Options.Reader)
	mergeRaw(&out.Options.Encoder, over.Options.Encoder)
	mergeRaw(&out.Options.Partitioner, over.Options.Partitioner)
	mergeRaw(&out.Options.Searcher, over.Options.Searcher)
	mergeRaw(&out.Options.Assembler, over.Options.Assembler)
	mergeRaw(&out.Options.Writer, over.Options.Writer)
	return out
}

func mergeName(dst *string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = s
	}
}

func mergeRaw(dst *json.RawMessage, v json.RawMessage) {
	if len(bytes.TrimSpace(v)) > 0 {
		*dst = cloneRaw(v)
	}
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 PGREP_；集合外的键忽略；数值无法解析时返回错误。
// 支持：WORKERS, TIMEOUT_SECONDS, LOG_LEVEL, OUTPUT_DIR, OUTPUT_NAME,
// COMPONENTS_<KIND>, OPTIONS_<KIND>_JSON（KIND ∈ READER/ENCODER/PARTITIONER/SEARCHER/ASSEMBLER/WRITER）。
func EnvOverlay(environ []string) (Config, error) {
	over := unset()
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			// 空值视为未设置，避免清空 config.json 中的值
			continue
		}
		switch key {
		case "WORKERS", "TIMEOUT_SECONDS":
			n, err := atoi(val)
			if err != nil {
				return over, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			if key == "WORKERS" {
				over.Workers = n
			} else {
				over.TimeoutSeconds = n
			}
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "OUTPUT_DIR":
			over.Output.Dir = val
		case "OUTPUT_NAME":
			over.Output.Name = val
		default:
			if name, ok := strings.CutPrefix(key, "COMPONENTS_"); ok {
				if p := componentName(&over.Components, name); p != nil {
					*p = val
				}
				continue
			}
			if mid, ok := strings.CutPrefix(key, "OPTIONS_"); ok {
				if name, ok := strings.CutSuffix(mid, "_JSON"); ok {
					if p := componentOptions(&over.Options, name); p != nil {
						*p = json.RawMessage(val)
					}
				}
			}
		}
	}
	return over, nil
}

func componentName(c *Components, kind string) *string {
	switch kind {
	case "READER":
		return &c.Reader
	case "ENCODER":
		return &c.Encoder
	case "PARTITIONER":
		return &c.Partitioner
	case "SEARCHER":
		return &c.Searcher
	case "ASSEMBLER":
		return &c.Assembler
	case "WRITER":
		return &c.Writer
	}
	return nil
}

func componentOptions(o *Options, kind string) *json.RawMessage {
	switch kind {
	case "READER":
		return &o.Reader
	case "ENCODER":
		return &o.Encoder
	case "PARTITIONER":
		return &o.Partitioner
	case "SEARCHER":
		return &o.Searcher
	case "ASSEMBLER":
		return &o.Assembler
	case "WRITER":
		return &o.Writer
	}
	return nil
}

// PatchOption 在原样 JSON 对象 raw 上设置单个键（raw 为空时新建对象）。
// 用于把 CLI 旗标（如 --strict、--output-dir）落到对应组件的 Options 上。
func PatchOption(raw json.RawMessage, key string, value any) (json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("config: options must be a JSON object: %w", err)
		}
	}
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	m[key] = v
	return json.Marshal(m)
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
