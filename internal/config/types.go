package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
// 查找串与输入文件只来自命令行位置参数，不进入配置。
type Config struct {
	// Workers: rank 数（>=1）。
	Workers int `json:"workers"`
	// TimeoutSeconds: 整次运行超时（秒）；0 表示不设超时。
	TimeoutSeconds int     `json:"timeout_seconds"`
	Output         Output  `json:"output"`
	Logging        Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Output: 报告输出位置。Dir 非空时覆盖 fs writer 的 output_dir。
type Output struct {
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader      string `json:"reader"`
	Encoder     string `json:"encoder"`
	Partitioner string `json:"partitioner"`
	Searcher    string `json:"searcher"`
	Assembler   string `json:"assembler"`
	Writer      string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader      json.RawMessage `json:"reader,omitempty"`
	Encoder     json.RawMessage `json:"encoder,omitempty"`
	Partitioner json.RawMessage `json:"partitioner,omitempty"`
	Searcher    json.RawMessage `json:"searcher,omitempty"`
	Assembler   json.RawMessage `json:"assembler,omitempty"`
	Writer      json.RawMessage `json:"writer,omitempty"`
}
