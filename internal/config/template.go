package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// 组件名采用仓库内置实现，选项给出全部键与中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Workers:        d.Workers,
		TimeoutSeconds: 0,
		Output:         Output{Dir: ".", Name: "output.txt"},
		Logging:        Logging{Level: "info"},
		Components:     d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536
}`)
	cfg.Options.Encoder = json.RawMessage(`{
  "strict": false,
  "buf_size": 65536
}`)
	// parity/balanced 当前无配置项
	cfg.Options.Partitioner = json.RawMessage(`{}`)
	cfg.Options.Searcher = json.RawMessage(`{}`)
	cfg.Options.Assembler = json.RawMessage(`{
  "trim_padding": false
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": ".",
  "atomic": true,
  "flat": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}

// DotEnvTemplate 返回 .env 模板（仅包含 EnvOverlay 识别的键，全部注释掉）。
func DotEnvTemplate() string {
	return `# pgrep 环境变量（优先级：默认 < config.json < ENV < CLI）
# PGREP_WORKERS=4
# PGREP_TIMEOUT_SECONDS=0
# PGREP_LOG_LEVEL=info
# PGREP_OUTPUT_DIR=.
# PGREP_OUTPUT_NAME=output.txt
# PGREP_COMPONENTS_PARTITIONER=parity
# PGREP_OPTIONS_ENCODER_JSON={"strict":true}
# PGREP_CONFIG_FILE=./config.json
`
}
