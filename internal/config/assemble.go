package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pgrep/internal/collective"
	"pgrep/internal/diag"
	"pgrep/internal/pipeline"
	"pgrep/pkg/contract"
	"pgrep/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if cfg.Workers < 1 || cfg.Workers > collective.MaxGroupSize {
		return fmt.Errorf("config: workers must be in [1,%d], got %d", collective.MaxGroupSize, cfg.Workers)
	}
	if cfg.TimeoutSeconds < 0 {
		return errors.New("config: timeout_seconds must be >= 0")
	}
	if !diag.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("config: unknown logging.level %q", cfg.Logging.Level)
	}
	name := strings.TrimSpace(cfg.Output.Name)
	if name == "" {
		return errors.New("config: output.name empty")
	}
	if id := contract.NormalizeFileID(name); id == "." || id == ".." || strings.HasPrefix(string(id), "../") {
		return fmt.Errorf("config: output.name %q escapes output dir", name)
	}
	d := Defaults().Components
	checks := []struct {
		kind string
		name string
		ok   bool
		have []string
	}{
		{"reader", effName(cfg.Components.Reader, d.Reader), registry.Reader[effName(cfg.Components.Reader, d.Reader)] != nil, registry.Names(registry.Reader)},
		{"encoder", effName(cfg.Components.Encoder, d.Encoder), registry.Encoder[effName(cfg.Components.Encoder, d.Encoder)] != nil, registry.Names(registry.Encoder)},
		{"partitioner", effName(cfg.Components.Partitioner, d.Partitioner), registry.Partitioner[effName(cfg.Components.Partitioner, d.Partitioner)] != nil, registry.Names(registry.Partitioner)},
		{"searcher", effName(cfg.Components.Searcher, d.Searcher), registry.Searcher[effName(cfg.Components.Searcher, d.Searcher)] != nil, registry.Names(registry.Searcher)},
		{"assembler", effName(cfg.Components.Assembler, d.Assembler), registry.Assembler[effName(cfg.Components.Assembler, d.Assembler)] != nil, registry.Names(registry.Assembler)},
		{"writer", effName(cfg.Components.Writer, d.Writer), registry.Writer[effName(cfg.Components.Writer, d.Writer)] != nil, registry.Names(registry.Writer)},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("config: %s %q not registered (available: %s)", c.kind, c.name, strings.Join(c.have, ", "))
		}
	}
	return nil
}

// Assemble 构造 Components 与 Settings（查找串与输入由调用方填写）。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults().Components

	wopts := cfg.Options.Writer
	if dir := strings.TrimSpace(cfg.Output.Dir); dir != "" && effName(cfg.Components.Writer, d.Writer) == "fs" {
		var err error
		if wopts, err = PatchOption(wopts, "output_dir", dir); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, err
		}
	}

	var comp pipeline.Components
	var err error
	if comp.Reader, err = registry.Reader[effName(cfg.Components.Reader, d.Reader)](cfg.Options.Reader); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader options: %w", err)
	}
	if comp.Encoder, err = registry.Encoder[effName(cfg.Components.Encoder, d.Encoder)](cfg.Options.Encoder); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("encoder options: %w", err)
	}
	pn := effName(cfg.Components.Partitioner, d.Partitioner)
	if comp.Partitioner, err = registry.Partitioner[pn](cfg.Options.Partitioner); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("partitioner options: %w", err)
	}
	if comp.Searcher, err = registry.Searcher[effName(cfg.Components.Searcher, d.Searcher)](cfg.Options.Searcher); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("searcher options: %w", err)
	}
	if comp.Assembler, err = registry.Assembler[effName(cfg.Components.Assembler, d.Assembler)](cfg.Options.Assembler); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("assembler options: %w", err)
	}
	if comp.Writer, err = registry.Writer[effName(cfg.Components.Writer, d.Writer)](wopts); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer options: %w", err)
	}

	set := pipeline.Settings{
		Workers:     cfg.Workers,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		Output:      contract.ArtifactID(strings.TrimSpace(cfg.Output.Name)),
		Partitioner: pn,
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if strings.TrimSpace(got) == "" {
		return def
	}
	return strings.TrimSpace(got)
}
