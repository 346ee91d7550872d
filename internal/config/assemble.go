package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"readplan/internal/pipeline"
	"readplan/internal/schedule"
	"readplan/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	start, end, err := dates(cfg)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("config: end_date %s must be after start_date %s", end, start)
	}
	if len(cfg.Tracks) == 0 {
		return errors.New("config: tracks empty")
	}
	names := map[string]bool{}
	for i, t := range cfg.Tracks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("config: tracks[%d] missing name", i)
		}
		if names[name] {
			return fmt.Errorf("config: duplicate track %q", name)
		}
		names[name] = true
		if len(t.Books) == 0 {
			return fmt.Errorf("config: track %q has no books", name)
		}
		for _, b := range t.Books {
			if _, err := b.Expand(); err != nil {
				return fmt.Errorf("config: track %q: %w", name, err)
			}
		}
	}
	for i, s := range cfg.Seams {
		if strings.TrimSpace(s.Before) == "" || strings.TrimSpace(s.After) == "" {
			return fmt.Errorf("config: seams[%d] needs before and after", i)
		}
	}
	if cfg.Allocator.MergeThreshold < 0 || cfg.Allocator.FlushThreshold < 0 || cfg.Allocator.TruncateDivisor < 0 {
		return errors.New("config: allocator thresholds must be >= 0")
	}
	if cfg.Partition.MaxIterations < 0 {
		return errors.New("config: partition.max_iterations must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q", cfg.Logging.Level)
	}
	if p := cfg.Output.Prefix; strings.ContainsAny(p, `/\`) || p == "." || p == ".." {
		return fmt.Errorf("config: output.prefix %q must be a plain file name", p)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。
	d := Defaults().Components
	if name := effName(cfg.Components.Reader, d.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Formatter, d.Formatter); registry.Formatter[name] == nil {
		return fmt.Errorf("config: formatter %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

// Assemble 构造 Components 与 Settings（Settings.Artifact 由调用方填写）。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults().Components
	rn := effName(cfg.Components.Reader, d.Reader)
	fn := effName(cfg.Components.Formatter, d.Formatter)
	wn := effName(cfg.Components.Writer, d.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader %s: %w", rn, err)
	}
	f, err := registry.Formatter[fn](cfg.Options.Formatter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("formatter %s: %w", fn, err)
	}
	wopts := cfg.Options.Writer
	if wn == "fs" && strings.TrimSpace(cfg.Output.Dir) != "" {
		if wopts, err = withField(wopts, "dir", cfg.Output.Dir); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %s: %w", wn, err)
		}
	}
	w, err := registry.Writer[wn](wopts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %s: %w", wn, err)
	}

	start, end, _ := dates(cfg)
	set := pipeline.Settings{
		Start:          start,
		End:            end,
		IncludeLengths: cfg.IncludeLengths != nil && *cfg.IncludeLengths,
		Schedule: schedule.Options{
			MergeThreshold:  cfg.Allocator.MergeThreshold,
			FlushThreshold:  cfg.Allocator.FlushThreshold,
			TruncateDivisor: cfg.Allocator.TruncateDivisor,
			Standalone:      cloneStrings(cfg.Standalone),
			MaxIterations:   cfg.Partition.MaxIterations,
			Seams:           append([]schedule.Seam(nil), cfg.Seams...),
			CatchUpLabel:    cfg.CatchUpLabel,
		},
	}
	for _, t := range cfg.Tracks {
		spec := pipeline.TrackSpec{Name: strings.TrimSpace(t.Name)}
		for _, b := range t.Books {
			idx, _ := b.Expand()
			spec.Books = append(spec.Books, idx...)
		}
		set.Tracks = append(set.Tracks, spec)
	}
	return pipeline.Components{Reader: r, Formatter: f, Writer: w}, set, nil
}

func dates(cfg Config) (civil.Date, civil.Date, error) {
	start, err := civil.ParseDate(strings.TrimSpace(cfg.StartDate))
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("config: start_date %q: want YYYY-MM-DD", cfg.StartDate)
	}
	end, err := civil.ParseDate(strings.TrimSpace(cfg.EndDate))
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("config: end_date %q: want YYYY-MM-DD", cfg.EndDate)
	}
	return start, end, nil
}

// withField 在原样 JSON 对象上设置一个字段（其余键保持不变）。
func withField(raw json.RawMessage, key string, val any) (json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	m[key] = b
	return json.Marshal(m)
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
