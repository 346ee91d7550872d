package config

import (
	"encoding/json"

	"readplan/internal/schedule"
)

// DefaultTemplateConfig 返回一个可直接运行的配置模板：
// 全本 66 卷一年计划，旧约与新约之间插入一个补读日，语料取自 ./bible.csv。
func DefaultTemplateConfig() Config {
	d := Defaults()
	lengths := false
	cfg := d
	cfg.StartDate = "2025-01-01"
	cfg.EndDate = "2025-12-31"
	cfg.Tracks = []Track{{Name: "bible", Books: []BookSpec{"1-66"}}}
	cfg.IncludeLengths = &lengths
	cfg.Seams = []schedule.Seam{{Before: "Malachi", After: "Matthew"}}
	cfg.Standalone = []string{}
	// Options：包含所有键（值为默认），确保键存在。
	cfg.Options.Reader = json.RawMessage(`{
  "path": "bible.csv",
  "comma": ",",
  "buf_size": 65536
}`)
	cfg.Options.Formatter = json.RawMessage(`{
  "date_layout": "Jan _2, 2006",
  "language": "en",
  "separator": " | "
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "ext": "",
  "atomic": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
