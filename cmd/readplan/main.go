package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "readplan/internal/config"
	"readplan/internal/diag"
	"readplan/internal/pipeline"
	"readplan/pkg/contract"
)

// 测试替换点
var (
	pipelineRun = pipeline.Run
	now         = time.Now
)

// 退出码
const (
	exitOK     = 0
	exitRun    = 1
	exitConfig = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), os.Stderr))
}

type flags struct {
	config         string
	start, end     string
	books          string
	includeLengths bool
	outputDir      string
	outputPrefix   string
	logLevel       string
	initDir        string
	status         bool
}

func newRootCmd(f *flags, exec func(cmd *cobra.Command) int, code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readplan",
		Short: "按字数均衡生成逐日阅读计划",
		Long: "readplan 读取书卷/章节字数语料，在给定日期区间内生成逐日阅读计划。\n" +
			"配置优先级：CLI > ENV(READPLAN_*, .env) > 配置文件(JSON/YAML) > 默认值。",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = exec(cmd)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "配置文件路径（.json/.yaml）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	fl.StringVar(&f.start, "start", "", "开始日期 YYYY-MM-DD（覆盖配置）")
	fl.StringVar(&f.end, "end", "", "结束日期 YYYY-MM-DD（含，覆盖配置）")
	fl.StringVar(&f.books, "books", "", "书卷序号，例如 1-39,41；以单条轨道替换配置中的轨道")
	fl.BoolVar(&f.includeLengths, "include-lengths", false, "在每行末尾输出当日字数")
	fl.StringVar(&f.outputDir, "output-dir", "", "输出目录（覆盖配置）")
	fl.StringVar(&f.outputPrefix, "output-prefix", "", "输出文件名前缀（覆盖配置）")
	fl.StringVar(&f.logLevel, "log-level", "", "日志等级 debug|info|warn|error")
	fl.StringVar(&f.initDir, "init-config", "", "在指定目录生成 config.json 与 .env 模板（不覆盖已有文件）；用法 --init-config=DIR，不带值时为当前目录")
	fl.Lookup("init-config").NoOptDefVal = "."
	fl.BoolVar(&f.status, "status", true, "终端状态提示（stderr）")
	return cmd
}

func run(args, environ []string, stderr io.Writer) int {
	var f flags
	code := exitOK
	cmd := newRootCmd(&f, func(cmd *cobra.Command) int { return execute(cmd, &f, environ, stderr) }, &code)
	// nil 时 cobra 会回退到 os.Args
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fprintf(stderr, "参数错误: %v\n", err)
		return exitConfig
	}
	return code
}

func execute(cmd *cobra.Command, f *flags, environ []string, stderr io.Writer) int {
	start := now()
	corrID := uuid.NewString()

	if dir := strings.TrimSpace(f.initDir); dir != "" {
		if err := initConfig(dir); err != nil {
			fprintf(stderr, "生成默认配置失败: %v\n", err)
			return exitConfig
		}
		fprintf(stderr, "已生成 %s\n", filepath.Join(dir, "config.json"))
		return exitOK
	}

	// .env 只补充未设置的键
	dot, err := loadDotEnv(".env")
	if err != nil {
		fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}
	environ = append(dot, environ...)

	cfg, err := resolveConfig(cmd, f, environ)
	if err != nil {
		fprintf(stderr, "配置解析失败: %v\n", err)
		return exitConfig
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(stderr, cfg)
		return exitConfig
	}

	// 配置确定前只写 stderr，不落日志文件
	logger := diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Sync()

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}
	set.Artifact = artifactID(cfg.Output.Prefix, start)

	term := diag.NewTerminal(stderr, f.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(set.Start.String(), set.End.String(), len(set.Tracks))

	logger.DebugStart("config", "effective", "", map[string]string{
		"start":     set.Start.String(),
		"end":       set.End.String(),
		"tracks":    fmt.Sprintf("%d", len(set.Tracks)),
		"reader":    cfg.Components.Reader,
		"formatter": cfg.Components.Formatter,
		"writer":    cfg.Components.Writer,
		"artifact":  string(set.Artifact),
	})

	t := logger.Start("pipeline", "run")
	if err := pipelineRun(context.Background(), comp, set, logger); err != nil {
		code := diag.Classify(err)
		logger.Error("pipeline", string(code), "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("pipeline", string(code))
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, "", time.Since(start))
		return exitRun
	}
	t.Finish("run", int64(len(set.Tracks)))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, artifactPath(comp.Writer, set.Artifact), time.Since(start))
	return exitOK
}

// resolveConfig 依次合并：默认值 → 配置文件 → ENV → CLI。
func resolveConfig(cmd *cobra.Command, f *flags, environ []string) (cfgpkg.Config, error) {
	overEnv, src, err := cfgpkg.EnvOverlay(environ)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	path := f.config
	if path == "" {
		path = src.File
	}
	if path == "" && src.JSON == "" {
		for _, p := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := cfgpkg.Defaults()
	switch {
	case path != "":
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	case src.JSON != "":
		base, err := cfgpkg.LoadJSON([]byte(src.JSON))
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	overCLI.StartDate = f.start
	overCLI.EndDate = f.end
	if strings.TrimSpace(f.books) != "" {
		books, err := cfgpkg.ParseBooks(f.books)
		if err != nil {
			return cfgpkg.Config{}, fmt.Errorf("--books: %w", err)
		}
		overCLI.Tracks = []cfgpkg.Track{{Name: "main", Books: books}}
	}
	if cmd.Flags().Changed("include-lengths") {
		v := f.includeLengths
		overCLI.IncludeLengths = &v
	}
	overCLI.Output = cfgpkg.Output{Dir: f.outputDir, Prefix: f.outputPrefix}
	overCLI.Logging.Level = f.logLevel
	return cfgpkg.Merge(cfg, overCLI), nil
}

// artifactID: <prefix>_<unix 秒>。
func artifactID(prefix string, t time.Time) contract.ArtifactID {
	if strings.TrimSpace(prefix) == "" {
		prefix = cfgpkg.Defaults().Output.Prefix
	}
	return contract.ArtifactID(fmt.Sprintf("%s_%d", prefix, t.Unix()))
}

// artifactPath 在 Writer 能给出目标路径时返回它，否则返回工件名。
func artifactPath(w contract.Writer, id contract.ArtifactID) string {
	if p, ok := w.(interface {
		Path(contract.ArtifactID) (string, error)
	}); ok {
		if s, err := p.Path(id); err == nil {
			return s
		}
	}
	return string(id)
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	fprintf(w, "有效配置:\n%s\n", b)
	return nil
}

func initConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeConfig(filepath.Join(dir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
		return err
	}
	return writeDotEnv(filepath.Join(dir, ".env"))
}

// writeConfig 写出配置模板；目标已存在时失败（不覆盖）。
func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeDotEnv 生成 .env 模板；已存在则跳过。
func writeDotEnv(path string) error {
	keys := []struct{ comment, key string }{
		{"配置来源（二选一）", "CONFIG_FILE"},
		{"", "CONFIG_JSON"},
		{"计划参数", "START_DATE"},
		{"", "END_DATE"},
		{"", "BOOKS"},
		{"", "INCLUDE_LENGTHS"},
		{"", "CATCH_UP_LABEL"},
		{"", "STANDALONE"},
		{"", "PARTITION_MAX_ITERATIONS"},
		{"输出与日志", "OUTPUT_DIR"},
		{"", "OUTPUT_PREFIX"},
		{"", "LOG_LEVEL"},
		{"", "LOG_DIR"},
		{"组件选择与选项", "COMPONENTS_READER"},
		{"", "COMPONENTS_FORMATTER"},
		{"", "COMPONENTS_WRITER"},
		{"", "OPTIONS_READER_JSON"},
		{"", "OPTIONS_FORMATTER_JSON"},
		{"", "OPTIONS_WRITER_JSON"},
	}
	var b strings.Builder
	b.WriteString("# readplan .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件；空值表示未设置。\n")
	for _, k := range keys {
		if k.comment != "" {
			b.WriteString("\n# " + k.comment + "\n")
		}
		b.WriteString(cfgpkg.EnvPrefix + k.key + "=\n")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadDotEnv 读取简单的 .env 文件，返回 KEY=VALUE 列表；文件不存在时返回空。
// 规则：跳过空行与 # 注释；支持 "export " 前缀；按首个 '=' 分割；
// 去除成对的外层引号，双引号内处理 \n \t \" \\；空值视为未设置。
func loadDotEnv(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fh.Close()
	var out []string
	s := bufio.NewScanner(fh)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '\'' || val[0] == '"') && val[len(val)-1] == val[0] {
			quoted := val[0]
			val = val[1 : len(val)-1]
			if quoted == '"' {
				val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`).Replace(val)
			}
		}
		out = append(out, key+"="+val)
	}
	return out, s.Err()
}

// preflightCheckOutputDir: fs writer 启动前检查输出目录可写性。
// 目录存在时尝试创建并删除临时文件；不存在时检查父目录。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writer := cfg.Components.Writer
	if writer == "" {
		writer = cfgpkg.Defaults().Components.Writer
	}
	dir := strings.TrimSpace(cfg.Output.Dir)
	if writer != "fs" || dir == "" {
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(dir)
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmp, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(tmp)
}
