package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"readplan/pkg/contract"
)

// Options 为文件系统 Writer 的选项。
type Options struct {
	// Dir: 输出目录（必需；不存在时创建）。
	Dir string `json:"dir"`
	// Ext: 追加到工件名后的扩展名（例如 ".txt"），默认无。
	Ext string `json:"ext,omitempty"`
	// Atomic: 同目录临时文件 + rename；nil 时默认 true。
	Atomic *bool `json:"atomic,omitempty"`
	// PermFile/PermDir: 为 0 时使用 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 将计划文本写入 Dir 下的单个文件。
type FS struct {
	dir     string
	ext     string
	atomic  bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("%w: fs writer requires dir", contract.ErrInvalidInput)
	}
	if strings.ContainsAny(opts.Ext, `/\`) {
		return nil, fmt.Errorf("%w: ext %q", contract.ErrPathInvalid, opts.Ext)
	}
	w := &FS{dir: opts.Dir, ext: opts.Ext, atomic: true, permF: 0o644, permD: 0o755, bufSize: 64 * 1024}
	if opts.Atomic != nil {
		w.atomic = *opts.Atomic
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		w.permD = opts.PermDir
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Path 返回工件对应的目标文件路径；名称须为单个路径元素。
func (w *FS) Path(id contract.ArtifactID) (string, error) {
	name := string(id)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: artifact %q", contract.ErrPathInvalid, name)
	}
	return filepath.Join(w.dir, name+w.ext), nil
}

// Write 将 r 的全部字节写入工件文件；失败时不留下半成品。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.Path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, w.permD); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeDirect(ctx, dest, r)
}

func (w *FS) writeDirect(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(w.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(w.permF); err != nil {
		return fail(err)
	}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 尽力而为：同步父目录元数据
	_ = syncDir(w.dir)
	return nil
}

// readerWithCtx 在每次 Read 前检查 ctx。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
