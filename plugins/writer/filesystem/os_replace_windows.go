//go:build windows

package filesystem

import (
	"syscall"
	"unsafe"
)

const (
	moveReplaceExisting = 0x1
	moveWriteThrough    = 0x8
)

var procMoveFileExW = syscall.NewLazyDLL("kernel32.dll").NewProc("MoveFileExW")

// osReplace: MoveFileExW(REPLACE_EXISTING|WRITE_THROUGH)，目标已存在时同样替换。
func osReplace(tmpPath, dest string) error {
	from, err := syscall.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	to, err := syscall.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	r1, _, e1 := procMoveFileExW.Call(
		uintptr(unsafe.Pointer(from)),
		uintptr(unsafe.Pointer(to)),
		uintptr(moveReplaceExisting|moveWriteThrough),
	)
	if r1 != 0 {
		return nil
	}
	if e1 != nil && e1 != syscall.Errno(0) {
		return e1
	}
	return syscall.EINVAL
}

// syncDir: Windows 无目录 fsync。
func syncDir(string) error { return nil }
