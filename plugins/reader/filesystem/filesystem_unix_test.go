//go:build !windows

package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"pgrep/pkg/contract"
)

// TestOpenSymlink 跟随指向常规文件的符号链接 (Unix only)
func TestOpenSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	os.WriteFile(target, []byte("ok"), 0o644)
	link := filepath.Join(dir, "l.txt")
	os.Symlink(target, link)
	id, rc, err := New(nil).Open(context.Background(), link)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "ok" || !strings.Contains(string(id), "l.txt") {
		t.Fatalf("symlink read %q id %s", string(b), id)
	}
}

// TestOpenSymlinkDangling 符号链接失效返回错误 (Unix only)
func TestOpenSymlinkDangling(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling")
	os.Symlink(filepath.Join(dir, "no"), link)
	if _, _, err := New(nil).Open(context.Background(), link); err == nil {
		t.Fatalf("expect error for dangling symlink")
	}
}

// TestOpenNonRegular FIFO 返回 ErrPathInvalid (Unix only - uses mkfifo)
func TestOpenNonRegular(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "fifo")
	if err := syscall.Mkfifo(fifo, 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	if _, _, err := New(nil).Open(context.Background(), fifo); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("want ErrPathInvalid got %v", err)
	}
}
