package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
)

// Flash 非易失存储中的一个可擦除块
type Flash interface {
	// Read 读取整块内容，从未写入时返回空切片
	Read(ctx context.Context) ([]byte, error)
	// EraseAndProgram 擦除整块并写入新内容
	EraseAndProgram(ctx context.Context, block []byte) error
}

// MemoryFlash 内存实现，测试和无持久化运行时使用
type MemoryFlash struct {
	mu      sync.Mutex
	block   []byte
	writes  int
	failErr error
}

// NewMemoryFlash 创建内存闪存，可选初始内容
func NewMemoryFlash(initial []byte) *MemoryFlash {
	return &MemoryFlash{block: append([]byte(nil), initial...)}
}

// Read 实现Flash接口
func (f *MemoryFlash) Read(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.block...), nil
}

// EraseAndProgram 实现Flash接口
func (f *MemoryFlash) EraseAndProgram(_ context.Context, block []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		err := f.failErr
		f.failErr = nil
		return err
	}
	f.block = append(f.block[:0], block...)
	f.writes++
	return nil
}

// Writes 返回成功写入次数
func (f *MemoryFlash) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// FailNextWrite 让下一次写入返回指定错误
func (f *MemoryFlash) FailNextWrite(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

// FileFlash 文件实现，整块写入临时文件后原子替换
type FileFlash struct {
	path string
}

// NewFileFlash 创建文件闪存
func NewFileFlash(path string) *FileFlash {
	return &FileFlash{path: path}
}

// Path 返回文件路径
func (f *FileFlash) Path() string {
	return f.path
}

// Read 实现Flash接口
func (f *FileFlash) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageReadFailed, "read flash file", err)
	}
	return data, nil
}

// EraseAndProgram 实现Flash接口
func (f *FileFlash) EraseAndProgram(_ context.Context, block []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrStorageWriteFailed, "create flash directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrStorageWriteFailed, "create temp block", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(block); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrStorageWriteFailed, "write temp block", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrStorageWriteFailed, "sync temp block", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrStorageWriteFailed, "close temp block", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Wrap(errors.ErrStorageWriteFailed, fmt.Sprintf("replace %s", f.path), err)
	}
	return nil
}
