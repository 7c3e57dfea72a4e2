package display

import (
	"bytes"
	"io"
	"sync"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/klauspost/compress/zlib"
)

// 解压器复用，zlib.NewReader 需要有效的流头，所以池中只保存用过的实例
var readerPool sync.Pool

func acquireReader(src io.Reader) (io.ReadCloser, error) {
	if r, ok := readerPool.Get().(io.ReadCloser); ok {
		if err := r.(zlib.Resetter).Reset(src, nil); err != nil {
			return nil, err
		}
		return r, nil
	}
	return zlib.NewReader(src)
}

func releaseReader(r io.ReadCloser) {
	readerPool.Put(r)
}

// InflateExact 解压 zlib 数据，解压结果必须恰好为 size 字节且校验和正确
func InflateExact(compressed []byte, size int) ([]byte, error) {
	r, err := acquireReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecompressionFailure, "invalid zlib stream", err)
	}
	defer releaseReader(r)

	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errors.Wrap(errors.ErrDecompressionFailure, "inflated data shorter than framebuffer", err)
	}

	// 多余的数据或者流尾校验失败都视为错误
	var extra [1]byte
	n, err := io.ReadFull(r, extra[:])
	if n > 0 {
		return nil, errors.Newf(errors.ErrDecompressionFailure, "inflated data exceeds %d bytes", size)
	}
	if err != io.EOF {
		return nil, errors.Wrap(errors.ErrDecompressionFailure, "corrupt zlib stream", err)
	}
	return out, nil
}

// Deflate 使用 zlib 压缩数据，客户端上传压缩帧时使用
func Deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
