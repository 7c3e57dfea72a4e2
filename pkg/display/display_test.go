package display

import (
	"bytes"
	"testing"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	out, err := Deflate(data, zlib.BestSpeed)
	require.NoError(t, err)
	return out
}

func TestMatrixWriteTruncates(t *testing.T) {
	m := NewMatrix(4, 8)
	assert.Equal(t, 4*8*4, m.Capacity())

	n := m.Write(bytes.Repeat([]byte{7}, m.Capacity()+10))
	assert.Equal(t, m.Capacity(), n)
	assert.Equal(t, bytes.Repeat([]byte{7}, m.Capacity()), m.Staged())
	assert.Equal(t, make([]byte, m.Capacity()), m.Front(), "未刷新前屏幕不变")

	m.Flush()
	assert.Equal(t, m.Staged(), m.Front())
	assert.EqualValues(t, 1, m.Flushes())
}

func TestMatrixInflateExactSize(t *testing.T) {
	m := NewMatrix(4, 8)
	pixels := bytes.Repeat([]byte{1, 2, 3, 4}, m.Capacity()/4)

	require.NoError(t, m.Inflate(compress(t, pixels)))
	assert.Equal(t, pixels, m.Staged())
}

func TestMatrixInflateFailureLeavesFramebuffer(t *testing.T) {
	m := NewMatrix(4, 8)
	original := bytes.Repeat([]byte{9}, m.Capacity())
	m.Write(original)

	tests := []struct {
		name string
		data []byte
	}{
		{"larger than capacity", compress(t, make([]byte, m.Capacity()+1))},
		{"smaller than capacity", compress(t, make([]byte, m.Capacity()-1))},
		{"not zlib", []byte("definitely not compressed")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Inflate(tt.data)
			assert.True(t, errors.IsErrCode(err, errors.ErrDecompressionFailure), "got %v", err)
			assert.Equal(t, original, m.Staged())
		})
	}
}

func TestInflateExactDetectsChecksumError(t *testing.T) {
	data := compress(t, bytes.Repeat([]byte{5}, 64))
	data[len(data)-1] ^= 0xFF

	_, err := InflateExact(data, 64)
	assert.True(t, errors.IsErrCode(err, errors.ErrDecompressionFailure))
}

func TestInflateExactReusesReaders(t *testing.T) {
	for i := 0; i < 3; i++ {
		payload := bytes.Repeat([]byte{byte(i)}, 32)
		out, err := InflateExact(compress(t, payload), 32)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	}
}

func TestMatrixPrintScrolls(t *testing.T) {
	m := NewMatrix(16, 16) // 两行文本
	var seen []string
	m.AddSink(func(line string) { seen = append(seen, line) })

	m.Print("one")
	m.Print("two")
	m.Print("three")

	assert.Equal(t, []string{"two", "three"}, m.Lines())
	assert.Equal(t, []string{"one", "two", "three"}, seen)
	assert.Zero(t, m.Flushes(), "状态行不触发帧刷新")
}

func TestMatrixClear(t *testing.T) {
	m := NewMatrix(4, 8)
	m.Write(bytes.Repeat([]byte{1}, m.Capacity()))
	m.Flush()
	m.Print("hello")

	m.Clear()
	assert.Equal(t, make([]byte, m.Capacity()), m.Staged())
	assert.Equal(t, make([]byte, m.Capacity()), m.Front())
	assert.Empty(t, m.Lines())
}
