package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoadedStore(t *testing.T, flash Flash, defaults map[string]string) *ConfigStore {
	t.Helper()
	store := NewConfigStore(flash, defaults)
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	return store
}

func TestConfigStoreSeedsDefaultsOnBlankFlash(t *testing.T) {
	flash := NewMemoryFlash(nil)
	store := NewConfigStore(flash, constants.DefaultConfigValues())

	recovered, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, recovered, "空白闪存视为损坏后恢复")
	assert.Equal(t, len(constants.DefaultConfigValues()), store.Len())

	v, ok := store.GetString(constants.KeyColorOrder)
	assert.True(t, ok)
	assert.Equal(t, "BGR", v)
	assert.True(t, store.Dirty())
}

func TestConfigStoreDefaultsDoNotOverrideStoredValues(t *testing.T) {
	flash := NewMemoryFlash(nil)
	first := newLoadedStore(t, flash, constants.DefaultConfigValues())
	require.NoError(t, first.SetString(constants.KeySSID, "office"))
	_, err := first.Commit(context.Background())
	require.NoError(t, err)

	second := NewConfigStore(flash, constants.DefaultConfigValues())
	recovered, err := second.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, recovered)
	assert.False(t, second.Dirty())

	v, _ := second.GetString(constants.KeySSID)
	assert.Equal(t, "office", v)
}

func TestConfigStoreCommitPersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	flash := NewMemoryFlash(nil)
	store := newLoadedStore(t, flash, nil)

	require.NoError(t, store.SetString("brightness", "200"))
	require.NoError(t, store.SetString("rotation", "90"))
	assert.True(t, store.Delete([]byte("rotation")))

	wrote, err := store.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)

	raw, _ := flash.Read(ctx)
	assert.Len(t, raw, BlockSize)

	reloaded := newLoadedStore(t, flash, nil)
	v, ok := reloaded.GetString("brightness")
	assert.True(t, ok)
	assert.Equal(t, "200", v)
	_, ok = reloaded.GetString("rotation")
	assert.False(t, ok)
}

func TestConfigStoreCommitSkippedWhenClean(t *testing.T) {
	ctx := context.Background()
	flash := NewMemoryFlash(nil)
	store := newLoadedStore(t, flash, nil)

	wrote, err := store.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, wrote, "恢复后的空记录需要写入")
	assert.Equal(t, 1, flash.Writes())

	wrote, err = store.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, flash.Writes())

	// 写入相同的值不产生修改
	require.NoError(t, store.SetString("a", "1"))
	_, err = store.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SetString("a", "1"))
	assert.False(t, store.Dirty())
}

func TestConfigStoreCapacity(t *testing.T) {
	store := newLoadedStore(t, NewMemoryFlash(nil), nil)
	for i := 0; i < Capacity; i++ {
		require.NoError(t, store.SetString(fmt.Sprintf("key%02d", i), "v"))
	}

	err := store.SetString("overflow", "v")
	assert.True(t, errors.IsErrCode(err, errors.ErrStorageFull))
	assert.Equal(t, Capacity, store.Len())
	_, ok := store.GetString("overflow")
	assert.False(t, ok)

	// 表满时仍可覆盖已有键
	assert.NoError(t, store.SetString("key00", "updated"))
}

func TestConfigStoreRejectsOversizedFields(t *testing.T) {
	store := newLoadedStore(t, NewMemoryFlash(nil), nil)
	require.NoError(t, store.SetString("k", "old"))
	_, err := store.Commit(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name  string
		key   []byte
		value []byte
	}{
		{"empty key", []byte{}, []byte("v")},
		{"long key", make([]byte, MaxKeyLen+1), []byte("v")},
		{"long value", []byte("k"), make([]byte, MaxValueLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(tt.key, tt.value)
			assert.True(t, errors.IsErrCode(err, errors.ErrMalformedPayload))
			assert.False(t, store.Dirty())
		})
	}

	v, _ := store.GetString("k")
	assert.Equal(t, "old", v)
	assert.NoError(t, store.Set(make([]byte, MaxKeyLen), make([]byte, MaxValueLen)))
}

func TestConfigStoreKeysAreByteExact(t *testing.T) {
	store := newLoadedStore(t, NewMemoryFlash(nil), nil)
	require.NoError(t, store.SetString("key", "a"))
	require.NoError(t, store.SetString("key\x00", "b"))
	require.NoError(t, store.SetString("Key", "c"))

	assert.Equal(t, 3, store.Len())
	v, _ := store.GetString("key")
	assert.Equal(t, "a", v)
}

func TestConfigStoreGetAndDeleteAbsent(t *testing.T) {
	store := newLoadedStore(t, NewMemoryFlash(nil), nil)
	_, err := store.Commit(context.Background())
	require.NoError(t, err)

	_, ok := store.GetString("missing")
	assert.False(t, ok)
	assert.False(t, store.Delete([]byte("missing")))
	assert.False(t, store.Dirty())
}

func TestConfigStoreDeletePreservesOrder(t *testing.T) {
	store := newLoadedStore(t, NewMemoryFlash(nil), nil)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.SetString(k, k))
	}
	store.Delete([]byte("b"))

	var keys []string
	for _, e := range store.Entries() {
		keys = append(keys, string(e.Key))
	}
	assert.Equal(t, []string{"a", "c", "d"}, keys)
}

func TestConfigStoreRecoversFromCorruption(t *testing.T) {
	ctx := context.Background()
	flash := NewMemoryFlash(nil)
	store := newLoadedStore(t, flash, nil)
	require.NoError(t, store.SetString("custom", "value"))
	_, err := store.Commit(ctx)
	require.NoError(t, err)

	raw, _ := flash.Read(ctx)
	raw[headerSize] ^= 0x01
	require.NoError(t, flash.EraseAndProgram(ctx, raw))

	reloaded := NewConfigStore(flash, map[string]string{"ssid": "MyNetwork"})
	recovered, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.True(t, recovered)

	_, ok := reloaded.GetString("custom")
	assert.False(t, ok, "损坏记录不做部分恢复")
	v, ok := reloaded.GetString("ssid")
	assert.True(t, ok)
	assert.Equal(t, "MyNetwork", v)
}

func TestConfigStoreWriteFailureKeepsDirty(t *testing.T) {
	ctx := context.Background()
	flash := NewMemoryFlash(nil)
	store := newLoadedStore(t, flash, nil)

	flash.FailNextWrite(stderrors.New("program failed"))
	wrote, err := store.Commit(ctx)
	assert.False(t, wrote)
	assert.True(t, errors.IsErrCode(err, errors.ErrStorageWriteFailed))
	assert.True(t, errors.CodeOf(err).Retryable())
	assert.True(t, store.Dirty())

	wrote, err = store.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.False(t, store.Dirty())
}

func TestConfigStoreFactoryReset(t *testing.T) {
	ctx := context.Background()
	flash := NewMemoryFlash(nil)
	store := newLoadedStore(t, flash, constants.DefaultConfigValues())
	require.NoError(t, store.SetString(constants.KeySSID, "office"))
	require.NoError(t, store.SetString("extra", "1"))

	require.NoError(t, store.FactoryReset(ctx))
	assert.False(t, store.Dirty())
	assert.Equal(t, len(constants.DefaultConfigValues()), store.Len())

	reloaded := newLoadedStore(t, flash, nil)
	v, _ := reloaded.GetString(constants.KeySSID)
	assert.Equal(t, "MyNetwork", v)
	_, ok := reloaded.GetString("extra")
	assert.False(t, ok)
}

func TestFileFlashRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "config.bin")
	flash := NewFileFlash(path)

	raw, err := flash.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, raw)

	store := newLoadedStore(t, flash, constants.DefaultConfigValues())
	_, err = store.Commit(ctx)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(BlockSize), info.Size())

	reloaded := NewConfigStore(flash, constants.DefaultConfigValues())
	recovered, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.False(t, recovered)
}
