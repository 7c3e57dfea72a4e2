package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ConfigStore 固定容量的键值配置表，内存中修改，Commit 时整块写入闪存
type ConfigStore struct {
	mu       sync.RWMutex
	flash    Flash
	record   Record
	defaults []Entry
	dirty    bool
}

// NewConfigStore 创建配置存储，defaults 为出厂默认值
func NewConfigStore(flash Flash, defaults map[string]string) *ConfigStore {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	// 默认值按键名顺序补齐，保证每次启动的条目顺序一致
	sort.Strings(keys)

	seeds := make([]Entry, 0, len(keys))
	for _, k := range keys {
		seeds = append(seeds, Entry{Key: []byte(k), Value: []byte(defaults[k])})
	}

	return &ConfigStore{
		flash:    flash,
		defaults: seeds,
	}
}

// Load 从闪存读取记录。记录损坏时以空记录替换并返回 recovered=true，
// 随后补齐缺失的默认键。读取失败返回错误，存储保持为空。
func (s *ConfigStore) Load(ctx context.Context) (recovered bool, err error) {
	raw, err := s.flash.Read(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrStorageReadFailed, "read config block", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, decodeErr := DecodeRecord(raw)
	if decodeErr != nil {
		// 全新设备的擦除块同样走这里，统一视为恢复
		logger.WithFields(logrus.Fields{
			"error":  decodeErr.Error(),
			"length": len(raw),
		}).Warn("配置记录无效，已重置为空记录")
		rec = Record{}
		recovered = true
		s.dirty = true
	}
	s.record = rec

	seeded := 0
	for _, d := range s.defaults {
		if s.record.index(d.Key) >= 0 {
			continue
		}
		if len(s.record.Entries) >= Capacity {
			logger.WithField("key", string(d.Key)).Warn("配置表已满，默认键未能补齐")
			continue
		}
		s.record.Entries = append(s.record.Entries, Entry{
			Key:   append([]byte(nil), d.Key...),
			Value: append([]byte(nil), d.Value...),
		})
		seeded++
	}
	if seeded > 0 {
		s.dirty = true
	}

	logger.WithFields(logrus.Fields{
		"entries":   len(s.record.Entries),
		"seeded":    seeded,
		"recovered": recovered,
	}).Info("配置存储加载完成")
	return recovered, nil
}

// Get 返回键对应的值，键按字节精确比较
func (s *ConfigStore) Get(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.record.index(key)
	if i < 0 {
		return nil, false
	}
	return append([]byte(nil), s.record.Entries[i].Value...), true
}

// GetString Get 的字符串版本
func (s *ConfigStore) GetString(key string) (string, bool) {
	v, ok := s.Get([]byte(key))
	return string(v), ok
}

// Set 新增或覆盖一个键。超长返回 ErrMalformedPayload，表满返回 ErrStorageFull，两者都不修改存储。
func (s *ConfigStore) Set(key, value []byte) error {
	if len(key) == 0 || len(key) > MaxKeyLen {
		return errors.Newf(errors.ErrMalformedPayload, "key length %d out of range 1..%d", len(key), MaxKeyLen)
	}
	if len(value) > MaxValueLen {
		return errors.Newf(errors.ErrMalformedPayload, "value length %d exceeds %d", len(value), MaxValueLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.record.index(key); i >= 0 {
		if string(s.record.Entries[i].Value) == string(value) {
			return nil
		}
		s.record.Entries[i].Value = append([]byte(nil), value...)
		s.dirty = true
		return nil
	}

	if len(s.record.Entries) >= Capacity {
		return errors.Newf(errors.ErrStorageFull, "config store holds %d entries", Capacity)
	}
	s.record.Entries = append(s.record.Entries, Entry{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	})
	s.dirty = true
	return nil
}

// SetString Set 的字符串版本
func (s *ConfigStore) SetString(key, value string) error {
	return s.Set([]byte(key), []byte(value))
}

// Delete 删除键，返回键是否存在。其余条目保持原有顺序。
func (s *ConfigStore) Delete(key []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.record.index(key)
	if i < 0 {
		return false
	}
	s.record.Entries = append(s.record.Entries[:i], s.record.Entries[i+1:]...)
	s.dirty = true
	return true
}

// Commit 将内存记录写入闪存，未修改时跳过并返回 false。
// 写入失败时保留修改标记，调用方可以重试。
func (s *ConfigStore) Commit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return false, nil
	}

	raw, err := EncodeRecord(s.record)
	if err != nil {
		return false, err
	}
	if err := s.flash.EraseAndProgram(ctx, padBlock(raw)); err != nil {
		logger.WithField("error", err.Error()).Error("配置写入闪存失败")
		if errors.IsErrCode(err, errors.ErrStorageWriteFailed) {
			return false, err
		}
		return false, errors.Wrap(errors.ErrStorageWriteFailed, "program config block", err)
	}

	s.dirty = false
	logger.WithField("entries", len(s.record.Entries)).Info("配置已写入闪存")
	return true, nil
}

// FactoryReset 清空所有条目，恢复默认值并立即写入闪存
func (s *ConfigStore) FactoryReset(ctx context.Context) error {
	s.mu.Lock()
	rec := Record{Entries: make([]Entry, 0, len(s.defaults))}
	for _, d := range s.defaults {
		if len(rec.Entries) >= Capacity {
			break
		}
		rec.Entries = append(rec.Entries, Entry{
			Key:   append([]byte(nil), d.Key...),
			Value: append([]byte(nil), d.Value...),
		})
	}
	s.record = rec
	s.dirty = true
	s.mu.Unlock()

	logger.Warn("配置存储恢复出厂设置")
	_, err := s.Commit(ctx)
	return err
}

// Entries 返回当前条目的副本，按插入顺序
func (s *ConfigStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.clone().Entries
}

// Dirty 是否存在未写入闪存的修改
func (s *ConfigStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Len 当前条目数
func (s *ConfigStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.record.Entries)
}
