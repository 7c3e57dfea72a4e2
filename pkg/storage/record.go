package storage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
)

// 持久化记录布局（小端序）:
// 魔数(4) + 条目数(4) + Capacity × {key[16], keyLen(1), value[128], valueLen(1)} + CRC32(4)
const (
	RecordMagic uint32 = 0xDEADBEEF

	Capacity    = 26
	MaxKeyLen   = 16
	MaxValueLen = 128

	entrySize   = MaxKeyLen + 1 + MaxValueLen + 1
	headerSize  = 8
	crcOffset   = headerSize + Capacity*entrySize
	RecordSize  = crcOffset + 4
	BlockSize   = 4096
	erasedValue = 0xFF
)

// Entry 一条配置项，键按字节精确比较
type Entry struct {
	Key   []byte
	Value []byte
}

// Record 闪存中保存的配置记录
type Record struct {
	Entries []Entry
}

// clone 深拷贝记录，避免调用方修改内部切片
func (r Record) clone() Record {
	out := Record{Entries: make([]Entry, len(r.Entries))}
	for i, e := range r.Entries {
		out.Entries[i] = Entry{
			Key:   append([]byte(nil), e.Key...),
			Value: append([]byte(nil), e.Value...),
		}
	}
	return out
}

// index 返回键所在位置，不存在返回-1
func (r Record) index(key []byte) int {
	for i, e := range r.Entries {
		if bytes.Equal(e.Key, key) {
			return i
		}
	}
	return -1
}

// EncodeRecord 序列化记录并写入CRC，返回长度为RecordSize的新缓冲区
func EncodeRecord(r Record) ([]byte, error) {
	if len(r.Entries) > Capacity {
		return nil, errors.Newf(errors.ErrStorageFull, "entry count %d exceeds capacity %d", len(r.Entries), Capacity)
	}

	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], RecordMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(r.Entries)))

	for i, e := range r.Entries {
		if len(e.Key) > MaxKeyLen || len(e.Value) > MaxValueLen {
			return nil, errors.Newf(errors.ErrMalformedPayload, "entry %d exceeds field limits", i)
		}
		off := headerSize + i*entrySize
		copy(buf[off:off+MaxKeyLen], e.Key)
		buf[off+MaxKeyLen] = byte(len(e.Key))
		valOff := off + MaxKeyLen + 1
		copy(buf[valOff:valOff+MaxValueLen], e.Value)
		buf[valOff+MaxValueLen] = byte(len(e.Value))
	}

	binary.LittleEndian.PutUint32(buf[crcOffset:], ChecksumRecord(buf))
	return buf, nil
}

// ChecksumRecord 计算记录的CRC32，CRC字段按全零参与计算，不修改入参
func ChecksumRecord(raw []byte) uint32 {
	if len(raw) < RecordSize {
		return 0
	}
	crc := crc32.Update(0, crc32.IEEETable, raw[:crcOffset])
	return crc32.Update(crc, crc32.IEEETable, []byte{0, 0, 0, 0})
}

// DecodeRecord 校验并解析记录；任何不一致都返回 ErrStorageCorrupt
func DecodeRecord(raw []byte) (Record, error) {
	if len(raw) < RecordSize {
		return Record{}, errors.Newf(errors.ErrStorageCorrupt, "record too short: %d bytes", len(raw))
	}
	raw = raw[:RecordSize]

	if magic := binary.LittleEndian.Uint32(raw[0:4]); magic != RecordMagic {
		return Record{}, errors.Newf(errors.ErrStorageCorrupt, "invalid magic 0x%08X", magic)
	}

	count := binary.LittleEndian.Uint32(raw[4:8])
	if count > Capacity {
		return Record{}, errors.Newf(errors.ErrStorageCorrupt, "entry count %d exceeds capacity", count)
	}

	stored := binary.LittleEndian.Uint32(raw[crcOffset:])
	if calculated := ChecksumRecord(raw); stored != calculated {
		return Record{}, errors.Newf(errors.ErrStorageCorrupt, "crc mismatch: stored 0x%08X calculated 0x%08X", stored, calculated)
	}

	rec := Record{Entries: make([]Entry, 0, count)}
	for i := 0; i < int(count); i++ {
		off := headerSize + i*entrySize
		keyLen := int(raw[off+MaxKeyLen])
		valOff := off + MaxKeyLen + 1
		valLen := int(raw[valOff+MaxValueLen])
		if keyLen > MaxKeyLen || valLen > MaxValueLen {
			return Record{}, errors.Newf(errors.ErrStorageCorrupt, "entry %d has invalid lengths", i)
		}
		rec.Entries = append(rec.Entries, Entry{
			Key:   append([]byte(nil), raw[off:off+keyLen]...),
			Value: append([]byte(nil), raw[valOff:valOff+valLen]...),
		})
	}
	return rec, nil
}

// padBlock 将记录填充为整块，未使用区域保持擦除态
func padBlock(raw []byte) []byte {
	block := bytes.Repeat([]byte{erasedValue}, BlockSize)
	copy(block, raw)
	return block
}
