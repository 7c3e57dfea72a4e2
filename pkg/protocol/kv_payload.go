package protocol

import (
	"bytes"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
)

// KeyValueDelimiter 键值分隔符
const KeyValueDelimiter = ':'

// ParseKeyValue 以第一个冒号拆分 "key:value"，值中可以包含冒号
func ParseKeyValue(payload []byte) (key, value []byte, err error) {
	i := bytes.IndexByte(payload, KeyValueDelimiter)
	if i < 0 {
		return nil, nil, errors.New(errors.ErrMalformedPayload, "missing key-value delimiter")
	}
	key = payload[:i]
	if len(key) == 0 {
		return nil, nil, errors.New(errors.ErrMalformedPayload, "empty key")
	}
	return key, payload[i+1:], nil
}

// ParseKey 取出 kget/kdel 的键，接受 "key" 或 "key:..."
func ParseKey(payload []byte) ([]byte, error) {
	key := payload
	if i := bytes.IndexByte(payload, KeyValueDelimiter); i >= 0 {
		key = payload[:i]
	}
	if len(key) == 0 {
		return nil, errors.New(errors.ErrMalformedPayload, "empty key")
	}
	return key, nil
}

// EncodeKeyValue 构造 kset 的数据部分
func EncodeKeyValue(key, value string) []byte {
	buf := make([]byte, 0, len(key)+1+len(value))
	buf = append(buf, key...)
	buf = append(buf, KeyValueDelimiter)
	return append(buf, value...)
}
