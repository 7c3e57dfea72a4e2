package redis

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// BlockStore Flash 用到的Redis命令，*redis.Client 满足此接口
type BlockStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Flash 把配置块保存为一个Redis键，多台主机可共享同一份配置
type Flash struct {
	client BlockStore
	key    string
}

// NewFlash 创建Redis闪存
func NewFlash(client BlockStore, key string) *Flash {
	return &Flash{client: client, key: key}
}

// Read 实现storage.Flash接口，键不存在时返回空
func (f *Flash) Read(ctx context.Context) ([]byte, error) {
	data, err := f.client.Get(ctx, f.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrRedisOperationFailed, "read config block", err)
	}
	return data, nil
}

// EraseAndProgram 实现storage.Flash接口，整块覆盖写入
func (f *Flash) EraseAndProgram(ctx context.Context, block []byte) error {
	if err := f.client.Set(ctx, f.key, block, 0).Err(); err != nil {
		return errors.Wrap(errors.ErrStorageWriteFailed, "write config block", err)
	}
	return nil
}
