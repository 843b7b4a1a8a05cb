package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 基于go-cache实现的进程内缓存
// 多个实例可以共享同一个底层存储，用前缀区分
type MemoryCache struct {
	store  *gocache.Cache
	prefix string
}

// NewMemoryCache 创建一个新的内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	cleanup := config.CleanupInterval
	if cleanup == 0 {
		cleanup = 10 * time.Minute
	}

	return &MemoryCache{
		store:  gocache.New(ttl, cleanup),
		prefix: config.KeyPrefix,
	}, nil
}

// WithPrefix 返回共享存储、使用另一前缀的缓存视图
func (m *MemoryCache) WithPrefix(prefix string) *MemoryCache {
	return &MemoryCache{store: m.store, prefix: prefix}
}

// Get 获取缓存的模型回复
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	value, found := m.store.Get(m.prefix + key)
	if !found {
		return "", false, nil
	}
	reply, ok := value.(string)
	return reply, ok, nil
}

// Set 写入模型回复，ttl为0时使用默认过期时间
func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(m.prefix+key, value, ttl)
	return nil
}

// Delete 删除缓存项
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.store.Delete(m.prefix + key)
	return nil
}

// Clear 只删除带本缓存前缀的项
func (m *MemoryCache) Clear(_ context.Context) error {
	if m.prefix == "" {
		m.store.Flush()
		return nil
	}
	for key := range m.store.Items() {
		if strings.HasPrefix(key, m.prefix) {
			m.store.Delete(key)
		}
	}
	return nil
}

func init() {
	RegisterCache("memory", NewMemoryCache)
}
