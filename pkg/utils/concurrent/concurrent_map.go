package concurrent

import (
	"fmt"
	"maps"
	"sync"

	"gopkg.in/yaml.v3"
)

// 默认分片数量
const DEFAULT_SHARD_COUNT = 16

// Option 定义配置函数的类型
type Option[K comparable, V any] func(*Map[K, V])

// WithShardCount 自定义分片数量, 建议为 2 的幂
func WithShardCount[K comparable, V any](count uint32) Option[K, V] {
	return func(m *Map[K, V]) {
		m.shardCount = count
	}
}

// Map 是按 key 哈希分片的并发安全 Map
type Map[K comparable, V any] struct {
	shards     []*shard[K, V]
	hashFunc   func(K) uint32
	shardCount uint32
}

type shard[K comparable, V any] struct {
	items map[K]V
	sync.RWMutex
}

// NewMap 创建并发 Map, hashFunc 把 key 映射到分片
func NewMap[K comparable, V any](hashFunc func(K) uint32, opts ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		shardCount: DEFAULT_SHARD_COUNT,
		hashFunc:   hashFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

// init 初始化分片; 由 yaml 解码直接分配的零值 Map 也经过这里
func (m *Map[K, V]) init() {
	if m.shardCount == 0 {
		m.shardCount = DEFAULT_SHARD_COUNT
	}
	if m.hashFunc == nil {
		m.hashFunc = func(k K) uint32 { return HashString(fmt.Sprint(k)) }
	}
	m.shards = make([]*shard[K, V], m.shardCount)
	for i := range m.shardCount {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.hashFunc(key)%m.shardCount]
}

// Set 写入键值对
func (m *Map[K, V]) Set(key K, value V) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	s.items[key] = value
}

// Get 读取键值对
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.RLock()
	defer s.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// SetIfAbsent 仅在 key 不存在时写入, 返回实际存储的值和是否新写入
func (m *Map[K, V]) SetIfAbsent(key K, value V) (V, bool) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	if old, ok := s.items[key]; ok {
		return old, false
	}
	s.items[key] = value
	return value, true
}

// Pop 删除 key 并返回删除前的值
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	val, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return val, ok
}

// Count 统计元素数量
func (m *Map[K, V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.RLock()
		count += len(s.items)
		s.RUnlock()
	}
	return count
}

// Keys 获取所有的 Key, 顺序不固定
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0)
	m.IterCb(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// IterCb 逐个分片遍历, fn 返回 false 时停止
func (m *Map[K, V]) IterCb(fn func(key K, v V) bool) {
	for _, s := range m.shards {
		s.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}

// Snapshot 复制当前内容到普通 Map
func (m *Map[K, V]) Snapshot() map[K]V {
	tmp := make(map[K]V)
	for _, s := range m.shards {
		s.RLock()
		maps.Copy(tmp, s.items)
		s.RUnlock()
	}
	return tmp
}

// MarshalYAML 实现 yaml.Marshaler 接口
func (m *Map[K, V]) MarshalYAML() (interface{}, error) {
	return m.Snapshot(), nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
func (m *Map[K, V]) UnmarshalYAML(value *yaml.Node) error {
	tmp := make(map[K]V)
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	if m.shards == nil {
		m.init()
	}
	for k, v := range tmp {
		m.Set(k, v)
	}
	return nil
}
