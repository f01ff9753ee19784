package concurrent

import (
	"maps"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// 默认分片数量
const DefaultShardCount = 16

// Map 是按 key 哈希分片加锁的并发 Map
// 连接缓存与配置索引会被多个 worker 同时读写
type Map[K comparable, V any] struct {
	shards   []*shard[K, V]
	hashFunc func(K) uint32
}

type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

// NewMap 创建一个新的并发 Map, hashFunc 将 Key 转换为 uint32
func NewMap[K comparable, V any](hashFunc func(K) uint32) *Map[K, V] {
	m := &Map[K, V]{
		shards:   make([]*shard[K, V], DefaultShardCount),
		hashFunc: hashFunc,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.hashFunc(key)%uint32(len(m.shards))]
}

func (m *Map[K, V]) Set(key K, value V) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	s.items[key] = value
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.RLock()
	defer s.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (m *Map[K, V]) Remove(key K) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	delete(s.items, key)
}

// Pop 删除 key 并返回删除前的值
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

func (m *Map[K, V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.RLock()
		n += len(s.items)
		s.RUnlock()
	}
	return n
}

func (m *Map[K, V]) Keys() []K {
	var keys []K
	for _, s := range m.shards {
		s.RLock()
		keys = slices.AppendSeq(keys, maps.Keys(s.items))
		s.RUnlock()
	}
	return keys
}

// IterCb 遍历所有元素, fn 返回 false 时停止
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

func (m *Map[K, V]) Clear() {
	for _, s := range m.shards {
		s.Lock()
		s.items = make(map[K]V)
		s.Unlock()
	}
}

// Snapshot 复制当前内容到普通 map
func (m *Map[K, V]) Snapshot() map[K]V {
	tmp := make(map[K]V)
	for _, s := range m.shards {
		s.RLock()
		maps.Copy(tmp, s.items)
		s.RUnlock()
	}
	return tmp
}

// MarshalYAML 实现 yaml.Marshaler, 序列化当前快照
func (m *Map[K, V]) MarshalYAML() (interface{}, error) {
	return m.Snapshot(), nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler
// 注意: m 必须已由 NewMap 初始化
func (m *Map[K, V]) UnmarshalYAML(value *yaml.Node) error {
	tmp := make(map[K]V)
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	for k, v := range tmp {
		m.Set(k, v)
	}
	return nil
}
