// Sharded concurrent map, based on the go-cache sharding approach.
package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

type Cache[K comparable, V any] interface {
	Set(k K, v V)
	Get(k K) (V, bool)
	GetAll() map[K]V
	Del(keys ...K) int
	Len() int
	Range(fn func(k K, v V) bool)
	Clear()
}

func New[K comparable, V any](shards int) Cache[K, V] {
	if shards <= 0 || shards&(shards-1) != 0 {
		shards = 16
	}
	c := &cache[K, V]{
		shards:    make([]*shard[K, V], shards),
		shardMask: uint64(shards - 1),
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{hashmap: map[K]V{}}
	}
	return c
}

type cache[K comparable, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
}

func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	hashed := xxhash.Sum64String(fmt.Sprintf("%v", k))
	return c.shards[hashed&c.shardMask]
}

func (c *cache[K, V]) Set(k K, v V) {
	c.getShard(k).set(k, v)
}

func (c *cache[K, V]) Get(k K) (V, bool) {
	return c.getShard(k).get(k)
}

func (c *cache[K, V]) GetAll() map[K]V {
	result := make(map[K]V)
	for _, s := range c.shards {
		for k, v := range s.getAll() {
			result[k] = v
		}
	}
	return result
}

func (c *cache[K, V]) Del(ks ...K) int {
	var count int
	for _, k := range ks {
		count += c.getShard(k).del(k)
	}
	return count
}

func (c *cache[K, V]) Len() int {
	var count int
	for _, s := range c.shards {
		count += s.len()
	}
	return count
}

// Range 遍历所有分片，fn 返回 false 时停止
func (c *cache[K, V]) Range(fn func(k K, v V) bool) {
	for _, s := range c.shards {
		for k, v := range s.getAll() {
			if !fn(k, v) {
				return
			}
		}
	}
}

func (c *cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.clear()
	}
}
