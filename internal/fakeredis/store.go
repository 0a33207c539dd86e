package fakeredis

import (
	"redisplit/datastruct/dict"
)

// store is the flat, single-keyspace backing for fakeredis: a single
// dict.Dict shared by every connection, with no db-index/SELECT notion,
// since the splitter this stands in for never issues SELECT to a shard.
type store struct {
	data dict.Dict
}

func newStore() *store {
	return &store{data: dict.MakeSyncDict()}
}

func (s *store) get(key string) ([]byte, bool) {
	raw, ok := s.data.Get(key)
	if !ok {
		return nil, false
	}
	val, ok := raw.([]byte)
	return val, ok
}

func (s *store) set(key string, val []byte) {
	s.data.Put(key, val)
}

func (s *store) setnx(key string, val []byte) int {
	return s.data.PutIfAbsent(key, val)
}

func (s *store) del(keys ...string) int {
	deleted := 0
	for _, key := range keys {
		if s.data.Remove(key) > 0 {
			deleted++
		}
	}
	return deleted
}

func (s *store) exists(keys ...string) int {
	count := 0
	for _, key := range keys {
		if _, ok := s.data.Get(key); ok {
			count++
		}
	}
	return count
}
