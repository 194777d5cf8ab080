// Package cmap provides a sharded concurrent map with string keys.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash; each shard has its own RWMutex. The server keeps its database
// registry and its session registry in a Map.
//
//	m := cmap.New[*Database]()
//	m.Set("main", db)
//	db, ok := m.Get("main")
//
// Range locks one shard at a time, so it sees a per-shard consistent view
// but not a global snapshot.
package cmap
