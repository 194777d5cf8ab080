// Package storage provides the storage engine for ACI.
//
// The engine owns a registry of named Databases, each a map of key to
// Item. Every operation takes the caller's resolved identity and is checked
// against the item's read or write rules before it is applied.
//
// Concurrency:
//
//   - the database registry is a sharded concurrent map (pkg/cmap)
//   - each Database guards its key map with an RWMutex
//   - each item has its own mutex, held across read-modify-write and the
//     synchronous write-through that follows a successful mutation
//
// Persistence is explicit: CreateDatabase is in-memory only, WriteToDisk
// and ReadFromDisk move whole databases, and mutations write the touched
// item file through to disk before returning.
package storage
