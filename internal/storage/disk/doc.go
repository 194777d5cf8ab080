// Package disk implements the on-disk layout of ACI databases.
//
// Each database is a directory under <root>/databases holding one file per
// item plus a manifest listing the member keys:
//
//	<root>/databases/<db>/<key>.item
//	<root>/databases/<db>/<db>.database
//
// Item files are self-contained and versioned. The manifest records only
// key names; hydrating a database re-reads every member item file.
//
// Files written by older releases are upgraded in memory when read:
//
//   - list items [key, value, owner, permissions, subs]
//   - tagged items carrying a "permissions" table with a_user/g_user tags
//   - list manifests [dbKey, keys] and tagged manifests {dbKey, keys, ver}
//
// The upgraded form reaches disk on the next explicit write.
//
// All writes are atomic (temp file, fsync, rename). When a cipher is
// configured, file bodies are sealed with pkg/crypto/adaptive; plaintext
// files stay readable so an existing tree can be encrypted gradually.
package disk
