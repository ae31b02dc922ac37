package util

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// SingleKey is the provider key of one stored value.
func SingleKey(ns, key string) string {
	return "single:" + ns + ":" + key
}

// BulkKey returns a deterministic composite key for a set of member keys:
// the prefix, then a 64-bit digest of the sorted members. Members are
// NUL-separated before hashing so "a,b" and "a","b" never collide.
func BulkKey(ns string, keys []string) string {
	s := make([]string, len(keys))
	copy(s, keys)
	sort.Strings(s)

	d := xxhash.New()
	for _, k := range s {
		_, _ = d.WriteString(k)
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("bulk:%s:%016x", ns, d.Sum64())
}
